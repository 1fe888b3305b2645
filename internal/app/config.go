package app

import (
	"time"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	MediaRoot string

	ESignTemplateID        int
	ESignWebhookSecret     string
	TelephonyWebhookSecret string

	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	return Config{
		JWTSecretKey:           jwtSecretKey,
		AccessTokenTTL:         time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL:        time.Duration(refreshTokenTTLSeconds) * time.Second,
		MediaRoot:              utils.GetEnv("MEDIA_ROOT", "/var/lib/vulcan/media", log),
		ESignTemplateID:        utils.GetEnvAsInt("DOCUSEAL_TEMPLATE_ID", 0, log),
		ESignWebhookSecret:     utils.GetEnv("DOCUSEAL_WEBHOOK_SECRET", "", log),
		TelephonyWebhookSecret: utils.GetEnv("TELEPHONY_WEBHOOK_SECRET", "", log),
		Environment:            utils.GetEnv("APP_ENV", "development", log),
		Version:                utils.GetEnv("APP_VERSION", "dev", log),
	}
}
