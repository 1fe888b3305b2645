package app

import (
	"gorm.io/gorm"

	httpH "github.com/matvulcan/vulcan-backend/internal/http/handlers"
	httpMW "github.com/matvulcan/vulcan-backend/internal/http/middleware"
	"github.com/matvulcan/vulcan-backend/internal/logger"
)

type Handlers struct {
	Health        *httpH.HealthHandler
	Auth          *httpH.AuthHandler
	TwoFactor     *httpH.TwoFactorHandler
	User          *httpH.UserHandler
	Application   *httpH.ApplicationHandler
	Review        *httpH.ReviewHandler
	Vendor        *httpH.VendorHandler
	AdminTemplate *httpH.AdminTemplateHandler
	AdminReason   *httpH.AdminReasonHandler
	Webhook       *httpH.WebhookHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(db),
		Auth:          httpH.NewAuthHandler(log, s.Auth, s.TwoFactor),
		TwoFactor:     httpH.NewTwoFactorHandler(s.TwoFactor, s.Auth),
		User:          httpH.NewUserHandler(s.User),
		Application:   httpH.NewApplicationHandler(s.Application, s.Certification, s.Notification),
		Review:        httpH.NewReviewHandler(s.ProofReview, s.Certification),
		Vendor:        httpH.NewVendorHandler(s.User, s.Voucher),
		AdminTemplate: httpH.NewAdminTemplateHandler(s.EmailTemplate, s.Notification, s.User),
		AdminReason:   httpH.NewAdminReasonHandler(s.RejectionReason),
		Webhook:       httpH.NewWebhookHandler(log, s.Certification, s.Notification, cfg.ESignWebhookSecret, cfg.TelephonyWebhookSecret),
	}
}

func wireMiddleware(log *logger.Logger, s Services) *httpMW.AuthMiddleware {
	return httpMW.NewAuthMiddleware(log, s.Auth)
}
