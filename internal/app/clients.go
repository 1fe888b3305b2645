package app

import (
	"fmt"

	"github.com/matvulcan/vulcan-backend/internal/clients/docuseal"
	"github.com/matvulcan/vulcan-backend/internal/clients/redis"
	"github.com/matvulcan/vulcan-backend/internal/clients/sendgrid"
	"github.com/matvulcan/vulcan-backend/internal/clients/twilio"
	"github.com/matvulcan/vulcan-backend/internal/logger"
)

type Clients struct {
	Email     sendgrid.Client
	Telephony twilio.Client
	ESign     docuseal.Client
	Challenge redis.ChallengeStore
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	email, err := sendgrid.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init sendgrid: %w", err)
	}
	telephony, err := twilio.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init twilio: %w", err)
	}
	esign, err := docuseal.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init docuseal: %w", err)
	}
	challenge, err := redis.NewChallengeStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis challenge store: %w", err)
	}
	return Clients{
		Email:     email,
		Telephony: telephony,
		ESign:     esign,
		Challenge: challenge,
	}, nil
}
