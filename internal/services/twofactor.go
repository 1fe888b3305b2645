package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/clients/redis"
	"github.com/matvulcan/vulcan-backend/internal/clients/twilio"
	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

const (
	totpIssuer     = "MAT Vulcan"
	smsCodeTTL     = 5 * time.Minute
	maxSMSAttempts = 5
)

type TOTPEnrollment struct {
	CredentialID uuid.UUID `json:"credential_id"`
	Secret       string    `json:"secret"`
	OtpauthURL   string    `json:"otpauth_url"`
}

type TwoFactorService interface {
	EnrollTOTP(ctx context.Context, userID uuid.UUID, nickname string) (*TOTPEnrollment, error)
	ConfirmTOTP(ctx context.Context, userID, credentialID uuid.UUID, code string) error
	DisableTOTP(ctx context.Context, userID, credentialID uuid.UUID) error
	EnableSMS(ctx context.Context, userID uuid.UUID) error
	DisableSMS(ctx context.Context, userID uuid.UUID) error
	// StartSMSChallenge texts a one-time code for a pending login challenge.
	StartSMSChallenge(ctx context.Context, challengeToken string) error
	// VerifyChallenge exchanges challenge token + code for real tokens.
	VerifyChallenge(ctx context.Context, challengeToken, method, code string) (string, string, error)
}

type twoFactorService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	totpRepo repos.TotpCredentialRepo
	store    redis.ChallengeStore
	sms      twilio.Client
	auth     AuthService
}

func NewTwoFactorService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	totpRepo repos.TotpCredentialRepo,
	store redis.ChallengeStore,
	sms twilio.Client,
	auth AuthService,
) TwoFactorService {
	serviceLog := log.With("service", "TwoFactorService")
	return &twoFactorService{
		db:       db,
		log:      serviceLog,
		userRepo: userRepo,
		totpRepo: totpRepo,
		store:    store,
		sms:      sms,
		auth:     auth,
	}
}

func (s *twoFactorService) EnrollTOTP(ctx context.Context, userID uuid.UUID, nickname string) (*TOTPEnrollment, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("user not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	created, err := s.totpRepo.Create(ctx, nil, []*types.TotpCredential{{
		UserID:   user.ID,
		Secret:   key.Secret(),
		Nickname: nickname,
	}})
	if err != nil {
		return nil, err
	}
	return &TOTPEnrollment{
		CredentialID: created[0].ID,
		Secret:       key.Secret(),
		OtpauthURL:   key.URL(),
	}, nil
}

func (s *twoFactorService) ConfirmTOTP(ctx context.Context, userID, credentialID uuid.UUID, code string) error {
	cred, err := s.totpRepo.GetByID(ctx, nil, credentialID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("credential not found: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	if cred.UserID != userID {
		return fmt.Errorf("credential belongs to another user: %w", pkgerrors.ErrForbidden)
	}
	if cred.Confirmed {
		return fmt.Errorf("credential already confirmed: %w", pkgerrors.ErrConflict)
	}
	if !totp.Validate(code, cred.Secret) {
		return fmt.Errorf("invalid authenticator code: %w", pkgerrors.ErrUnauthorized)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := s.totpRepo.UpdateFields(ctx, tx, cred.ID, map[string]any{
			"confirmed":    true,
			"last_used_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		return s.userRepo.UpdateFields(ctx, tx, userID, map[string]any{
			"totp_enabled": true,
			"updated_at":   now,
		})
	})
}

func (s *twoFactorService) DisableTOTP(ctx context.Context, userID, credentialID uuid.UUID) error {
	cred, err := s.totpRepo.GetByID(ctx, nil, credentialID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("credential not found: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	if cred.UserID != userID {
		return fmt.Errorf("credential belongs to another user: %w", pkgerrors.ErrForbidden)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.totpRepo.Delete(ctx, tx, cred.ID); err != nil {
			return err
		}
		remaining, err := s.totpRepo.ListByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		anyConfirmed := false
		for _, c := range remaining {
			if c.Confirmed {
				anyConfirmed = true
				break
			}
		}
		if !anyConfirmed {
			return s.userRepo.UpdateFields(ctx, tx, userID, map[string]any{
				"totp_enabled": false,
				"updated_at":   time.Now(),
			})
		}
		return nil
	})
}

func (s *twoFactorService) EnableSMS(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("user not found: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	if user.Phone == "" {
		return fmt.Errorf("a phone number is required for sms codes: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.userRepo.UpdateFields(ctx, nil, userID, map[string]any{
		"sms_two_factor": true,
		"updated_at":     time.Now(),
	})
}

func (s *twoFactorService) DisableSMS(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.UpdateFields(ctx, nil, userID, map[string]any{
		"sms_two_factor": false,
		"updated_at":     time.Now(),
	})
}

func generateSMSCode() (string, error) {
	const digits = 6
	// Reject bytes >= 250 so every digit is equally likely.
	code := make([]byte, 0, digits)
	buf := make([]byte, 1)
	for len(code) < digits {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= 250 {
			continue
		}
		code = append(code, '0'+buf[0]%10)
	}
	return string(code), nil
}

func (s *twoFactorService) StartSMSChallenge(ctx context.Context, challengeToken string) error {
	userID, err := s.auth.ParseChallengeToken(challengeToken)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return err
	}
	if !user.SMSTwoFactor || user.Phone == "" {
		return fmt.Errorf("sms codes are not enabled for this account: %w", pkgerrors.ErrInvalidArgument)
	}

	code, err := generateSMSCode()
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, userID.String(), code, smsCodeTTL); err != nil {
		return fmt.Errorf("store sms challenge: %w", err)
	}
	if _, err := s.sms.SendSMS(ctx, user.Phone, fmt.Sprintf("Your MAT Vulcan verification code is %s. It expires in 5 minutes.", code)); err != nil {
		return fmt.Errorf("send sms code: %w", err)
	}
	return nil
}

func (s *twoFactorService) VerifyChallenge(ctx context.Context, challengeToken, method, code string) (string, string, error) {
	userID, err := s.auth.ParseChallengeToken(challengeToken)
	if err != nil {
		return "", "", err
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return "", "", err
	}

	switch method {
	case "totp":
		if !user.TotpEnabled {
			return "", "", fmt.Errorf("authenticator codes are not enabled for this account: %w", pkgerrors.ErrInvalidArgument)
		}
		creds, lErr := s.totpRepo.ListByUser(ctx, nil, userID)
		if lErr != nil {
			return "", "", lErr
		}
		matched := false
		for _, cred := range creds {
			if cred.Confirmed && totp.Validate(code, cred.Secret) {
				matched = true
				now := time.Now()
				if uErr := s.totpRepo.UpdateFields(ctx, nil, cred.ID, map[string]any{
					"last_used_at": now,
					"updated_at":   now,
				}); uErr != nil {
					s.log.Warn("failed to record totp use", "credential_id", cred.ID, "error", uErr)
				}
				break
			}
		}
		if !matched {
			return "", "", fmt.Errorf("invalid authenticator code: %w", pkgerrors.ErrUnauthorized)
		}

	case "sms":
		if !user.SMSTwoFactor {
			return "", "", fmt.Errorf("sms codes are not enabled for this account: %w", pkgerrors.ErrInvalidArgument)
		}
		if vErr := s.store.Verify(ctx, userID.String(), code, maxSMSAttempts); vErr != nil {
			return "", "", vErr
		}

	default:
		return "", "", fmt.Errorf("unknown two-factor method %q: %w", method, pkgerrors.ErrInvalidArgument)
	}

	return s.auth.IssueTokens(ctx, user)
}
