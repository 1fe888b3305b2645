package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/jobs"
	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

type Services struct {
	Avatar          services.AvatarService
	Auth            services.AuthService
	TwoFactor       services.TwoFactorService
	User            services.UserService
	EmailTemplate   services.EmailTemplateService
	Notification    services.NotificationService
	Voucher         services.VoucherService
	Application     services.ApplicationService
	Certification   services.CertificationService
	ProofReview     services.ProofReviewService
	RejectionReason services.RejectionReasonService

	JobStore    *jobs.Store
	JobRegistry *jobs.Registry
	JobWorker   *jobs.Worker
	Scheduler   *jobs.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	jobStore := jobs.NewStore(db, log, r.JobRun)

	templates := services.NewEmailTemplateService(db, log, r.EmailTemplate)
	notifications := services.NewNotificationService(db, log, r.Notification, r.Event, templates, jobStore)
	vouchers := services.NewVoucherService(db, log, r.Voucher, r.VoucherTransaction, r.Vendor, r.Event)
	applications := services.NewApplicationService(db, log, r.Application, r.Proof, r.User, r.GuardianRelationship, r.Event, vouchers, notifications)
	certifications := services.NewCertificationService(db, log, r.MedicalCertification, r.Application, r.User, r.RejectionReason, r.Event, c.ESign, cfg.ESignTemplateID, cfg.MediaRoot, applications, notifications, jobStore)
	proofReview := services.NewProofReviewService(db, log, r.Proof, r.Application, r.User, r.RejectionReason, r.Event, applications, certifications, notifications)

	avatars, err := services.NewAvatarService(db, log, r.User, cfg.MediaRoot)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}
	auth := services.NewAuthService(db, log, r.User, r.UserToken, avatars, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	twoFactor := services.NewTwoFactorService(db, log, r.User, r.TotpCredential, c.Challenge, c.Telephony, auth)
	users := services.NewUserService(db, log, r.User, r.UserToken, r.GuardianRelationship, r.Vendor, r.Application, r.Voucher, r.Event)
	reasons := services.NewRejectionReasonService(db, log, r.RejectionReason)

	registry := jobs.NewRegistry()
	handlers := []jobs.Handler{
		jobs.NewEmailDeliveryHandler(c.Email, r.Notification),
		jobs.NewSMSDeliveryHandler(c.Telephony, r.Notification),
		jobs.NewFaxDeliveryHandler(c.Telephony, r.Notification),
		jobs.NewCertificationRequestHandler(certifications),
		jobs.NewCertificationDownloadHandler(certifications),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler: %w", err)
		}
	}
	worker := jobs.NewWorker(db, log, r.JobRun, registry)
	scheduler := jobs.NewScheduler(log, r.Application, r.User, applications, vouchers, notifications)

	return Services{
		Avatar:          avatars,
		Auth:            auth,
		TwoFactor:       twoFactor,
		User:            users,
		EmailTemplate:   templates,
		Notification:    notifications,
		Voucher:         vouchers,
		Application:     applications,
		Certification:   certifications,
		ProofReview:     proofReview,
		RejectionReason: reasons,
		JobStore:        jobStore,
		JobRegistry:     registry,
		JobWorker:       worker,
		Scheduler:       scheduler,
	}, nil
}
