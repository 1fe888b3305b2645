package app

import (
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
)

type Repos struct {
	User                 repos.UserRepo
	UserToken            repos.UserTokenRepo
	TotpCredential       repos.TotpCredentialRepo
	GuardianRelationship repos.GuardianRelationshipRepo
	Application          repos.ApplicationRepo
	Proof                repos.ProofRepo
	MedicalCertification repos.MedicalCertificationRepo
	RejectionReason      repos.RejectionReasonRepo
	Voucher              repos.VoucherRepo
	VoucherTransaction   repos.VoucherTransactionRepo
	Vendor               repos.VendorRepo
	EmailTemplate        repos.EmailTemplateRepo
	Notification         repos.NotificationRepo
	Event                repos.EventRepo
	JobRun               repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                 repos.NewUserRepo(db, log),
		UserToken:            repos.NewUserTokenRepo(db, log),
		TotpCredential:       repos.NewTotpCredentialRepo(db, log),
		GuardianRelationship: repos.NewGuardianRelationshipRepo(db, log),
		Application:          repos.NewApplicationRepo(db, log),
		Proof:                repos.NewProofRepo(db, log),
		MedicalCertification: repos.NewMedicalCertificationRepo(db, log),
		RejectionReason:      repos.NewRejectionReasonRepo(db, log),
		Voucher:              repos.NewVoucherRepo(db, log),
		VoucherTransaction:   repos.NewVoucherTransactionRepo(db, log),
		Vendor:               repos.NewVendorRepo(db, log),
		EmailTemplate:        repos.NewEmailTemplateRepo(db, log),
		Notification:         repos.NewNotificationRepo(db, log),
		Event:                repos.NewEventRepo(db, log),
		JobRun:               repos.NewJobRunRepo(db, log),
	}
}
