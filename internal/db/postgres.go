package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "vulcan", log)
	postgresSSLMode := utils.GetEnv("POSTGRES_SSLMODE", "disable", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, postgresSSLMode)

	serviceLog.Info("Connecting to Postgres...")
	theDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := theDB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: theDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.GuardianRelationship{},
		&types.Application{},
		&types.Proof{},
		&types.MedicalCertification{},
		&types.RejectionReason{},
		&types.EmailTemplate{},
		&types.Voucher{},
		&types.VoucherTransaction{},
		&types.Vendor{},
		&types.Notification{},
		&types.Event{},
		&types.TotpCredential{},
		&types.JobRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_user_token_user_id",
			ddl: `ALTER TABLE "user_token"
				ADD CONSTRAINT "fk_user_token_user_id"
				FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_application_user_id",
			ddl: `ALTER TABLE "application"
				ADD CONSTRAINT "fk_application_user_id"
				FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_proof_application_id",
			ddl: `ALTER TABLE "proof"
				ADD CONSTRAINT "fk_proof_application_id"
				FOREIGN KEY ("application_id") REFERENCES "application"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_medical_certification_application_id",
			ddl: `ALTER TABLE "medical_certification"
				ADD CONSTRAINT "fk_medical_certification_application_id"
				FOREIGN KEY ("application_id") REFERENCES "application"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_voucher_application_id",
			ddl: `ALTER TABLE "voucher"
				ADD CONSTRAINT "fk_voucher_application_id"
				FOREIGN KEY ("application_id") REFERENCES "application"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_voucher_transaction_voucher_id",
			ddl: `ALTER TABLE "voucher_transaction"
				ADD CONSTRAINT "fk_voucher_transaction_voucher_id"
				FOREIGN KEY ("voucher_id") REFERENCES "voucher"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_notification_recipient_id",
			ddl: `ALTER TABLE "notification"
				ADD CONSTRAINT "fk_notification_recipient_id"
				FOREIGN KEY ("recipient_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_totp_credential_user_id",
			ddl: `ALTER TABLE "totp_credential"
				ADD CONSTRAINT "fk_totp_credential_user_id"
				FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
	}
	for _, c := range constraints {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
