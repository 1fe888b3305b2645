package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type MedicalCertificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, certs []*types.MedicalCertification) ([]*types.MedicalCertification, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MedicalCertification, error)
	GetByApplicationID(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) (*types.MedicalCertification, error)
	GetBySigningRequestID(ctx context.Context, tx *gorm.DB, signingRequestID string) (*types.MedicalCertification, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type medicalCertificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMedicalCertificationRepo(db *gorm.DB, baseLog *logger.Logger) MedicalCertificationRepo {
	repoLog := baseLog.With("repo", "MedicalCertificationRepo")
	return &medicalCertificationRepo{db: db, log: repoLog}
}

func (r *medicalCertificationRepo) Create(ctx context.Context, tx *gorm.DB, certs []*types.MedicalCertification) ([]*types.MedicalCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(certs) == 0 {
		return []*types.MedicalCertification{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *medicalCertificationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MedicalCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cert types.MedicalCertification
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *medicalCertificationRepo) GetByApplicationID(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) (*types.MedicalCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cert types.MedicalCertification
	if err := transaction.WithContext(ctx).
		Where("application_id = ?", applicationID).
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *medicalCertificationRepo) GetBySigningRequestID(ctx context.Context, tx *gorm.DB, signingRequestID string) (*types.MedicalCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cert types.MedicalCertification
	if err := transaction.WithContext(ctx).
		Where("signing_request_id = ?", signingRequestID).
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *medicalCertificationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.MedicalCertification{}).
		Where("id = ?", id).
		Updates(updates).Error
}
