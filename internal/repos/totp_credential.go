package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type TotpCredentialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, creds []*types.TotpCredential) ([]*types.TotpCredential, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TotpCredential, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TotpCredential, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type totpCredentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTotpCredentialRepo(db *gorm.DB, baseLog *logger.Logger) TotpCredentialRepo {
	repoLog := baseLog.With("repo", "TotpCredentialRepo")
	return &totpCredentialRepo{db: db, log: repoLog}
}

func (r *totpCredentialRepo) Create(ctx context.Context, tx *gorm.DB, creds []*types.TotpCredential) ([]*types.TotpCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(creds) == 0 {
		return []*types.TotpCredential{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *totpCredentialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TotpCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cred types.TotpCredential
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *totpCredentialRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TotpCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TotpCredential
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *totpCredentialRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.TotpCredential{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *totpCredentialRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.TotpCredential{}).Error
}
