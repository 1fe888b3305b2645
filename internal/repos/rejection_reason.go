package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type RejectionReasonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, reasons []*types.RejectionReason) ([]*types.RejectionReason, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RejectionReason, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.RejectionReason, error)
	List(ctx context.Context, tx *gorm.DB, category string) ([]*types.RejectionReason, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type rejectionReasonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRejectionReasonRepo(db *gorm.DB, baseLog *logger.Logger) RejectionReasonRepo {
	repoLog := baseLog.With("repo", "RejectionReasonRepo")
	return &rejectionReasonRepo{db: db, log: repoLog}
}

func (r *rejectionReasonRepo) Create(ctx context.Context, tx *gorm.DB, reasons []*types.RejectionReason) ([]*types.RejectionReason, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(reasons) == 0 {
		return []*types.RejectionReason{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&reasons).Error; err != nil {
		return nil, err
	}
	return reasons, nil
}

func (r *rejectionReasonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RejectionReason, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var reason types.RejectionReason
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&reason).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *rejectionReasonRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.RejectionReason, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var reason types.RejectionReason
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&reason).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *rejectionReasonRepo) List(ctx context.Context, tx *gorm.DB, category string) ([]*types.RejectionReason, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.RejectionReason{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var results []*types.RejectionReason
	if err := q.Order("code ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *rejectionReasonRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.RejectionReason{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *rejectionReasonRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.RejectionReason{}).Error
}
