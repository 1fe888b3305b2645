package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type ProofRepo interface {
	Create(ctx context.Context, tx *gorm.DB, proofs []*types.Proof) ([]*types.Proof, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proof, error)
	ListByApplication(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) ([]*types.Proof, error)
	ListPending(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Proof, int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type proofRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProofRepo(db *gorm.DB, baseLog *logger.Logger) ProofRepo {
	repoLog := baseLog.With("repo", "ProofRepo")
	return &proofRepo{db: db, log: repoLog}
}

func (r *proofRepo) Create(ctx context.Context, tx *gorm.DB, proofs []*types.Proof) ([]*types.Proof, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(proofs) == 0 {
		return []*types.Proof{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&proofs).Error; err != nil {
		return nil, err
	}
	return proofs, nil
}

func (r *proofRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Proof, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var proof types.Proof
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&proof).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *proofRepo) ListByApplication(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) ([]*types.Proof, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Proof
	if err := transaction.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("submitted_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *proofRepo) ListPending(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Proof, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.Proof{}).
		Where("status = ?", types.ProofStatusNotReviewed)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var results []*types.Proof
	if err := q.Preload("Application").Order("submitted_at ASC").Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *proofRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Proof{}).
		Where("id = ?", id).
		Updates(updates).Error
}
