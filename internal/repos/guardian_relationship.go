package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type GuardianRelationshipRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rels []*types.GuardianRelationship) ([]*types.GuardianRelationship, error)
	ListByGuardian(ctx context.Context, tx *gorm.DB, guardianID uuid.UUID) ([]*types.GuardianRelationship, error)
	ListByDependent(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.GuardianRelationship, error)
	Exists(ctx context.Context, tx *gorm.DB, guardianID, dependentID uuid.UUID) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type guardianRelationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuardianRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) GuardianRelationshipRepo {
	repoLog := baseLog.With("repo", "GuardianRelationshipRepo")
	return &guardianRelationshipRepo{db: db, log: repoLog}
}

func (r *guardianRelationshipRepo) Create(ctx context.Context, tx *gorm.DB, rels []*types.GuardianRelationship) ([]*types.GuardianRelationship, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rels) == 0 {
		return []*types.GuardianRelationship{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rels).Error; err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *guardianRelationshipRepo) ListByGuardian(ctx context.Context, tx *gorm.DB, guardianID uuid.UUID) ([]*types.GuardianRelationship, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GuardianRelationship
	if err := transaction.WithContext(ctx).
		Preload("Dependent").
		Where("guardian_id = ?", guardianID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *guardianRelationshipRepo) ListByDependent(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.GuardianRelationship, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GuardianRelationship
	if err := transaction.WithContext(ctx).
		Preload("Guardian").
		Where("dependent_id = ?", dependentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *guardianRelationshipRepo) Exists(ctx context.Context, tx *gorm.DB, guardianID, dependentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GuardianRelationship{}).
		Where("guardian_id = ? AND dependent_id = ?", guardianID, dependentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *guardianRelationshipRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.GuardianRelationship{}).Error
}
