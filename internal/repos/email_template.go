package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type EmailTemplateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, templates []*types.EmailTemplate) ([]*types.EmailTemplate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EmailTemplate, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.EmailTemplate, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.EmailTemplate, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type emailTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailTemplateRepo(db *gorm.DB, baseLog *logger.Logger) EmailTemplateRepo {
	repoLog := baseLog.With("repo", "EmailTemplateRepo")
	return &emailTemplateRepo{db: db, log: repoLog}
}

func (r *emailTemplateRepo) Create(ctx context.Context, tx *gorm.DB, templates []*types.EmailTemplate) ([]*types.EmailTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(templates) == 0 {
		return []*types.EmailTemplate{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *emailTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EmailTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tpl types.EmailTemplate
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *emailTemplateRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.EmailTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tpl types.EmailTemplate
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *emailTemplateRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.EmailTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EmailTemplate
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *emailTemplateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.EmailTemplate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *emailTemplateRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.EmailTemplate{}).Error
}
