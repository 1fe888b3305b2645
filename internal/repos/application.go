package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type ApplicationFilter struct {
	Status string
	UserID uuid.UUID
	Limit  int
	Offset int
}

type ApplicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, apps []*types.Application) ([]*types.Application, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error)
	// GetByIDForUpdate takes a row lock; callers must run inside a transaction.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Application, error)
	List(ctx context.Context, tx *gorm.DB, filter ApplicationFilter) ([]*types.Application, int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
	ListStaleByStatus(ctx context.Context, tx *gorm.DB, status string, cutoffDays int) ([]*types.Application, error)
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	repoLog := baseLog.With("repo", "ApplicationRepo")
	return &applicationRepo{db: db, log: repoLog}
}

func (r *applicationRepo) Create(ctx context.Context, tx *gorm.DB, apps []*types.Application) ([]*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(apps) == 0 {
		return []*types.Application{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var app types.Application
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var app types.Application
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Application
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *applicationRepo) List(ctx context.Context, tx *gorm.DB, filter ApplicationFilter) ([]*types.Application, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Application{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var results []*types.Application
	if err := q.Preload("User").Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *applicationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Application{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *applicationRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := transaction.WithContext(ctx).
		Model(&types.Application{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rr := range rows {
		counts[rr.Status] = rr.Count
	}
	return counts, nil
}

func (r *applicationRepo) ListStaleByStatus(ctx context.Context, tx *gorm.DB, status string, cutoffDays int) ([]*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Application
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Where("last_activity_at IS NOT NULL AND last_activity_at < now() - make_interval(days => ?)", cutoffDays).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
