package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type VendorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vendors []*types.Vendor) ([]*types.Vendor, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Vendor, error)
	List(ctx context.Context, tx *gorm.DB, status string) ([]*types.Vendor, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type vendorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVendorRepo(db *gorm.DB, baseLog *logger.Logger) VendorRepo {
	repoLog := baseLog.With("repo", "VendorRepo")
	return &vendorRepo{db: db, log: repoLog}
}

func (r *vendorRepo) Create(ctx context.Context, tx *gorm.DB, vendors []*types.Vendor) ([]*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(vendors) == 0 {
		return []*types.Vendor{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var vendor types.Vendor
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var vendor types.Vendor
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Vendor{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var results []*types.Vendor
	if err := q.Order("business_name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *vendorRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Vendor{}).
		Where("id = ?", id).
		Updates(updates).Error
}
