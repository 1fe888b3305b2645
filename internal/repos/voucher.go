package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type VoucherRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vouchers []*types.Voucher) ([]*types.Voucher, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Voucher, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error)
	// GetByCodeForUpdate takes a row lock; callers must run inside a transaction.
	GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error)
	ListByApplication(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) ([]*types.Voucher, error)
	ListExpiredActive(ctx context.Context, tx *gorm.DB) ([]*types.Voucher, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	OutstandingBalanceCents(ctx context.Context, tx *gorm.DB) (int64, error)
}

type voucherRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoucherRepo(db *gorm.DB, baseLog *logger.Logger) VoucherRepo {
	repoLog := baseLog.With("repo", "VoucherRepo")
	return &voucherRepo{db: db, log: repoLog}
}

func (r *voucherRepo) Create(ctx context.Context, tx *gorm.DB, vouchers []*types.Voucher) ([]*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(vouchers) == 0 {
		return []*types.Voucher{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&vouchers).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("voucher code collision: %w", pkgerrors.ErrConflict)
		}
		return nil, err
	}
	return vouchers, nil
}

func (r *voucherRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var voucher types.Voucher
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var voucher types.Voucher
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepo) GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var voucher types.Voucher
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepo) ListByApplication(ctx context.Context, tx *gorm.DB, applicationID uuid.UUID) ([]*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Voucher
	if err := transaction.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *voucherRepo) ListExpiredActive(ctx context.Context, tx *gorm.DB) ([]*types.Voucher, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Voucher
	if err := transaction.WithContext(ctx).
		Where("status = ? AND expires_at < now()", types.VoucherStatusActive).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *voucherRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Voucher{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *voucherRepo) OutstandingBalanceCents(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.Voucher{}).
		Where("status = ?", types.VoucherStatusActive).
		Select("COALESCE(SUM(remaining_value_cents), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
