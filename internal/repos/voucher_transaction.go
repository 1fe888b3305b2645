package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type VoucherTransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, transactions []*types.VoucherTransaction) ([]*types.VoucherTransaction, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.VoucherTransaction, error)
	ListByVoucher(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID) ([]*types.VoucherTransaction, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type voucherTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoucherTransactionRepo(db *gorm.DB, baseLog *logger.Logger) VoucherTransactionRepo {
	repoLog := baseLog.With("repo", "VoucherTransactionRepo")
	return &voucherTransactionRepo{db: db, log: repoLog}
}

func (r *voucherTransactionRepo) Create(ctx context.Context, tx *gorm.DB, transactions []*types.VoucherTransaction) ([]*types.VoucherTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(transactions) == 0 {
		return []*types.VoucherTransaction{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *voucherTransactionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.VoucherTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var vt types.VoucherTransaction
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&vt).Error; err != nil {
		return nil, err
	}
	return &vt, nil
}

func (r *voucherTransactionRepo) ListByVoucher(ctx context.Context, tx *gorm.DB, voucherID uuid.UUID) ([]*types.VoucherTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.VoucherTransaction
	if err := transaction.WithContext(ctx).
		Where("voucher_id = ?", voucherID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *voucherTransactionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.VoucherTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}
