package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// Benefit values by household size band. Sizes past the last band use the
// last band's value.
var voucherValueCentsBySize = []int64{
	1: 50_000,
	2: 60_000,
	3: 70_000,
	4: 80_000,
	5: 90_000,
}

const (
	voucherValidity     = 365 * 24 * time.Hour
	voucherCodeAttempts = 5
)

// codeAlphabet drops 0/O, 1/I to keep codes phone-friendly.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type RedeemRequest struct {
	VendorUserID uuid.UUID
	Code         string
	AmountCents  int64
	Reference    string
}

type VoucherService interface {
	// IssueForApplication mints the voucher for an approved application.
	// Runs inside the caller's approval transaction.
	IssueForApplication(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Voucher, error)
	Redeem(ctx context.Context, req RedeemRequest) (*types.VoucherTransaction, error)
	VoidTransaction(ctx context.Context, adminID, transactionID uuid.UUID) error
	Cancel(ctx context.Context, adminID, voucherID uuid.UUID) error
	GetByCode(ctx context.Context, code string) (*types.Voucher, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*types.Voucher, error)
	ListTransactions(ctx context.Context, voucherID uuid.UUID) ([]*types.VoucherTransaction, error)
	// ExpireSweep marks active vouchers past their expiry. Returns how many
	// rows changed; the cron scheduler runs it.
	ExpireSweep(ctx context.Context) (int, error)
	OutstandingBalanceCents(ctx context.Context) (int64, error)
}

type voucherService struct {
	db              *gorm.DB
	log             *logger.Logger
	voucherRepo     repos.VoucherRepo
	transactionRepo repos.VoucherTransactionRepo
	vendorRepo      repos.VendorRepo
	eventRepo       repos.EventRepo
}

func NewVoucherService(
	db *gorm.DB,
	log *logger.Logger,
	voucherRepo repos.VoucherRepo,
	transactionRepo repos.VoucherTransactionRepo,
	vendorRepo repos.VendorRepo,
	eventRepo repos.EventRepo,
) VoucherService {
	serviceLog := log.With("service", "VoucherService")
	return &voucherService{
		db:              db,
		log:             serviceLog,
		voucherRepo:     voucherRepo,
		transactionRepo: transactionRepo,
		vendorRepo:      vendorRepo,
		eventRepo:       eventRepo,
	}
}

// VoucherValueCents returns the benefit amount for a household size.
func VoucherValueCents(householdSize int) int64 {
	if householdSize < 1 {
		householdSize = 1
	}
	if householdSize >= len(voucherValueCentsBySize) {
		return voucherValueCentsBySize[len(voucherValueCentsBySize)-1]
	}
	return voucherValueCentsBySize[householdSize]
}

func generateVoucherCode() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, 0, 15)
	for i, b := range raw {
		if i > 0 && i%4 == 0 {
			out = append(out, '-')
		}
		out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return string(out), nil
}

func (s *voucherService) IssueForApplication(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Voucher, error) {
	if app == nil {
		return nil, fmt.Errorf("application required: %w", pkgerrors.ErrInvalidArgument)
	}
	existing, err := s.voucherRepo.ListByApplication(ctx, tx, app.ID)
	if err != nil {
		return nil, err
	}
	for _, v := range existing {
		if v.Status == types.VoucherStatusActive {
			return nil, fmt.Errorf("application already has an active voucher: %w", pkgerrors.ErrConflict)
		}
	}

	value := VoucherValueCents(app.HouseholdSize)
	now := time.Now()
	var lastErr error
	for attempt := 0; attempt < voucherCodeAttempts; attempt++ {
		code, cErr := generateVoucherCode()
		if cErr != nil {
			return nil, cErr
		}
		voucher := &types.Voucher{
			Code:                code,
			ApplicationID:       app.ID,
			InitialValueCents:   value,
			RemainingValueCents: value,
			Status:              types.VoucherStatusActive,
			IssuedAt:            now,
			ExpiresAt:           now.Add(voucherValidity),
		}
		created, iErr := s.voucherRepo.Create(ctx, tx, []*types.Voucher{voucher})
		if iErr == nil {
			s.log.Info("issued voucher", "voucher_id", created[0].ID, "application_id", app.ID, "value_cents", value)
			return created[0], nil
		}
		if !errors.Is(iErr, pkgerrors.ErrConflict) {
			return nil, iErr
		}
		lastErr = iErr
	}
	return nil, fmt.Errorf("could not generate a unique voucher code: %w", lastErr)
}

// redemptionUpdates builds the voucher column updates for a redemption,
// closing the voucher when the balance reaches zero.
func redemptionUpdates(v *types.Voucher, vendorID uuid.UUID, amountCents int64, now time.Time) map[string]any {
	remaining := v.RemainingValueCents - amountCents
	updates := map[string]any{
		"remaining_value_cents": remaining,
		"last_redeemed_at":      now,
		"vendor_id":             vendorID,
		"updated_at":            now,
	}
	if remaining == 0 {
		updates["status"] = types.VoucherStatusRedeemed
	}
	return updates
}

// voidRestoreUpdates reverses a transaction's amount, reopening a voucher
// that the redemption had closed.
func voidRestoreUpdates(v *types.Voucher, amountCents int64, now time.Time) map[string]any {
	updates := map[string]any{
		"remaining_value_cents": v.RemainingValueCents + amountCents,
		"updated_at":            now,
	}
	if v.Status == types.VoucherStatusRedeemed {
		updates["status"] = types.VoucherStatusActive
	}
	return updates
}

// validateRedemption checks a locked voucher against a redemption amount.
func validateRedemption(v *types.Voucher, amountCents int64, now time.Time) error {
	if v.Status != types.VoucherStatusActive {
		return fmt.Errorf("voucher is %s: %w", v.Status, pkgerrors.ErrInvalidArgument)
	}
	if now.After(v.ExpiresAt) {
		return fmt.Errorf("voucher has expired: %w", pkgerrors.ErrInvalidArgument)
	}
	if amountCents > v.RemainingValueCents {
		return fmt.Errorf("amount exceeds remaining balance: %w", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

func (s *voucherService) Redeem(ctx context.Context, req RedeemRequest) (*types.VoucherTransaction, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("redemption amount must be positive: %w", pkgerrors.ErrInvalidArgument)
	}
	if req.Code == "" {
		return nil, fmt.Errorf("voucher code required: %w", pkgerrors.ErrInvalidArgument)
	}

	vendor, err := s.vendorRepo.GetByUserID(ctx, nil, req.VendorUserID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("no vendor account for user: %w", pkgerrors.ErrForbidden)
		}
		return nil, err
	}
	if vendor.Status != types.VendorStatusApproved {
		return nil, fmt.Errorf("vendor is not approved to redeem vouchers: %w", pkgerrors.ErrForbidden)
	}

	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	var result *types.VoucherTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, vErr := s.voucherRepo.GetByCodeForUpdate(ctx, tx, req.Code)
		if vErr != nil {
			if repos.IsNotFound(vErr) {
				return fmt.Errorf("voucher not found: %w", pkgerrors.ErrNotFound)
			}
			return vErr
		}
		now := time.Now()
		if vErr := validateRedemption(voucher, req.AmountCents, now); vErr != nil {
			return vErr
		}

		remaining := voucher.RemainingValueCents - req.AmountCents
		if uErr := s.voucherRepo.UpdateFields(ctx, tx, voucher.ID, redemptionUpdates(voucher, vendor.ID, req.AmountCents, now)); uErr != nil {
			return uErr
		}

		transaction := &types.VoucherTransaction{
			VoucherID:       voucher.ID,
			VendorID:        vendor.ID,
			ProcessedBy:     &req.VendorUserID,
			AmountCents:     req.AmountCents,
			ReferenceNumber: reference,
			Status:          types.TransactionCompleted,
		}
		created, tErr := s.transactionRepo.Create(ctx, tx, []*types.VoucherTransaction{transaction})
		if tErr != nil {
			if repos.IsUniqueViolation(tErr) {
				return fmt.Errorf("redemption reference %q already processed: %w", reference, pkgerrors.ErrConflict)
			}
			return tErr
		}
		result = created[0]

		meta, _ := json.Marshal(map[string]any{
			"voucher_id":      voucher.ID,
			"amount_cents":    req.AmountCents,
			"remaining_cents": remaining,
		})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &req.VendorUserID,
			Action:   "voucher_redeemed",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *voucherService) VoidTransaction(ctx context.Context, adminID, transactionID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := s.transactionRepo.GetByID(ctx, tx, transactionID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("transaction not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if transaction.Status == types.TransactionVoided {
			return fmt.Errorf("transaction already voided: %w", pkgerrors.ErrConflict)
		}

		voucher, err := s.voucherRepo.GetByID(ctx, tx, transaction.VoucherID)
		if err != nil {
			return err
		}
		// Re-lock by code so the balance update races nothing.
		voucher, err = s.voucherRepo.GetByCodeForUpdate(ctx, tx, voucher.Code)
		if err != nil {
			return err
		}

		if err := s.voucherRepo.UpdateFields(ctx, tx, voucher.ID, voidRestoreUpdates(voucher, transaction.AmountCents, time.Now())); err != nil {
			return err
		}
		if err := s.transactionRepo.UpdateFields(ctx, tx, transaction.ID, map[string]any{
			"status":     types.TransactionVoided,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]any{
			"transaction_id": transaction.ID,
			"voucher_id":     voucher.ID,
			"amount_cents":   transaction.AmountCents,
		})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "voucher_transaction_voided",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *voucherService) Cancel(ctx context.Context, adminID, voucherID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, err := s.voucherRepo.GetByID(ctx, tx, voucherID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("voucher not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if voucher.Status != types.VoucherStatusActive {
			return fmt.Errorf("only active vouchers can be cancelled: %w", pkgerrors.ErrInvalidArgument)
		}
		if err := s.voucherRepo.UpdateFields(ctx, tx, voucher.ID, map[string]any{
			"status":     types.VoucherStatusCancelled,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"voucher_id": voucher.ID})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "voucher_cancelled",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *voucherService) GetByCode(ctx context.Context, code string) (*types.Voucher, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, nil, code)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("voucher not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return voucher, nil
}

func (s *voucherService) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*types.Voucher, error) {
	return s.voucherRepo.ListByApplication(ctx, nil, applicationID)
}

func (s *voucherService) ListTransactions(ctx context.Context, voucherID uuid.UUID) ([]*types.VoucherTransaction, error) {
	return s.transactionRepo.ListByVoucher(ctx, nil, voucherID)
}

func (s *voucherService) ExpireSweep(ctx context.Context) (int, error) {
	expired, err := s.voucherRepo.ListExpiredActive(ctx, nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, voucher := range expired {
		sweepErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.voucherRepo.UpdateFields(ctx, tx, voucher.ID, map[string]any{
				"status":     types.VoucherStatusExpired,
				"updated_at": time.Now(),
			}); err != nil {
				return err
			}
			meta, _ := json.Marshal(map[string]any{
				"voucher_id":      voucher.ID,
				"remaining_cents": voucher.RemainingValueCents,
			})
			_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
				Action:   "voucher_expired",
				Metadata: datatypes.JSON(meta),
			}})
			return eErr
		})
		if sweepErr != nil {
			s.log.Error("voucher expiry sweep failed for voucher", "voucher_id", voucher.ID, "error", sweepErr)
			continue
		}
		count++
	}
	return count, nil
}

func (s *voucherService) OutstandingBalanceCents(ctx context.Context) (int64, error) {
	return s.voucherRepo.OutstandingBalanceCents(ctx, nil)
}
