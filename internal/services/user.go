package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

type VendorRegistration struct {
	BusinessName string
	ContactEmail string
	ContactPhone string
	ContactFax   string
}

// ProgramReport is the admin dashboard summary.
type ProgramReport struct {
	ApplicationsByStatus    map[string]int64 `json:"applications_by_status"`
	OutstandingBalanceCents int64            `json:"outstanding_balance_cents"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	List(ctx context.Context, filter repos.UserFilter) ([]*types.User, int64, error)
	// Suspend blocks the account and revokes its sessions.
	Suspend(ctx context.Context, adminID, userID uuid.UUID) error
	Reactivate(ctx context.Context, adminID, userID uuid.UUID) error
	AddGuardian(ctx context.Context, adminID, guardianID, dependentID uuid.UUID, relationshipType string) (*types.GuardianRelationship, error)
	RemoveGuardian(ctx context.Context, adminID, relationshipID uuid.UUID) error
	ListDependents(ctx context.Context, guardianID uuid.UUID) ([]*types.GuardianRelationship, error)
	RegisterVendor(ctx context.Context, userID uuid.UUID, reg VendorRegistration) (*types.Vendor, error)
	ApproveVendor(ctx context.Context, adminID, vendorID uuid.UUID) error
	SuspendVendor(ctx context.Context, adminID, vendorID uuid.UUID) error
	ListVendors(ctx context.Context, status string) ([]*types.Vendor, error)
	Report(ctx context.Context) (*ProgramReport, error)
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	guardianRepo  repos.GuardianRelationshipRepo
	vendorRepo    repos.VendorRepo
	appRepo       repos.ApplicationRepo
	voucherRepo   repos.VoucherRepo
	eventRepo     repos.EventRepo
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	guardianRepo repos.GuardianRelationshipRepo,
	vendorRepo repos.VendorRepo,
	appRepo repos.ApplicationRepo,
	voucherRepo repos.VoucherRepo,
	eventRepo repos.EventRepo,
) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		guardianRepo:  guardianRepo,
		vendorRepo:    vendorRepo,
		appRepo:       appRepo,
		voucherRepo:   voucherRepo,
		eventRepo:     eventRepo,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("user not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, filter repos.UserFilter) ([]*types.User, int64, error) {
	return s.userRepo.List(ctx, nil, filter)
}

func (s *userService) Suspend(ctx context.Context, adminID, userID uuid.UUID) error {
	if adminID == userID {
		return fmt.Errorf("cannot suspend your own account: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("user not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if user.Status == types.UserStatusSuspended {
			return fmt.Errorf("user already suspended: %w", pkgerrors.ErrConflict)
		}
		if err := s.userRepo.UpdateFields(ctx, tx, userID, map[string]any{
			"status":     types.UserStatusSuspended,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}
		if err := s.userTokenRepo.DeleteByUserID(ctx, tx, userID); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"target_user_id": userID})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "user_suspended",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *userService) Reactivate(ctx context.Context, adminID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("user not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if user.Status != types.UserStatusSuspended {
			return fmt.Errorf("user is not suspended: %w", pkgerrors.ErrInvalidArgument)
		}
		if err := s.userRepo.UpdateFields(ctx, tx, userID, map[string]any{
			"status":     types.UserStatusActive,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"target_user_id": userID})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "user_reactivated",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *userService) AddGuardian(ctx context.Context, adminID, guardianID, dependentID uuid.UUID, relationshipType string) (*types.GuardianRelationship, error) {
	if !types.ValidRelationshipType(relationshipType) {
		return nil, fmt.Errorf("invalid relationship type %q: %w", relationshipType, pkgerrors.ErrInvalidArgument)
	}
	if guardianID == dependentID {
		return nil, fmt.Errorf("a user cannot be their own guardian: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.userRepo.GetByID(ctx, nil, guardianID); err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("guardian not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, nil, dependentID); err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("dependent not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	exists, err := s.guardianRepo.Exists(ctx, nil, guardianID, dependentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("relationship already exists: %w", pkgerrors.ErrConflict)
	}

	var created *types.GuardianRelationship
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels, cErr := s.guardianRepo.Create(ctx, tx, []*types.GuardianRelationship{{
			GuardianID:       guardianID,
			DependentID:      dependentID,
			RelationshipType: relationshipType,
		}})
		if cErr != nil {
			if repos.IsUniqueViolation(cErr) {
				return fmt.Errorf("relationship already exists: %w", pkgerrors.ErrConflict)
			}
			return cErr
		}
		created = rels[0]
		meta, _ := json.Marshal(map[string]any{
			"guardian_id":       guardianID,
			"dependent_id":      dependentID,
			"relationship_type": relationshipType,
		})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "guardian_added",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *userService) RemoveGuardian(ctx context.Context, adminID, relationshipID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guardianRepo.Delete(ctx, tx, relationshipID); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"relationship_id": relationshipID})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "guardian_removed",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *userService) ListDependents(ctx context.Context, guardianID uuid.UUID) ([]*types.GuardianRelationship, error) {
	return s.guardianRepo.ListByGuardian(ctx, nil, guardianID)
}

func (s *userService) RegisterVendor(ctx context.Context, userID uuid.UUID, reg VendorRegistration) (*types.Vendor, error) {
	if reg.BusinessName == "" {
		return nil, fmt.Errorf("business name required: %w", pkgerrors.ErrInvalidArgument)
	}
	reg.ContactEmail = utils.NormalizeEmail(reg.ContactEmail)
	if err := utils.ValidateEmail(reg.ContactEmail); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.vendorRepo.GetByUserID(ctx, nil, userID); err == nil {
		return nil, fmt.Errorf("user already has a vendor account: %w", pkgerrors.ErrConflict)
	} else if !repos.IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	created, err := s.vendorRepo.Create(ctx, nil, []*types.Vendor{{
		UserID:          userID,
		BusinessName:    reg.BusinessName,
		ContactEmail:    reg.ContactEmail,
		ContactPhone:    utils.NormalizePhone(reg.ContactPhone),
		ContactFax:      utils.NormalizePhone(reg.ContactFax),
		Status:          types.VendorStatusPending,
		TermsAcceptedAt: &now,
	}})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user already has a vendor account: %w", pkgerrors.ErrConflict)
		}
		return nil, err
	}
	return created[0], nil
}

func (s *userService) setVendorStatus(ctx context.Context, adminID, vendorID uuid.UUID, status, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendor, err := s.vendorRepo.GetByID(ctx, tx, vendorID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("vendor not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if vendor.Status == status {
			return fmt.Errorf("vendor already %s: %w", status, pkgerrors.ErrConflict)
		}
		if err := s.vendorRepo.UpdateFields(ctx, tx, vendorID, map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"vendor_id": vendorID})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   action,
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *userService) ApproveVendor(ctx context.Context, adminID, vendorID uuid.UUID) error {
	return s.setVendorStatus(ctx, adminID, vendorID, types.VendorStatusApproved, "vendor_approved")
}

func (s *userService) SuspendVendor(ctx context.Context, adminID, vendorID uuid.UUID) error {
	return s.setVendorStatus(ctx, adminID, vendorID, types.VendorStatusSuspended, "vendor_suspended")
}

func (s *userService) ListVendors(ctx context.Context, status string) ([]*types.Vendor, error) {
	return s.vendorRepo.List(ctx, nil, status)
}

func (s *userService) Report(ctx context.Context) (*ProgramReport, error) {
	counts, err := s.appRepo.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	balance, err := s.voucherRepo.OutstandingBalanceCents(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ProgramReport{
		ApplicationsByStatus:    counts,
		OutstandingBalanceCents: balance,
	}, nil
}
