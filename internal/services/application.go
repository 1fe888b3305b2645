package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// allowedTransitions is the application status machine. Any edge not listed
// here is rejected, so every status change funnels through one guard.
var allowedTransitions = map[string]map[string]bool{
	types.AppStatusInProgress: {
		types.AppStatusAwaitingDocuments: true,
		types.AppStatusArchived:          true,
	},
	types.AppStatusAwaitingDocuments: {
		types.AppStatusInReview: true,
		types.AppStatusArchived: true,
	},
	types.AppStatusNeedsInformation: {
		types.AppStatusInReview: true,
		types.AppStatusArchived: true,
	},
	types.AppStatusInReview: {
		types.AppStatusNeedsInformation:      true,
		types.AppStatusAwaitingCertification: true,
		types.AppStatusApproved:              true,
		types.AppStatusRejected:              true,
		types.AppStatusArchived:              true,
	},
	types.AppStatusAwaitingCertification: {
		types.AppStatusNeedsInformation: true,
		types.AppStatusApproved:         true,
		types.AppStatusRejected:         true,
		types.AppStatusArchived:         true,
	},
	types.AppStatusApproved: {},
	types.AppStatusRejected: {},
	types.AppStatusArchived: {},
}

// CanTransition reports whether the status machine allows from → to.
func CanTransition(from, to string) bool {
	return allowedTransitions[from][to]
}

// Income eligibility: a base threshold for a household of one plus a fixed
// amount per additional member.
const (
	incomeThresholdBaseCents      int64 = 3_000_000
	incomeThresholdPerMemberCents int64 = 800_000
	maxHouseholdSize                    = 20
)

func IncomeThresholdCents(householdSize int) int64 {
	if householdSize < 1 {
		householdSize = 1
	}
	return incomeThresholdBaseCents + incomeThresholdPerMemberCents*int64(householdSize-1)
}

type CreateApplicationRequest struct {
	// ForUserID targets a dependent's application; zero means the actor's own.
	ForUserID             uuid.UUID
	HouseholdSize         int
	AnnualIncomeCents     int64
	StateResident         bool
	SelfCertifyDisability bool
}

type UpdateApplicationRequest struct {
	HouseholdSize         *int
	AnnualIncomeCents     *int64
	StateResident         *bool
	SelfCertifyDisability *bool
	TermsAccepted         *bool
	ProviderName          *string
	ProviderEmail         *string
	ProviderPhone         *string
	ProviderFax           *string
}

type UploadProofRequest struct {
	Kind        string
	FileName    string
	ContentType string
	ByteSize    int64
	StoragePath string
}

type ApplicationService interface {
	CreateDraft(ctx context.Context, actorID uuid.UUID, req CreateApplicationRequest) (*types.Application, error)
	UpdateDraft(ctx context.Context, actorID uuid.UUID, appID uuid.UUID, req UpdateApplicationRequest) (*types.Application, error)
	Submit(ctx context.Context, actorID uuid.UUID, appID uuid.UUID) (*types.Application, error)
	UploadProof(ctx context.Context, actorID uuid.UUID, appID uuid.UUID, req UploadProofRequest) (*types.Proof, error)
	Get(ctx context.Context, actorID uuid.UUID, actorRole string, appID uuid.UUID) (*types.Application, error)
	ListOwn(ctx context.Context, actorID uuid.UUID) ([]*types.Application, error)
	AdminList(ctx context.Context, filter repos.ApplicationFilter) ([]*types.Application, int64, error)
	Reject(ctx context.Context, adminID uuid.UUID, appID uuid.UUID, note string) error
	// Transition moves an application along an allowed edge inside the
	// caller's transaction. The application must be loaded under a row lock.
	Transition(ctx context.Context, tx *gorm.DB, app *types.Application, to string, extra map[string]any) error
	// EvaluateAutoApproval approves the application and issues its voucher
	// when all three eligibility sub-statuses are approved. Must run inside a
	// transaction holding the application row lock. Reports whether it fired.
	EvaluateAutoApproval(ctx context.Context, tx *gorm.DB, appID uuid.UUID) (bool, error)
	// ArchiveStale archives in_progress applications idle past the cutoff.
	ArchiveStale(ctx context.Context, cutoffDays int) (int, error)
}

type applicationService struct {
	db            *gorm.DB
	log           *logger.Logger
	appRepo       repos.ApplicationRepo
	proofRepo     repos.ProofRepo
	userRepo      repos.UserRepo
	guardianRepo  repos.GuardianRelationshipRepo
	eventRepo     repos.EventRepo
	vouchers      VoucherService
	notifications NotificationService
}

func NewApplicationService(
	db *gorm.DB,
	log *logger.Logger,
	appRepo repos.ApplicationRepo,
	proofRepo repos.ProofRepo,
	userRepo repos.UserRepo,
	guardianRepo repos.GuardianRelationshipRepo,
	eventRepo repos.EventRepo,
	vouchers VoucherService,
	notifications NotificationService,
) ApplicationService {
	serviceLog := log.With("service", "ApplicationService")
	return &applicationService{
		db:            db,
		log:           serviceLog,
		appRepo:       appRepo,
		proofRepo:     proofRepo,
		userRepo:      userRepo,
		guardianRepo:  guardianRepo,
		eventRepo:     eventRepo,
		vouchers:      vouchers,
		notifications: notifications,
	}
}

// applicationCode is the short human-facing reference printed in emails.
func applicationCode(id uuid.UUID) string {
	return "APP-" + strings.ToUpper(id.String()[:8])
}

// authorize returns the application when the actor owns it, is a guardian of
// its owner, or holds a staff role.
func (s *applicationService) authorize(ctx context.Context, actorID uuid.UUID, actorRole string, appID uuid.UUID) (*types.Application, error) {
	app, err := s.appRepo.GetByID(ctx, nil, appID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("application not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	if actorRole == types.RoleAdmin || actorRole == types.RoleEvaluator {
		return app, nil
	}
	if app.UserID == actorID {
		return app, nil
	}
	isGuardian, err := s.guardianRepo.Exists(ctx, nil, actorID, app.UserID)
	if err != nil {
		return nil, err
	}
	if !isGuardian {
		return nil, fmt.Errorf("application belongs to another user: %w", pkgerrors.ErrForbidden)
	}
	return app, nil
}

func (s *applicationService) CreateDraft(ctx context.Context, actorID uuid.UUID, req CreateApplicationRequest) (*types.Application, error) {
	subjectID := actorID
	var managingGuardianID *uuid.UUID
	if req.ForUserID != uuid.Nil && req.ForUserID != actorID {
		isGuardian, err := s.guardianRepo.Exists(ctx, nil, actorID, req.ForUserID)
		if err != nil {
			return nil, err
		}
		if !isGuardian {
			return nil, fmt.Errorf("not a guardian of the target user: %w", pkgerrors.ErrForbidden)
		}
		subjectID = req.ForUserID
		managingGuardianID = &actorID
	}

	existing, err := s.appRepo.ListByUser(ctx, nil, subjectID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if !a.Terminal() {
			return nil, fmt.Errorf("user already has an open application: %w", pkgerrors.ErrConflict)
		}
	}

	if req.HouseholdSize < 1 || req.HouseholdSize > maxHouseholdSize {
		return nil, fmt.Errorf("household size must be between 1 and %d: %w", maxHouseholdSize, pkgerrors.ErrInvalidArgument)
	}

	now := time.Now()
	app := &types.Application{
		UserID:                subjectID,
		ManagingGuardianID:    managingGuardianID,
		Status:                types.AppStatusInProgress,
		HouseholdSize:         req.HouseholdSize,
		AnnualIncomeCents:     req.AnnualIncomeCents,
		StateResident:         req.StateResident,
		SelfCertifyDisability: req.SelfCertifyDisability,
		LastActivityAt:        &now,
	}
	created, err := s.appRepo.Create(ctx, nil, []*types.Application{app})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *applicationService) UpdateDraft(ctx context.Context, actorID uuid.UUID, appID uuid.UUID, req UpdateApplicationRequest) (*types.Application, error) {
	app, err := s.authorize(ctx, actorID, types.RoleConstituent, appID)
	if err != nil {
		return nil, err
	}
	switch app.Status {
	case types.AppStatusInProgress, types.AppStatusAwaitingDocuments, types.AppStatusNeedsInformation:
	default:
		return nil, fmt.Errorf("application can no longer be edited: %w", pkgerrors.ErrInvalidArgument)
	}

	now := time.Now()
	updates := map[string]any{"last_activity_at": now, "updated_at": now}
	if req.HouseholdSize != nil {
		if *req.HouseholdSize < 1 || *req.HouseholdSize > maxHouseholdSize {
			return nil, fmt.Errorf("household size must be between 1 and %d: %w", maxHouseholdSize, pkgerrors.ErrInvalidArgument)
		}
		updates["household_size"] = *req.HouseholdSize
	}
	if req.AnnualIncomeCents != nil {
		if *req.AnnualIncomeCents < 0 {
			return nil, fmt.Errorf("annual income cannot be negative: %w", pkgerrors.ErrInvalidArgument)
		}
		updates["annual_income_cents"] = *req.AnnualIncomeCents
	}
	if req.StateResident != nil {
		updates["state_resident"] = *req.StateResident
	}
	if req.SelfCertifyDisability != nil {
		updates["self_certify_disability"] = *req.SelfCertifyDisability
	}
	if req.TermsAccepted != nil {
		updates["terms_accepted"] = *req.TermsAccepted
	}
	if req.ProviderName != nil {
		updates["provider_name"] = *req.ProviderName
	}
	if req.ProviderEmail != nil {
		updates["provider_email"] = *req.ProviderEmail
	}
	if req.ProviderPhone != nil {
		updates["provider_phone"] = *req.ProviderPhone
	}
	if req.ProviderFax != nil {
		updates["provider_fax"] = *req.ProviderFax
	}
	if err := s.appRepo.UpdateFields(ctx, nil, app.ID, updates); err != nil {
		return nil, err
	}
	return s.appRepo.GetByID(ctx, nil, app.ID)
}

// validateForSubmission gates the draft → awaiting_documents edge.
func validateForSubmission(app *types.Application) error {
	if !app.StateResident {
		return fmt.Errorf("applicant must be a state resident: %w", pkgerrors.ErrInvalidArgument)
	}
	if !app.TermsAccepted {
		return fmt.Errorf("program terms must be accepted: %w", pkgerrors.ErrInvalidArgument)
	}
	if app.HouseholdSize < 1 || app.HouseholdSize > maxHouseholdSize {
		return fmt.Errorf("household size must be between 1 and %d: %w", maxHouseholdSize, pkgerrors.ErrInvalidArgument)
	}
	if threshold := IncomeThresholdCents(app.HouseholdSize); app.AnnualIncomeCents > threshold {
		return fmt.Errorf("annual income exceeds the program threshold for this household size: %w", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

func (s *applicationService) Submit(ctx context.Context, actorID uuid.UUID, appID uuid.UUID) (*types.Application, error) {
	if _, err := s.authorize(ctx, actorID, types.RoleConstituent, appID); err != nil {
		return nil, err
	}

	var submitted *types.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, appID)
		if err != nil {
			return err
		}
		if app.Status != types.AppStatusInProgress {
			return fmt.Errorf("only draft applications can be submitted: %w", pkgerrors.ErrInvalidArgument)
		}
		if err := validateForSubmission(app); err != nil {
			return err
		}

		now := time.Now()
		if err := s.Transition(ctx, tx, app, types.AppStatusAwaitingDocuments, map[string]any{
			"submitted_at": now,
		}); err != nil {
			return err
		}

		owner, err := s.userRepo.GetByID(ctx, tx, app.UserID)
		if err != nil {
			return err
		}
		_, nErr := s.notifications.Notify(ctx, tx, NotifyRequest{
			Recipient:      owner,
			ActorID:        &actorID,
			Action:         "application_submitted",
			NotifiableType: "Application",
			NotifiableID:   app.ID,
			TemplateName:   "application_submitted",
			Vars: map[string]string{
				"first_name":       owner.FirstName,
				"last_name":        owner.LastName,
				"application_code": applicationCode(app.ID),
			},
		})
		if nErr != nil {
			return nErr
		}
		submitted = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.appRepo.GetByID(ctx, nil, submitted.ID)
}

func (s *applicationService) UploadProof(ctx context.Context, actorID uuid.UUID, appID uuid.UUID, req UploadProofRequest) (*types.Proof, error) {
	if !types.ValidProofKind(req.Kind) {
		return nil, fmt.Errorf("unknown proof kind %q: %w", req.Kind, pkgerrors.ErrInvalidArgument)
	}
	if req.FileName == "" || req.StoragePath == "" {
		return nil, fmt.Errorf("file name and storage path required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.authorize(ctx, actorID, types.RoleConstituent, appID); err != nil {
		return nil, err
	}

	var created *types.Proof
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, appID)
		if err != nil {
			return err
		}
		switch app.Status {
		case types.AppStatusAwaitingDocuments, types.AppStatusNeedsInformation:
		default:
			return fmt.Errorf("application is not accepting documents: %w", pkgerrors.ErrInvalidArgument)
		}

		proof := &types.Proof{
			ApplicationID: app.ID,
			Kind:          req.Kind,
			Status:        types.ProofStatusNotReviewed,
			FileName:      req.FileName,
			ContentType:   req.ContentType,
			ByteSize:      req.ByteSize,
			StoragePath:   req.StoragePath,
			SubmittedAt:   time.Now(),
		}
		proofs, err := s.proofRepo.Create(ctx, tx, []*types.Proof{proof})
		if err != nil {
			return err
		}
		created = proofs[0]

		// A fresh upload resets that kind's review status.
		now := time.Now()
		updates := map[string]any{"last_activity_at": now, "updated_at": now}
		switch req.Kind {
		case types.ProofKindIncome:
			updates["income_proof_status"] = types.ProofStatusNotReviewed
		case types.ProofKindResidency:
			updates["residency_proof_status"] = types.ProofStatusNotReviewed
		}
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, updates); err != nil {
			return err
		}

		// Both kinds on file moves the application into review.
		all, err := s.proofRepo.ListByApplication(ctx, tx, app.ID)
		if err != nil {
			return err
		}
		kinds := map[string]bool{req.Kind: true}
		for _, p := range all {
			kinds[p.Kind] = true
		}
		if kinds[types.ProofKindIncome] && kinds[types.ProofKindResidency] &&
			CanTransition(app.Status, types.AppStatusInReview) {
			if err := s.Transition(ctx, tx, app, types.AppStatusInReview, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *applicationService) Get(ctx context.Context, actorID uuid.UUID, actorRole string, appID uuid.UUID) (*types.Application, error) {
	return s.authorize(ctx, actorID, actorRole, appID)
}

func (s *applicationService) ListOwn(ctx context.Context, actorID uuid.UUID) ([]*types.Application, error) {
	own, err := s.appRepo.ListByUser(ctx, nil, actorID)
	if err != nil {
		return nil, err
	}
	rels, err := s.guardianRepo.ListByGuardian(ctx, nil, actorID)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		dependents, dErr := s.appRepo.ListByUser(ctx, nil, rel.DependentID)
		if dErr != nil {
			return nil, dErr
		}
		own = append(own, dependents...)
	}
	return own, nil
}

func (s *applicationService) AdminList(ctx context.Context, filter repos.ApplicationFilter) ([]*types.Application, int64, error) {
	return s.appRepo.List(ctx, nil, filter)
}

func (s *applicationService) Reject(ctx context.Context, adminID uuid.UUID, appID uuid.UUID, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, appID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("application not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		now := time.Now()
		if err := s.Transition(ctx, tx, app, types.AppStatusRejected, map[string]any{
			"decided_at": now,
		}); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]any{"application_id": app.ID, "note": note})
		_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &adminID,
			Action:   "application_rejected",
			Metadata: datatypes.JSON(meta),
		}})
		return eErr
	})
}

func (s *applicationService) Transition(ctx context.Context, tx *gorm.DB, app *types.Application, to string, extra map[string]any) error {
	if !CanTransition(app.Status, to) {
		return fmt.Errorf("cannot move application from %s to %s: %w", app.Status, to, pkgerrors.ErrInvalidArgument)
	}
	now := time.Now()
	updates := map[string]any{
		"status":           to,
		"last_activity_at": now,
		"updated_at":       now,
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := s.appRepo.UpdateFields(ctx, tx, app.ID, updates); err != nil {
		return err
	}
	s.log.Info("application transitioned", "application_id", app.ID, "from", app.Status, "to", to)
	app.Status = to
	if t, ok := updates["last_activity_at"].(time.Time); ok {
		app.LastActivityAt = &t
	}
	return nil
}

func (s *applicationService) EvaluateAutoApproval(ctx context.Context, tx *gorm.DB, appID uuid.UUID) (bool, error) {
	app, err := s.appRepo.GetByIDForUpdate(ctx, tx, appID)
	if err != nil {
		return false, err
	}
	if app.Terminal() || app.Status == types.AppStatusApproved {
		return false, nil
	}
	if !app.ReadyForAutoApproval() {
		return false, nil
	}
	if !CanTransition(app.Status, types.AppStatusApproved) {
		return false, nil
	}

	now := time.Now()
	if err := s.Transition(ctx, tx, app, types.AppStatusApproved, map[string]any{
		"decided_at": now,
	}); err != nil {
		return false, err
	}

	voucher, err := s.vouchers.IssueForApplication(ctx, tx, app)
	if err != nil {
		return false, err
	}

	meta, _ := json.Marshal(map[string]any{
		"application_id": app.ID,
		"voucher_id":     voucher.ID,
	})
	if _, err := s.eventRepo.Create(ctx, tx, []*types.Event{{
		UserID:   &app.UserID,
		Action:   "application_auto_approved",
		Metadata: datatypes.JSON(meta),
	}}); err != nil {
		return false, err
	}

	owner, err := s.userRepo.GetByID(ctx, tx, app.UserID)
	if err != nil {
		return false, err
	}
	_, err = s.notifications.Notify(ctx, tx, NotifyRequest{
		Recipient:      owner,
		Action:         "application_approved",
		NotifiableType: "Application",
		NotifiableID:   app.ID,
		TemplateName:   "application_approved",
		Vars: map[string]string{
			"first_name":     owner.FirstName,
			"voucher_code":   voucher.Code,
			"voucher_value":  fmt.Sprintf("$%.2f", float64(voucher.InitialValueCents)/100),
			"voucher_expiry": voucher.ExpiresAt.Format("January 2, 2006"),
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *applicationService) ArchiveStale(ctx context.Context, cutoffDays int) (int, error) {
	stale, err := s.appRepo.ListStaleByStatus(ctx, nil, types.AppStatusInProgress, cutoffDays)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, app := range stale {
		archiveErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, lErr := s.appRepo.GetByIDForUpdate(ctx, tx, app.ID)
			if lErr != nil {
				return lErr
			}
			if locked.Status != types.AppStatusInProgress {
				return nil
			}
			if tErr := s.Transition(ctx, tx, locked, types.AppStatusArchived, nil); tErr != nil {
				return tErr
			}
			meta, _ := json.Marshal(map[string]any{"application_id": locked.ID, "reason": "inactivity"})
			_, eErr := s.eventRepo.Create(ctx, tx, []*types.Event{{
				Action:   "application_archived",
				Metadata: datatypes.JSON(meta),
			}})
			return eErr
		})
		if archiveErr != nil {
			s.log.Error("stale application archive failed", "application_id", app.ID, "error", archiveErr)
			continue
		}
		count++
	}
	return count, nil
}
