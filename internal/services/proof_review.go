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
)

// CertificationRequester submits the medical certification request once both
// proofs clear. Implemented by the certification service; injected as an
// interface so review and certification stay separately constructible.
type CertificationRequester interface {
	RequestCertification(ctx context.Context, tx *gorm.DB, app *types.Application) error
}

type ProofReviewService interface {
	ListPending(ctx context.Context, limit, offset int) ([]*types.Proof, int64, error)
	Approve(ctx context.Context, reviewerID, proofID uuid.UUID) error
	// Reject requires a rejection reason whose category matches the proof
	// kind. Reaching the rejection cap archives the application.
	Reject(ctx context.Context, reviewerID, proofID, reasonID uuid.UUID) error
}

type proofReviewService struct {
	db            *gorm.DB
	log           *logger.Logger
	proofRepo     repos.ProofRepo
	appRepo       repos.ApplicationRepo
	userRepo      repos.UserRepo
	reasonRepo    repos.RejectionReasonRepo
	eventRepo     repos.EventRepo
	applications  ApplicationService
	certifier     CertificationRequester
	notifications NotificationService
}

func NewProofReviewService(
	db *gorm.DB,
	log *logger.Logger,
	proofRepo repos.ProofRepo,
	appRepo repos.ApplicationRepo,
	userRepo repos.UserRepo,
	reasonRepo repos.RejectionReasonRepo,
	eventRepo repos.EventRepo,
	applications ApplicationService,
	certifier CertificationRequester,
	notifications NotificationService,
) ProofReviewService {
	serviceLog := log.With("service", "ProofReviewService")
	return &proofReviewService{
		db:            db,
		log:           serviceLog,
		proofRepo:     proofRepo,
		appRepo:       appRepo,
		userRepo:      userRepo,
		reasonRepo:    reasonRepo,
		eventRepo:     eventRepo,
		applications:  applications,
		certifier:     certifier,
		notifications: notifications,
	}
}

func (s *proofReviewService) ListPending(ctx context.Context, limit, offset int) ([]*types.Proof, int64, error) {
	return s.proofRepo.ListPending(ctx, nil, limit, offset)
}

func proofStatusColumn(kind string) string {
	if kind == types.ProofKindIncome {
		return "income_proof_status"
	}
	return "residency_proof_status"
}

func (s *proofReviewService) Approve(ctx context.Context, reviewerID, proofID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proof, err := s.proofRepo.GetByID(ctx, tx, proofID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("proof not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if proof.Status != types.ProofStatusNotReviewed {
			return fmt.Errorf("proof already reviewed: %w", pkgerrors.ErrConflict)
		}

		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, proof.ApplicationID)
		if err != nil {
			return err
		}
		if app.Terminal() {
			return fmt.Errorf("application is %s: %w", app.Status, pkgerrors.ErrInvalidArgument)
		}

		now := time.Now()
		if err := s.proofRepo.UpdateFields(ctx, tx, proof.ID, map[string]any{
			"status":      types.ProofStatusApproved,
			"reviewed_at": now,
			"reviewed_by": reviewerID,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
			proofStatusColumn(proof.Kind): types.ProofStatusApproved,
			"last_activity_at":            now,
			"updated_at":                  now,
		}); err != nil {
			return err
		}
		switch proof.Kind {
		case types.ProofKindIncome:
			app.IncomeProofStatus = types.ProofStatusApproved
		case types.ProofKindResidency:
			app.ResidencyProofStatus = types.ProofStatusApproved
		}

		meta, _ := json.Marshal(map[string]any{
			"proof_id":       proof.ID,
			"application_id": app.ID,
			"kind":           proof.Kind,
		})
		if _, err := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &reviewerID,
			Action:   "proof_approved",
			Metadata: datatypes.JSON(meta),
		}}); err != nil {
			return err
		}

		bothApproved := app.IncomeProofStatus == types.ProofStatusApproved &&
			app.ResidencyProofStatus == types.ProofStatusApproved
		if bothApproved && app.MedicalCertStatus == types.CertStatusNotRequested {
			if err := s.certifier.RequestCertification(ctx, tx, app); err != nil {
				return err
			}
		}

		if _, err := s.applications.EvaluateAutoApproval(ctx, tx, app.ID); err != nil {
			return err
		}

		owner, err := s.userRepo.GetByID(ctx, tx, app.UserID)
		if err != nil {
			return err
		}
		_, nErr := s.notifications.Notify(ctx, tx, NotifyRequest{
			Recipient:      owner,
			ActorID:        &reviewerID,
			Action:         "proof_approved",
			NotifiableType: "Proof",
			NotifiableID:   proof.ID,
			TemplateName:   "proof_approved",
			Vars: map[string]string{
				"first_name": owner.FirstName,
				"proof_kind": proof.Kind,
			},
		})
		return nErr
	})
}

// nextStatusAfterRejection picks where the application lands once a rejection
// is recorded: reaching the cap archives it, otherwise it goes back to the
// constituent when the status machine allows. Empty means stay put.
func nextStatusAfterRejection(currentStatus string, rejectionCount int) string {
	if rejectionCount >= types.MaxProofRejections {
		return types.AppStatusArchived
	}
	if CanTransition(currentStatus, types.AppStatusNeedsInformation) {
		return types.AppStatusNeedsInformation
	}
	return ""
}

func (s *proofReviewService) Reject(ctx context.Context, reviewerID, proofID, reasonID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proof, err := s.proofRepo.GetByID(ctx, tx, proofID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("proof not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if proof.Status != types.ProofStatusNotReviewed {
			return fmt.Errorf("proof already reviewed: %w", pkgerrors.ErrConflict)
		}

		reason, err := s.reasonRepo.GetByID(ctx, tx, reasonID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("rejection reason not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if want := types.CategoryForProofKind(proof.Kind); reason.Category != want {
			return fmt.Errorf("rejection reason category %s does not match %s proof: %w",
				reason.Category, proof.Kind, pkgerrors.ErrInvalidArgument)
		}

		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, proof.ApplicationID)
		if err != nil {
			return err
		}
		if app.Terminal() {
			return fmt.Errorf("application is %s: %w", app.Status, pkgerrors.ErrInvalidArgument)
		}

		now := time.Now()
		if err := s.proofRepo.UpdateFields(ctx, tx, proof.ID, map[string]any{
			"status":              types.ProofStatusRejected,
			"reviewed_at":         now,
			"reviewed_by":         reviewerID,
			"rejection_reason_id": reason.ID,
			"updated_at":          now,
		}); err != nil {
			return err
		}

		newCount := app.TotalRejectionCount + 1
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
			proofStatusColumn(proof.Kind): types.ProofStatusRejected,
			"total_rejection_count":       newCount,
			"last_activity_at":            now,
			"updated_at":                  now,
		}); err != nil {
			return err
		}
		app.TotalRejectionCount = newCount

		meta, _ := json.Marshal(map[string]any{
			"proof_id":        proof.ID,
			"application_id":  app.ID,
			"kind":            proof.Kind,
			"reason_code":     reason.Code,
			"rejection_count": newCount,
		})
		if _, err := s.eventRepo.Create(ctx, tx, []*types.Event{{
			UserID:   &reviewerID,
			Action:   "proof_rejected",
			Metadata: datatypes.JSON(meta),
		}}); err != nil {
			return err
		}

		if next := nextStatusAfterRejection(app.Status, newCount); next != "" {
			if err := s.applications.Transition(ctx, tx, app, next, nil); err != nil {
				return err
			}
		}

		owner, err := s.userRepo.GetByID(ctx, tx, app.UserID)
		if err != nil {
			return err
		}
		_, nErr := s.notifications.Notify(ctx, tx, NotifyRequest{
			Recipient:      owner,
			ActorID:        &reviewerID,
			Action:         "proof_rejected",
			NotifiableType: "Proof",
			NotifiableID:   proof.ID,
			TemplateName:   "proof_rejected",
			Vars: map[string]string{
				"first_name":       owner.FirstName,
				"proof_kind":       proof.Kind,
				"rejection_reason": reason.Description,
				"remedy":           reason.Remedy,
			},
		})
		return nErr
	})
}
