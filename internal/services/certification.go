package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/clients/docuseal"
	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// Signing vendor webhook event names.
const (
	ESignEventCompleted = "submission.completed"
	ESignEventDeclined  = "submission.declined"
	ESignEventExpired   = "submission.expired"
)

// ESignWebhookEvent is the decoded e-signature webhook body.
type ESignWebhookEvent struct {
	EventType string         `json:"event_type"`
	Data      ESignEventData `json:"data"`
}

type ESignEventData struct {
	ID            int             `json:"id"`
	Status        string          `json:"status"`
	DeclineReason string          `json:"decline_reason,omitempty"`
	Documents     []ESignDocument `json:"documents,omitempty"`
}

type ESignDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type CertificationRequestPayload struct {
	ApplicationID uuid.UUID `json:"application_id"`
}

type CertificationDownloadPayload struct {
	CertificationID uuid.UUID `json:"certification_id"`
	DocumentURL     string    `json:"document_url"`
}

type CertificationService interface {
	CertificationRequester
	// SubmitSigningRequest performs the vendor call for a queued
	// certification request. Job handlers call it outside any transaction.
	SubmitSigningRequest(ctx context.Context, applicationID uuid.UUID) error
	// ProcessESignEvent applies a signature-verified webhook event. It never
	// fails the webhook for domain problems; those become audit events.
	ProcessESignEvent(ctx context.Context, event ESignWebhookEvent) error
	// DownloadSignedDocument fetches and stores the signed form, marking the
	// certification received.
	DownloadSignedDocument(ctx context.Context, certificationID uuid.UUID, documentURL string) error
	GetByApplication(ctx context.Context, applicationID uuid.UUID) (*types.MedicalCertification, error)
	Approve(ctx context.Context, reviewerID, applicationID uuid.UUID) error
	Reject(ctx context.Context, reviewerID, applicationID, reasonID uuid.UUID) error
}

type certificationService struct {
	db            *gorm.DB
	log           *logger.Logger
	certRepo      repos.MedicalCertificationRepo
	appRepo       repos.ApplicationRepo
	userRepo      repos.UserRepo
	reasonRepo    repos.RejectionReasonRepo
	eventRepo     repos.EventRepo
	esign         docuseal.Client
	templateID    int
	mediaRoot     string
	applications  ApplicationService
	notifications NotificationService
	enqueuer      JobEnqueuer
}

func NewCertificationService(
	db *gorm.DB,
	log *logger.Logger,
	certRepo repos.MedicalCertificationRepo,
	appRepo repos.ApplicationRepo,
	userRepo repos.UserRepo,
	reasonRepo repos.RejectionReasonRepo,
	eventRepo repos.EventRepo,
	esign docuseal.Client,
	templateID int,
	mediaRoot string,
	applications ApplicationService,
	notifications NotificationService,
	enqueuer JobEnqueuer,
) CertificationService {
	serviceLog := log.With("service", "CertificationService")
	return &certificationService{
		db:            db,
		log:           serviceLog,
		certRepo:      certRepo,
		appRepo:       appRepo,
		userRepo:      userRepo,
		reasonRepo:    reasonRepo,
		eventRepo:     eventRepo,
		esign:         esign,
		templateID:    templateID,
		mediaRoot:     mediaRoot,
		applications:  applications,
		notifications: notifications,
		enqueuer:      enqueuer,
	}
}

func (s *certificationService) audit(ctx context.Context, tx *gorm.DB, action string, fields map[string]any) {
	meta, _ := json.Marshal(fields)
	if _, err := s.eventRepo.Create(ctx, tx, []*types.Event{{
		Action:   action,
		Metadata: datatypes.JSON(meta),
	}}); err != nil {
		s.log.Error("audit event write failed", "action", action, "error", err)
	}
}

// RequestCertification records the request and queues the vendor call. Runs
// inside the caller's transaction holding the application row lock; the HTTP
// submission itself happens in the job worker.
func (s *certificationService) RequestCertification(ctx context.Context, tx *gorm.DB, app *types.Application) error {
	if app.ProviderName == "" || app.ProviderEmail == "" {
		return fmt.Errorf("application has no medical provider on file: %w", pkgerrors.ErrInvalidArgument)
	}

	now := time.Now()
	cert, err := s.certRepo.GetByApplicationID(ctx, tx, app.ID)
	switch {
	case err == nil:
		if cert.Status != types.CertStatusNotRequested && cert.Status != types.CertStatusRejected {
			return fmt.Errorf("certification already %s: %w", cert.Status, pkgerrors.ErrConflict)
		}
		if uErr := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
			"status":         types.CertStatusRequested,
			"provider_name":  app.ProviderName,
			"provider_email": app.ProviderEmail,
			"decline_reason": "",
			"requested_at":   now,
			"updated_at":     now,
		}); uErr != nil {
			return uErr
		}
	case repos.IsNotFound(err):
		created, cErr := s.certRepo.Create(ctx, tx, []*types.MedicalCertification{{
			ApplicationID: app.ID,
			Status:        types.CertStatusRequested,
			ProviderName:  app.ProviderName,
			ProviderEmail: app.ProviderEmail,
			RequestedAt:   &now,
		}})
		if cErr != nil {
			return cErr
		}
		cert = created[0]
	default:
		return err
	}

	if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
		"medical_cert_status": types.CertStatusRequested,
		"last_activity_at":    now,
		"updated_at":          now,
	}); err != nil {
		return err
	}
	app.MedicalCertStatus = types.CertStatusRequested

	if CanTransition(app.Status, types.AppStatusAwaitingCertification) {
		if err := s.applications.Transition(ctx, tx, app, types.AppStatusAwaitingCertification, nil); err != nil {
			return err
		}
	}

	if _, err := s.enqueuer.Enqueue(ctx, tx, types.JobTypeCertificationRequest, CertificationRequestPayload{
		ApplicationID: app.ID,
	}); err != nil {
		return err
	}

	owner, err := s.userRepo.GetByID(ctx, tx, app.UserID)
	if err != nil {
		return err
	}
	_, nErr := s.notifications.Notify(ctx, tx, NotifyRequest{
		Recipient:      owner,
		Action:         "certification_requested",
		NotifiableType: "MedicalCertification",
		NotifiableID:   cert.ID,
		TemplateName:   "certification_requested",
		Vars: map[string]string{
			"first_name":    owner.FirstName,
			"provider_name": app.ProviderName,
		},
	})
	return nErr
}

func (s *certificationService) SubmitSigningRequest(ctx context.Context, applicationID uuid.UUID) error {
	cert, err := s.certRepo.GetByApplicationID(ctx, nil, applicationID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("certification not found for application %s: %w", applicationID, pkgerrors.ErrNotFound)
		}
		return err
	}
	if cert.SigningRequestID != "" {
		// Already submitted on a previous attempt of this job.
		return nil
	}
	app, err := s.appRepo.GetByID(ctx, nil, applicationID)
	if err != nil {
		return err
	}
	owner, err := s.userRepo.GetByID(ctx, nil, app.UserID)
	if err != nil {
		return err
	}

	submission, err := s.esign.CreateSubmission(ctx, docuseal.CreateSubmissionRequest{
		TemplateID: s.templateID,
		SendEmail:  true,
		Submitters: []docuseal.Submitter{{
			Email: cert.ProviderEmail,
			Name:  cert.ProviderName,
			Role:  "provider",
			Values: map[string]string{
				"patient_name":     owner.FullName(),
				"application_code": applicationCode(app.ID),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("create signing submission: %w", err)
	}

	now := time.Now()
	if err := s.certRepo.UpdateFields(ctx, nil, cert.ID, map[string]any{
		"signing_request_id": fmt.Sprintf("%d", submission.ID),
		"signing_url":        submission.SigningURL,
		"updated_at":         now,
	}); err != nil {
		return err
	}
	s.log.Info("signing request submitted", "certification_id", cert.ID, "signing_request_id", submission.ID)

	// Providers without reliable email get the form by fax as well.
	if app.ProviderFax != "" && submission.SigningURL != "" {
		if _, fErr := s.notifications.QueueProviderFax(ctx, nil, app, app.ProviderFax, submission.SigningURL); fErr != nil {
			s.log.Error("provider fax enqueue failed", "application_id", app.ID, "error", fErr)
		}
	}
	return nil
}

func (s *certificationService) ProcessESignEvent(ctx context.Context, event ESignWebhookEvent) error {
	signingRequestID := fmt.Sprintf("%d", event.Data.ID)
	cert, err := s.certRepo.GetBySigningRequestID(ctx, nil, signingRequestID)
	if err != nil {
		if repos.IsNotFound(err) {
			s.audit(ctx, nil, "esign_webhook_unmatched", map[string]any{
				"signing_request_id": signingRequestID,
				"event_type":         event.EventType,
			})
			return nil
		}
		return err
	}

	switch event.EventType {
	case ESignEventCompleted:
		if len(event.Data.Documents) == 0 || event.Data.Documents[0].URL == "" {
			s.audit(ctx, nil, "esign_document_url_missing", map[string]any{
				"certification_id":   cert.ID,
				"signing_request_id": signingRequestID,
			})
			return nil
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := s.enqueuer.Enqueue(ctx, tx, types.JobTypeCertificationDownload, CertificationDownloadPayload{
				CertificationID: cert.ID,
				DocumentURL:     event.Data.Documents[0].URL,
			})
			return err
		})

	case ESignEventDeclined:
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			app, err := s.appRepo.GetByIDForUpdate(ctx, tx, cert.ApplicationID)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
				"status":         types.CertStatusRejected,
				"decline_reason": event.Data.DeclineReason,
				"updated_at":     now,
			}); err != nil {
				return err
			}
			if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
				"medical_cert_status": types.CertStatusRejected,
				"last_activity_at":    now,
				"updated_at":          now,
			}); err != nil {
				return err
			}
			s.audit(ctx, tx, "esign_declined", map[string]any{
				"certification_id": cert.ID,
				"application_id":   app.ID,
				"decline_reason":   event.Data.DeclineReason,
			})
			return nil
		})

	case ESignEventExpired:
		// Clearing the stale submission lets the request path run again.
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			app, err := s.appRepo.GetByIDForUpdate(ctx, tx, cert.ApplicationID)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
				"signing_request_id": "",
				"signing_url":        "",
				"status":             types.CertStatusRequested,
				"requested_at":       now,
				"updated_at":         now,
			}); err != nil {
				return err
			}
			s.audit(ctx, tx, "esign_expired_requeued", map[string]any{
				"certification_id": cert.ID,
				"application_id":   app.ID,
			})
			_, err = s.enqueuer.Enqueue(ctx, tx, types.JobTypeCertificationRequest, CertificationRequestPayload{
				ApplicationID: app.ID,
			})
			return err
		})

	default:
		s.audit(ctx, nil, "esign_event_ignored", map[string]any{
			"certification_id": cert.ID,
			"event_type":       event.EventType,
		})
		return nil
	}
}

func (s *certificationService) DownloadSignedDocument(ctx context.Context, certificationID uuid.UUID, documentURL string) error {
	cert, err := s.certRepo.GetByID(ctx, nil, certificationID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("certification not found: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	if cert.DocumentPath != "" {
		// A previous attempt of this job already stored the document.
		return nil
	}

	document, err := s.esign.DownloadDocument(ctx, documentURL)
	if err != nil {
		return fmt.Errorf("download signed document: %w", err)
	}

	dir := filepath.Join(s.mediaRoot, "certifications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, cert.ID.String()+".pdf")
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, cert.ApplicationID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
			"status":        types.CertStatusReceived,
			"document_path": path,
			"received_at":   now,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
			"medical_cert_status": types.CertStatusReceived,
			"last_activity_at":    now,
			"updated_at":          now,
		}); err != nil {
			return err
		}
		s.audit(ctx, tx, "certification_received", map[string]any{
			"certification_id": cert.ID,
			"application_id":   app.ID,
			"document_path":    path,
		})
		return nil
	})
}

func (s *certificationService) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*types.MedicalCertification, error) {
	cert, err := s.certRepo.GetByApplicationID(ctx, nil, applicationID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, fmt.Errorf("certification not found: %w", pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return cert, nil
}

func (s *certificationService) Approve(ctx context.Context, reviewerID, applicationID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, applicationID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("application not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		cert, err := s.certRepo.GetByApplicationID(ctx, tx, applicationID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("certification not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if cert.Status != types.CertStatusReceived {
			return fmt.Errorf("certification is %s, not received: %w", cert.Status, pkgerrors.ErrInvalidArgument)
		}

		now := time.Now()
		if err := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
			"status":      types.CertStatusApproved,
			"reviewed_at": now,
			"reviewed_by": reviewerID,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
			"medical_cert_status": types.CertStatusApproved,
			"last_activity_at":    now,
			"updated_at":          now,
		}); err != nil {
			return err
		}

		s.audit(ctx, tx, "certification_approved", map[string]any{
			"certification_id": cert.ID,
			"application_id":   app.ID,
			"reviewer_id":      reviewerID,
		})

		_, err = s.applications.EvaluateAutoApproval(ctx, tx, app.ID)
		return err
	})
}

func (s *certificationService) Reject(ctx context.Context, reviewerID, applicationID, reasonID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.appRepo.GetByIDForUpdate(ctx, tx, applicationID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("application not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		cert, err := s.certRepo.GetByApplicationID(ctx, tx, applicationID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("certification not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if cert.Status != types.CertStatusReceived {
			return fmt.Errorf("certification is %s, not received: %w", cert.Status, pkgerrors.ErrInvalidArgument)
		}

		reason, err := s.reasonRepo.GetByID(ctx, tx, reasonID)
		if err != nil {
			if repos.IsNotFound(err) {
				return fmt.Errorf("rejection reason not found: %w", pkgerrors.ErrNotFound)
			}
			return err
		}
		if reason.Category != types.RejectionCategoryMedical {
			return fmt.Errorf("rejection reason category %s is not medical: %w", reason.Category, pkgerrors.ErrInvalidArgument)
		}

		now := time.Now()
		if err := s.certRepo.UpdateFields(ctx, tx, cert.ID, map[string]any{
			"status":         types.CertStatusRejected,
			"decline_reason": reason.Description,
			"reviewed_at":    now,
			"reviewed_by":    reviewerID,
			"updated_at":     now,
		}); err != nil {
			return err
		}

		newCount := app.TotalRejectionCount + 1
		if err := s.appRepo.UpdateFields(ctx, tx, app.ID, map[string]any{
			"medical_cert_status":   types.CertStatusRejected,
			"total_rejection_count": newCount,
			"last_activity_at":      now,
			"updated_at":            now,
		}); err != nil {
			return err
		}
		app.TotalRejectionCount = newCount

		s.audit(ctx, tx, "certification_rejected", map[string]any{
			"certification_id": cert.ID,
			"application_id":   app.ID,
			"reason_code":      reason.Code,
			"rejection_count":  newCount,
		})

		if next := nextStatusAfterRejection(app.Status, newCount); next != "" {
			return s.applications.Transition(ctx, tx, app, next, nil)
		}
		return nil
	})
}
