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

// JobEnqueuer abstracts the database-backed job queue so services can queue
// delivery work inside their own transactions.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, jobType string, payload any) (*types.JobRun, error)
}

// DeliveryPayload is the payload of email/sms/fax delivery jobs.
type DeliveryPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	To             string    `json:"to"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body,omitempty"`
	HTML           bool      `json:"html,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
}

type NotifyRequest struct {
	Recipient      *types.User
	ActorID        *uuid.UUID
	Action         string
	NotifiableType string
	NotifiableID   uuid.UUID
	TemplateName   string
	Vars           map[string]string
}

type NotificationService interface {
	// Notify renders the named template and queues delivery on the
	// recipient's preferred channels. The web request only writes rows; the
	// job worker does the sending.
	Notify(ctx context.Context, tx *gorm.DB, req NotifyRequest) (*types.Notification, error)
	// QueueProviderFax queues a fax of the certification request form to a
	// medical provider. The constituent stays the notification recipient;
	// the fax number rides in metadata.
	QueueProviderFax(ctx context.Context, tx *gorm.DB, app *types.Application, faxNumber, mediaURL string) (*types.Notification, error)
	// TestSendTemplate emails a rendered sample of the named template to the
	// admin, with every declared variable filled by a bracketed placeholder.
	TestSendTemplate(ctx context.Context, admin *types.User, templateName string) (*types.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	// RecordDeliveryStatus applies a telephony/email gateway status callback.
	RecordDeliveryStatus(ctx context.Context, messageID, status string) error
}

type notificationService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.NotificationRepo
	eventRepo repos.EventRepo
	templates EmailTemplateService
	enqueuer  JobEnqueuer
}

func NewNotificationService(
	db *gorm.DB,
	log *logger.Logger,
	repo repos.NotificationRepo,
	eventRepo repos.EventRepo,
	templates EmailTemplateService,
	enqueuer JobEnqueuer,
) NotificationService {
	serviceLog := log.With("service", "NotificationService")
	return &notificationService{
		db:        db,
		log:       serviceLog,
		repo:      repo,
		eventRepo: eventRepo,
		templates: templates,
		enqueuer:  enqueuer,
	}
}

func (s *notificationService) Notify(ctx context.Context, tx *gorm.DB, req NotifyRequest) (*types.Notification, error) {
	if req.Recipient == nil {
		return nil, fmt.Errorf("notification recipient required: %w", pkgerrors.ErrInvalidArgument)
	}
	rendered, err := s.templates.RenderByName(ctx, req.TemplateName, req.Vars)
	if err != nil {
		return nil, fmt.Errorf("render notification template: %w", err)
	}

	run := func(txx *gorm.DB) (*types.Notification, error) {
		email := &types.Notification{
			RecipientID:    req.Recipient.ID,
			ActorID:        req.ActorID,
			Action:         req.Action,
			NotifiableType: req.NotifiableType,
			NotifiableID:   req.NotifiableID,
			Channel:        types.ChannelEmail,
			Subject:        rendered.Subject,
			Body:           rendered.Body,
			DeliveryStatus: types.DeliveryQueued,
		}
		created, cErr := s.repo.Create(ctx, txx, []*types.Notification{email})
		if cErr != nil {
			return nil, cErr
		}
		emailPayload := DeliveryPayload{
			NotificationID: created[0].ID,
			To:             req.Recipient.Email,
			Subject:        rendered.Subject,
			Body:           rendered.Body,
			HTML:           rendered.Format == types.TemplateFormatHTML,
		}
		if _, eErr := s.enqueuer.Enqueue(ctx, txx, types.JobTypeEmailDelivery, emailPayload); eErr != nil {
			return nil, eErr
		}

		if req.Recipient.CommPreference == types.CommPreferenceSMS && req.Recipient.Phone != "" {
			sms := &types.Notification{
				RecipientID:    req.Recipient.ID,
				ActorID:        req.ActorID,
				Action:         req.Action,
				NotifiableType: req.NotifiableType,
				NotifiableID:   req.NotifiableID,
				Channel:        types.ChannelSMS,
				Body:           rendered.Subject,
				DeliveryStatus: types.DeliveryQueued,
			}
			smsCreated, sErr := s.repo.Create(ctx, txx, []*types.Notification{sms})
			if sErr != nil {
				return nil, sErr
			}
			smsPayload := DeliveryPayload{
				NotificationID: smsCreated[0].ID,
				To:             req.Recipient.Phone,
				Body:           rendered.Subject,
			}
			if _, eErr := s.enqueuer.Enqueue(ctx, txx, types.JobTypeSMSDelivery, smsPayload); eErr != nil {
				return nil, eErr
			}
		}
		return created[0], nil
	}

	if tx != nil {
		return run(tx)
	}
	var result *types.Notification
	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var runErr error
		result, runErr = run(txx)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *notificationService) QueueProviderFax(ctx context.Context, tx *gorm.DB, app *types.Application, faxNumber, mediaURL string) (*types.Notification, error) {
	if app == nil {
		return nil, fmt.Errorf("application required: %w", pkgerrors.ErrInvalidArgument)
	}
	if faxNumber == "" || mediaURL == "" {
		return nil, fmt.Errorf("fax number and media url required: %w", pkgerrors.ErrInvalidArgument)
	}
	meta, err := json.Marshal(map[string]string{"fax": faxNumber, "media_url": mediaURL})
	if err != nil {
		return nil, err
	}

	run := func(txx *gorm.DB) (*types.Notification, error) {
		n := &types.Notification{
			RecipientID:    app.UserID,
			Action:         "certification_request_faxed",
			NotifiableType: "Application",
			NotifiableID:   app.ID,
			Channel:        types.ChannelFax,
			DeliveryStatus: types.DeliveryQueued,
			Metadata:       datatypes.JSON(meta),
		}
		created, cErr := s.repo.Create(ctx, txx, []*types.Notification{n})
		if cErr != nil {
			return nil, cErr
		}
		payload := DeliveryPayload{
			NotificationID: created[0].ID,
			To:             faxNumber,
			MediaURL:       mediaURL,
		}
		if _, eErr := s.enqueuer.Enqueue(ctx, txx, types.JobTypeFaxDelivery, payload); eErr != nil {
			return nil, eErr
		}
		return created[0], nil
	}

	if tx != nil {
		return run(tx)
	}
	var result *types.Notification
	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var runErr error
		result, runErr = run(txx)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *notificationService) TestSendTemplate(ctx context.Context, admin *types.User, templateName string) (*types.Notification, error) {
	if admin == nil {
		return nil, fmt.Errorf("admin user required: %w", pkgerrors.ErrInvalidArgument)
	}
	tpl, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return nil, err
	}
	declared, err := decodeVariables(tpl.Variables)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(declared))
	for _, name := range declared {
		vars[name] = "[" + name + "]"
	}
	return s.Notify(ctx, nil, NotifyRequest{
		Recipient:      admin,
		ActorID:        &admin.ID,
		Action:         "template_test_send",
		NotifiableType: "EmailTemplate",
		NotifiableID:   tpl.ID,
		TemplateName:   templateName,
		Vars:           vars,
	})
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Notification, int64, error) {
	return s.repo.ListByRecipient(ctx, nil, userID, limit, offset)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, nil, notificationID)
	if err != nil {
		if repos.IsNotFound(err) {
			return fmt.Errorf("notification: %w", pkgerrors.ErrNotFound)
		}
		return err
	}
	if n.RecipientID != userID {
		return fmt.Errorf("notification belongs to another user: %w", pkgerrors.ErrForbidden)
	}
	return s.repo.MarkRead(ctx, nil, notificationID)
}

func (s *notificationService) RecordDeliveryStatus(ctx context.Context, messageID, status string) error {
	n, err := s.repo.GetByMessageID(ctx, nil, messageID)
	if err != nil {
		if repos.IsNotFound(err) {
			// Unknown message ids are audited, not surfaced: the gateway
			// retries on non-200 and there is nothing to retry into.
			meta, _ := json.Marshal(map[string]string{"message_id": messageID, "status": status})
			_, aErr := s.eventRepo.Create(ctx, nil, []*types.Event{{
				Action:   "delivery_status_unmatched",
				Metadata: datatypes.JSON(meta),
			}})
			return aErr
		}
		return err
	}

	updates := map[string]any{"updated_at": time.Now()}
	switch status {
	case "delivered", "sent", "received":
		now := time.Now()
		updates["delivery_status"] = types.DeliveryDelivered
		updates["delivered_at"] = now
	case "failed", "undelivered", "no-answer", "busy", "canceled":
		updates["delivery_status"] = types.DeliveryError
	default:
		// Intermediate states (queued, sending) carry no row change.
		return nil
	}
	return s.repo.UpdateFields(ctx, nil, n.ID, updates)
}
