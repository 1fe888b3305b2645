package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matvulcan/vulcan-backend/internal/clients/sendgrid"
	"github.com/matvulcan/vulcan-backend/internal/clients/twilio"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/services"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// EmailDeliveryHandler sends a queued notification email through SendGrid.
// SendGrid accepting the message is the strongest signal we get for email,
// so acceptance marks the notification delivered.
type EmailDeliveryHandler struct {
	email         sendgrid.Client
	notifications repos.NotificationRepo
}

func NewEmailDeliveryHandler(email sendgrid.Client, notifications repos.NotificationRepo) *EmailDeliveryHandler {
	return &EmailDeliveryHandler{email: email, notifications: notifications}
}

func (h *EmailDeliveryHandler) Type() string { return types.JobTypeEmailDelivery }

func (h *EmailDeliveryHandler) Run(jc *Context) error {
	var payload services.DeliveryPayload
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	if payload.To == "" {
		return fmt.Errorf("email delivery payload missing recipient")
	}
	req := sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: payload.To}},
		Subject: payload.Subject,
	}
	if payload.HTML {
		req.HTML = payload.Body
	} else {
		req.Text = payload.Body
	}
	result, err := h.email.Send(jc.Ctx, req)
	if err != nil {
		h.markError(jc, payload.NotificationID)
		return err
	}
	if payload.NotificationID != uuid.Nil {
		now := time.Now()
		if uErr := h.notifications.UpdateFields(jc.Ctx, nil, payload.NotificationID, map[string]any{
			"message_id":      result.MessageID,
			"delivery_status": types.DeliveryDelivered,
			"delivered_at":    now,
		}); uErr != nil {
			jc.Log.Warn("update notification after email send",
				"notification_id", payload.NotificationID, "error", uErr)
		}
	}
	return nil
}

func (h *EmailDeliveryHandler) markError(jc *Context, notificationID uuid.UUID) {
	if notificationID == uuid.Nil {
		return
	}
	if uErr := h.notifications.UpdateFields(jc.Ctx, nil, notificationID, map[string]any{
		"delivery_status": types.DeliveryError,
	}); uErr != nil {
		jc.Log.Warn("mark notification delivery error",
			"notification_id", notificationID, "error", uErr)
	}
}

// SMSDeliveryHandler sends a queued notification text. Delivery confirmation
// arrives later through the telephony status webhook, matched by message_id.
type SMSDeliveryHandler struct {
	sms           twilio.Client
	notifications repos.NotificationRepo
}

func NewSMSDeliveryHandler(sms twilio.Client, notifications repos.NotificationRepo) *SMSDeliveryHandler {
	return &SMSDeliveryHandler{sms: sms, notifications: notifications}
}

func (h *SMSDeliveryHandler) Type() string { return types.JobTypeSMSDelivery }

func (h *SMSDeliveryHandler) Run(jc *Context) error {
	var payload services.DeliveryPayload
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	msg, err := h.sms.SendSMS(jc.Ctx, payload.To, payload.Body)
	if err != nil {
		if payload.NotificationID != uuid.Nil {
			if uErr := h.notifications.UpdateFields(jc.Ctx, nil, payload.NotificationID, map[string]any{
				"delivery_status": types.DeliveryError,
			}); uErr != nil {
				jc.Log.Warn("mark notification delivery error",
					"notification_id", payload.NotificationID, "error", uErr)
			}
		}
		return err
	}
	if payload.NotificationID != uuid.Nil {
		if uErr := h.notifications.UpdateFields(jc.Ctx, nil, payload.NotificationID, map[string]any{
			"message_id": msg.SID,
		}); uErr != nil {
			jc.Log.Warn("record sms message id",
				"notification_id", payload.NotificationID, "error", uErr)
		}
	}
	return nil
}

// FaxDeliveryHandler transmits a document to a medical provider's fax line.
type FaxDeliveryHandler struct {
	fax           twilio.Client
	notifications repos.NotificationRepo
}

func NewFaxDeliveryHandler(fax twilio.Client, notifications repos.NotificationRepo) *FaxDeliveryHandler {
	return &FaxDeliveryHandler{fax: fax, notifications: notifications}
}

func (h *FaxDeliveryHandler) Type() string { return types.JobTypeFaxDelivery }

func (h *FaxDeliveryHandler) Run(jc *Context) error {
	var payload services.DeliveryPayload
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	if payload.MediaURL == "" {
		return fmt.Errorf("fax delivery payload missing media_url")
	}
	msg, err := h.fax.SendFax(jc.Ctx, payload.To, payload.MediaURL)
	if err != nil {
		if payload.NotificationID != uuid.Nil {
			if uErr := h.notifications.UpdateFields(jc.Ctx, nil, payload.NotificationID, map[string]any{
				"delivery_status": types.DeliveryError,
			}); uErr != nil {
				jc.Log.Warn("mark notification delivery error",
					"notification_id", payload.NotificationID, "error", uErr)
			}
		}
		return err
	}
	if payload.NotificationID != uuid.Nil {
		if uErr := h.notifications.UpdateFields(jc.Ctx, nil, payload.NotificationID, map[string]any{
			"message_id": msg.SID,
		}); uErr != nil {
			jc.Log.Warn("record fax message id",
				"notification_id", payload.NotificationID, "error", uErr)
		}
	}
	return nil
}
