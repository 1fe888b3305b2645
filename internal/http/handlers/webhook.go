package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/pkg/webhooks"
	"github.com/matvulcan/vulcan-backend/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives callbacks from the e-sign vendor and the telephony
// gateway. Bad signatures get a 401; everything after a valid signature
// returns 200 so vendors stop retrying, with domain problems recorded as
// audit events downstream.
type WebhookHandler struct {
	log             *logger.Logger
	certifications  services.CertificationService
	notifications   services.NotificationService
	esignSecret     string
	telephonySecret string
}

func NewWebhookHandler(
	log *logger.Logger,
	certifications services.CertificationService,
	notifications services.NotificationService,
	esignSecret string,
	telephonySecret string,
) *WebhookHandler {
	return &WebhookHandler{
		log:             log.With("handler", "WebhookHandler"),
		certifications:  certifications,
		notifications:   notifications,
		esignSecret:     esignSecret,
		telephonySecret: telephonySecret,
	}
}

func (h *WebhookHandler) ESign(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "unreadable body", "code": "invalid_request"}})
		return
	}
	sig := webhooks.ExtractSignature(c.Request.Header, "X-Docuseal-Signature")
	if !webhooks.VerifySignature(h.esignSecret, body, sig) {
		h.log.Warn("e-sign webhook signature rejected", "payload_hash", webhooks.PayloadHash(body))
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid signature", "code": "unauthorized"}})
		return
	}
	var event services.ESignWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.Warn("e-sign webhook payload unparseable", "payload_hash", webhooks.PayloadHash(body), "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if err := h.certifications.ProcessESignEvent(c.Request.Context(), event); err != nil {
		h.log.Error("process e-sign event", "event_type", event.EventType, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Telephony receives message status callbacks for SMS and fax deliveries.
func (h *WebhookHandler) Telephony(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "unreadable body", "code": "invalid_request"}})
		return
	}
	sig := webhooks.ExtractSignature(c.Request.Header, "X-Twilio-Signature")
	if !webhooks.VerifySignature(h.telephonySecret, body, sig) {
		h.log.Warn("telephony webhook signature rejected", "payload_hash", webhooks.PayloadHash(body))
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid signature", "code": "unauthorized"}})
		return
	}
	var event struct {
		MessageSID    string `json:"MessageSid"`
		FaxSID        string `json:"FaxSid"`
		MessageStatus string `json:"MessageStatus"`
		FaxStatus     string `json:"FaxStatus"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.Warn("telephony webhook payload unparseable", "payload_hash", webhooks.PayloadHash(body), "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	messageID := event.MessageSID
	status := event.MessageStatus
	if messageID == "" {
		messageID = event.FaxSID
		status = event.FaxStatus
	}
	if messageID == "" || status == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if err := h.notifications.RecordDeliveryStatus(c.Request.Context(), messageID, status); err != nil {
		h.log.Error("record delivery status", "message_id", messageID, "status", status, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
