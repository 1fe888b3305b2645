package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/pkg/webhooks"
	"github.com/matvulcan/vulcan-backend/internal/services"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type fakeCertificationService struct {
	processed []services.ESignWebhookEvent
}

func (f *fakeCertificationService) RequestCertification(ctx context.Context, tx *gorm.DB, app *types.Application) error {
	return nil
}
func (f *fakeCertificationService) SubmitSigningRequest(ctx context.Context, applicationID uuid.UUID) error {
	return nil
}
func (f *fakeCertificationService) ProcessESignEvent(ctx context.Context, event services.ESignWebhookEvent) error {
	f.processed = append(f.processed, event)
	return nil
}
func (f *fakeCertificationService) DownloadSignedDocument(ctx context.Context, certificationID uuid.UUID, documentURL string) error {
	return nil
}
func (f *fakeCertificationService) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*types.MedicalCertification, error) {
	return nil, nil
}
func (f *fakeCertificationService) Approve(ctx context.Context, reviewerID, applicationID uuid.UUID) error {
	return nil
}
func (f *fakeCertificationService) Reject(ctx context.Context, reviewerID, applicationID, reasonID uuid.UUID) error {
	return nil
}

type recordedStatus struct {
	messageID string
	status    string
}

type fakeNotificationService struct {
	statuses []recordedStatus
}

func (f *fakeNotificationService) Notify(ctx context.Context, tx *gorm.DB, req services.NotifyRequest) (*types.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationService) QueueProviderFax(ctx context.Context, tx *gorm.DB, app *types.Application, faxNumber, mediaURL string) (*types.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationService) TestSendTemplate(ctx context.Context, admin *types.User, templateName string) (*types.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Notification, int64, error) {
	return nil, 0, nil
}
func (f *fakeNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}
func (f *fakeNotificationService) RecordDeliveryStatus(ctx context.Context, messageID, status string) error {
	f.statuses = append(f.statuses, recordedStatus{messageID: messageID, status: status})
	return nil
}

func newWebhookTestRouter(t *testing.T, certs *fakeCertificationService, notifs *fakeNotificationService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewWebhookHandler(log, certs, notifs, "esign-secret", "telephony-secret")
	r := gin.New()
	r.POST("/webhooks/esign", h.ESign)
	r.POST("/webhooks/telephony", h.Telephony)
	return r
}

func postWebhook(r *gin.Engine, path string, body []byte, sigHeader, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(sigHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestESignWebhook(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing signature", func(t *testing.T) {
		t.Parallel()
		certs := &fakeCertificationService{}
		r := newWebhookTestRouter(t, certs, &fakeNotificationService{})

		w := postWebhook(r, "/webhooks/esign", []byte(`{"event_type":"form.completed"}`), "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusUnauthorized)
		}
		if len(certs.processed) != 0 {
			t.Fatal("unsigned event should not reach the service")
		}
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()
		certs := &fakeCertificationService{}
		r := newWebhookTestRouter(t, certs, &fakeNotificationService{})

		body := []byte(`{"event_type":"form.completed"}`)
		sig := webhooks.SignBody("wrong-secret", body)
		w := postWebhook(r, "/webhooks/esign", body, "X-Docuseal-Signature", sig)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("processes signed event", func(t *testing.T) {
		t.Parallel()
		certs := &fakeCertificationService{}
		r := newWebhookTestRouter(t, certs, &fakeNotificationService{})

		body := []byte(`{"event_type":"form.completed","data":{"id":42,"status":"completed"}}`)
		sig := webhooks.SignBody("esign-secret", body)
		w := postWebhook(r, "/webhooks/esign", body, "X-Docuseal-Signature", sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if len(certs.processed) != 1 {
			t.Fatalf("expected one processed event, got %d", len(certs.processed))
		}
		if certs.processed[0].EventType != "form.completed" || certs.processed[0].Data.ID != 42 {
			t.Fatalf("event not decoded: %+v", certs.processed[0])
		}
	})

	t.Run("accepts canonical signature header", func(t *testing.T) {
		t.Parallel()
		certs := &fakeCertificationService{}
		r := newWebhookTestRouter(t, certs, &fakeNotificationService{})

		body := []byte(`{"event_type":"form.declined"}`)
		sig := webhooks.SignBody("esign-secret", body)
		w := postWebhook(r, "/webhooks/esign", body, webhooks.SignatureHeader, sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
	})

	t.Run("unparseable signed payload still returns 200", func(t *testing.T) {
		t.Parallel()
		certs := &fakeCertificationService{}
		r := newWebhookTestRouter(t, certs, &fakeNotificationService{})

		body := []byte(`not json at all`)
		sig := webhooks.SignBody("esign-secret", body)
		w := postWebhook(r, "/webhooks/esign", body, "X-Docuseal-Signature", sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if len(certs.processed) != 0 {
			t.Fatal("unparseable payload should not reach the service")
		}
	})
}

func TestTelephonyWebhook(t *testing.T) {
	t.Parallel()

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()
		notifs := &fakeNotificationService{}
		r := newWebhookTestRouter(t, &fakeCertificationService{}, notifs)

		body := []byte(`{"MessageSid":"SM123","MessageStatus":"delivered"}`)
		sig := webhooks.SignBody("esign-secret", body)
		w := postWebhook(r, "/webhooks/telephony", body, "X-Twilio-Signature", sig)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusUnauthorized)
		}
		if len(notifs.statuses) != 0 {
			t.Fatal("unsigned status should not be recorded")
		}
	})

	t.Run("records message status", func(t *testing.T) {
		t.Parallel()
		notifs := &fakeNotificationService{}
		r := newWebhookTestRouter(t, &fakeCertificationService{}, notifs)

		body := []byte(`{"MessageSid":"SM123","MessageStatus":"delivered"}`)
		sig := webhooks.SignBody("telephony-secret", body)
		w := postWebhook(r, "/webhooks/telephony", body, "X-Twilio-Signature", sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if len(notifs.statuses) != 1 {
			t.Fatalf("expected one recorded status, got %d", len(notifs.statuses))
		}
		if notifs.statuses[0] != (recordedStatus{messageID: "SM123", status: "delivered"}) {
			t.Fatalf("unexpected recorded status: %+v", notifs.statuses[0])
		}
	})

	t.Run("falls back to fax fields", func(t *testing.T) {
		t.Parallel()
		notifs := &fakeNotificationService{}
		r := newWebhookTestRouter(t, &fakeCertificationService{}, notifs)

		body := []byte(`{"FaxSid":"FX987","FaxStatus":"failed"}`)
		sig := webhooks.SignBody("telephony-secret", body)
		w := postWebhook(r, "/webhooks/telephony", body, "X-Twilio-Signature", sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if len(notifs.statuses) != 1 || notifs.statuses[0].messageID != "FX987" || notifs.statuses[0].status != "failed" {
			t.Fatalf("fax status not recorded: %+v", notifs.statuses)
		}
	})

	t.Run("ignores payload without identifiers", func(t *testing.T) {
		t.Parallel()
		notifs := &fakeNotificationService{}
		r := newWebhookTestRouter(t, &fakeCertificationService{}, notifs)

		body := []byte(`{"AccountSid":"AC1"}`)
		sig := webhooks.SignBody("telephony-secret", body)
		w := postWebhook(r, "/webhooks/telephony", body, "X-Twilio-Signature", sig)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if len(notifs.statuses) != 0 {
			t.Fatal("no status should be recorded without a message identifier")
		}
	})
}
