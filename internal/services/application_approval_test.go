package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// The fakes embed the interfaces they stand in for and implement only what
// the auto-approval path touches.

type approvalAppRepo struct {
	repos.ApplicationRepo
	app     *types.Application
	updates []map[string]any
}

func (f *approvalAppRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error) {
	return f.app, nil
}

func (f *approvalAppRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

type approvalUserRepo struct {
	repos.UserRepo
	user *types.User
}

func (f *approvalUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	return f.user, nil
}

type approvalEventRepo struct {
	repos.EventRepo
	events []*types.Event
}

func (f *approvalEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.Event) ([]*types.Event, error) {
	f.events = append(f.events, events...)
	return events, nil
}

type approvalVoucherService struct {
	VoucherService
	issuedFor []*types.Application
	voucher   *types.Voucher
}

func (f *approvalVoucherService) IssueForApplication(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Voucher, error) {
	f.issuedFor = append(f.issuedFor, app)
	return f.voucher, nil
}

type approvalNotificationService struct {
	NotificationService
	sent []NotifyRequest
}

func (f *approvalNotificationService) Notify(ctx context.Context, tx *gorm.DB, req NotifyRequest) (*types.Notification, error) {
	f.sent = append(f.sent, req)
	return &types.Notification{}, nil
}

type approvalFixture struct {
	svc      ApplicationService
	appRepo  *approvalAppRepo
	events   *approvalEventRepo
	vouchers *approvalVoucherService
	notifs   *approvalNotificationService
}

func newApprovalFixture(t *testing.T, app *types.Application) *approvalFixture {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	appRepo := &approvalAppRepo{app: app}
	userRepo := &approvalUserRepo{user: &types.User{ID: app.UserID, FirstName: "Maya"}}
	events := &approvalEventRepo{}
	vouchers := &approvalVoucherService{voucher: &types.Voucher{
		ID:                uuid.New(),
		Code:              "ABCD-EFGH-JKLM",
		InitialValueCents: 70_000,
		ExpiresAt:         time.Now().Add(365 * 24 * time.Hour),
	}}
	notifs := &approvalNotificationService{}
	svc := NewApplicationService(nil, log, appRepo, nil, userRepo, nil, events, vouchers, notifs)
	return &approvalFixture{svc: svc, appRepo: appRepo, events: events, vouchers: vouchers, notifs: notifs}
}

func eligibleApplication(status string) *types.Application {
	return &types.Application{
		ID:                   uuid.New(),
		UserID:               uuid.New(),
		Status:               status,
		IncomeProofStatus:    types.ProofStatusApproved,
		ResidencyProofStatus: types.ProofStatusApproved,
		MedicalCertStatus:    types.CertStatusApproved,
	}
}

func TestEvaluateAutoApproval(t *testing.T) {
	t.Parallel()

	t.Run("fires when all three sub-statuses are approved", func(t *testing.T) {
		t.Parallel()
		app := eligibleApplication(types.AppStatusAwaitingCertification)
		f := newApprovalFixture(t, app)

		fired, err := f.svc.EvaluateAutoApproval(context.Background(), nil, app.ID)
		if err != nil {
			t.Fatalf("EvaluateAutoApproval: %v", err)
		}
		if !fired {
			t.Fatal("expected auto-approval to fire")
		}
		if app.Status != types.AppStatusApproved {
			t.Fatalf("application status = %q, want approved", app.Status)
		}
		if len(f.vouchers.issuedFor) != 1 {
			t.Fatalf("expected one voucher issue, got %d", len(f.vouchers.issuedFor))
		}
		if len(f.events.events) != 1 || f.events.events[0].Action != "application_auto_approved" {
			t.Fatalf("expected an auto-approval event, got %+v", f.events.events)
		}
		if len(f.notifs.sent) != 1 {
			t.Fatalf("expected one notification, got %d", len(f.notifs.sent))
		}
		if got := f.notifs.sent[0].Vars["voucher_code"]; got != "ABCD-EFGH-JKLM" {
			t.Fatalf("notification carries wrong voucher code: %q", got)
		}
	})

	t.Run("does not fire while a sub-status is pending", func(t *testing.T) {
		t.Parallel()
		app := eligibleApplication(types.AppStatusAwaitingCertification)
		app.MedicalCertStatus = types.CertStatusRequested
		f := newApprovalFixture(t, app)

		fired, err := f.svc.EvaluateAutoApproval(context.Background(), nil, app.ID)
		if err != nil {
			t.Fatalf("EvaluateAutoApproval: %v", err)
		}
		if fired {
			t.Fatal("auto-approval must wait for the certification decision")
		}
		if len(f.vouchers.issuedFor) != 0 {
			t.Fatal("no voucher may be issued before all approvals land")
		}
		if len(f.appRepo.updates) != 0 {
			t.Fatalf("application must not be touched, got updates %v", f.appRepo.updates)
		}
	})

	t.Run("does not fire on a terminal application", func(t *testing.T) {
		t.Parallel()
		app := eligibleApplication(types.AppStatusRejected)
		f := newApprovalFixture(t, app)

		fired, err := f.svc.EvaluateAutoApproval(context.Background(), nil, app.ID)
		if err != nil {
			t.Fatalf("EvaluateAutoApproval: %v", err)
		}
		if fired || len(f.vouchers.issuedFor) != 0 {
			t.Fatal("terminal applications are never auto-approved")
		}
	})

	t.Run("fires from in_review", func(t *testing.T) {
		t.Parallel()
		app := eligibleApplication(types.AppStatusInReview)
		f := newApprovalFixture(t, app)

		fired, err := f.svc.EvaluateAutoApproval(context.Background(), nil, app.ID)
		if err != nil {
			t.Fatalf("EvaluateAutoApproval: %v", err)
		}
		if !fired {
			t.Fatal("expected auto-approval from in_review")
		}
	})
}
