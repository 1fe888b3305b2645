package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/services"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

const (
	voucherExpirySchedule = "0 2 * * *"
	proofReminderSchedule = "0 9 * * *"
	staleArchiveSchedule  = "30 2 * * *"

	proofReminderAfterDays = 7
	staleArchiveAfterDays  = 60

	reminderConcurrency = 8
)

// Scheduler runs the recurring sweeps: voucher expiry, proof-upload
// reminders, and stale-draft archiving.
type Scheduler struct {
	cron          *cron.Cron
	log           *logger.Logger
	appRepo       repos.ApplicationRepo
	userRepo      repos.UserRepo
	applications  services.ApplicationService
	vouchers      services.VoucherService
	notifications services.NotificationService
}

func NewScheduler(
	baseLog *logger.Logger,
	appRepo repos.ApplicationRepo,
	userRepo repos.UserRepo,
	applications services.ApplicationService,
	vouchers services.VoucherService,
	notifications services.NotificationService,
) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		log:           baseLog.With("component", "Scheduler"),
		appRepo:       appRepo,
		userRepo:      userRepo,
		applications:  applications,
		vouchers:      vouchers,
		notifications: notifications,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(voucherExpirySchedule, func() { s.runVoucherExpiry(ctx) }); err != nil {
		return fmt.Errorf("schedule voucher expiry: %w", err)
	}
	if _, err := s.cron.AddFunc(proofReminderSchedule, func() { s.runProofReminders(ctx) }); err != nil {
		return fmt.Errorf("schedule proof reminders: %w", err)
	}
	if _, err := s.cron.AddFunc(staleArchiveSchedule, func() { s.runStaleArchive(ctx) }); err != nil {
		return fmt.Errorf("schedule stale archive: %w", err)
	}
	s.cron.Start()
	s.log.Info("scheduler started")
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.log.Info("scheduler stopped")
	}()
	return nil
}

func (s *Scheduler) runVoucherExpiry(ctx context.Context) {
	expired, err := s.vouchers.ExpireSweep(ctx)
	if err != nil {
		s.log.Error("voucher expiry sweep", "error", err)
		return
	}
	if expired > 0 {
		s.log.Info("voucher expiry sweep done", "expired", expired)
	}
}

// runProofReminders emails constituents whose application has been waiting
// on documents for a week. Reminders fan out concurrently; one failed send
// never blocks the rest.
func (s *Scheduler) runProofReminders(ctx context.Context) {
	stale, err := s.appRepo.ListStaleByStatus(ctx, nil, types.AppStatusAwaitingDocuments, proofReminderAfterDays)
	if err != nil {
		s.log.Error("list applications awaiting documents", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reminderConcurrency)
	for _, app := range stale {
		app := app
		g.Go(func() error {
			recipient, uErr := s.userRepo.GetByID(gCtx, nil, app.UserID)
			if uErr != nil {
				s.log.Warn("load reminder recipient",
					"application_id", app.ID, "user_id", app.UserID, "error", uErr)
				return nil
			}
			_, nErr := s.notifications.Notify(gCtx, nil, services.NotifyRequest{
				Recipient:      recipient,
				Action:         "proof_reminder",
				NotifiableType: "Application",
				NotifiableID:   app.ID,
				TemplateName:   "proof_reminder",
				Vars: map[string]string{
					"first_name": recipient.FirstName,
				},
			})
			if nErr != nil {
				s.log.Warn("queue proof reminder",
					"application_id", app.ID, "error", nErr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("proof reminder fan-out", "error", err)
		return
	}
	s.log.Info("proof reminders queued", "count", len(stale))
}

func (s *Scheduler) runStaleArchive(ctx context.Context) {
	archived, err := s.applications.ArchiveStale(ctx, staleArchiveAfterDays)
	if err != nil {
		s.log.Error("stale draft archive sweep", "error", err)
		return
	}
	if archived > 0 {
		s.log.Info("stale draft archive sweep done", "archived", archived)
	}
}
