package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
)

const (
	pollInterval = 1 * time.Second
	retryDelay   = 30 * time.Second
	staleRunning = 2 * time.Minute

	// defaultHeartbeat must stay well under staleRunning so a long-running
	// handler is never mistaken for an abandoned one and claimed twice.
	defaultHeartbeat = 30 * time.Second
)

// Worker polls the job_run table and dispatches claimed jobs to
// registered handlers. One claim per tick keeps contention low; run
// several workers for more throughput.
type Worker struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.JobRunRepo
	registry  *Registry
	heartbeat time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:        db,
		log:       baseLog.With("component", "JobWorker"),
		repo:      repo,
		registry:  registry,
		heartbeat: defaultHeartbeat,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		w.log.Info("job worker started")
		for {
			select {
			case <-ctx.Done():
				w.log.Info("job worker stopped")
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

func (w *Worker) tick(ctx context.Context) {
	for {
		job, err := w.repo.ClaimNextRunnable(ctx, nil, retryDelay, staleRunning)
		if err != nil {
			w.log.Error("claim next runnable job", "error", err)
			return
		}
		if job == nil {
			return
		}
		w.runOne(ctx, newContext(ctx, w.db, w.repo, w.log, job))
	}
}

// keepAlive refreshes the claimed job's heartbeat until the returned stop
// function is called, so other workers do not reclaim it mid-run.
func (w *Worker) keepAlive(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.repo.Heartbeat(ctx, nil, jobID); err != nil {
					w.log.Warn("job heartbeat", "job_id", jobID, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

func (w *Worker) runOne(ctx context.Context, jc *Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job handler panicked",
				"job_id", jc.Job.ID,
				"job_type", jc.Job.JobType,
				"panic", r)
			if err := jc.Fail(fmt.Errorf("panic: %v", r)); err != nil {
				w.log.Error("record job panic", "job_id", jc.Job.ID, "error", err)
			}
		}
	}()
	stopHeartbeat := w.keepAlive(ctx, jc.Job.ID)
	defer stopHeartbeat()
	handler, ok := w.registry.Get(jc.Job.JobType)
	if !ok {
		w.log.Error("no handler for job type", "job_id", jc.Job.ID, "job_type", jc.Job.JobType)
		if err := jc.Fail(fmt.Errorf("no handler registered for job_type=%s", jc.Job.JobType)); err != nil {
			w.log.Error("record missing handler", "job_id", jc.Job.ID, "error", err)
		}
		return
	}
	if err := handler.Run(jc); err != nil {
		w.log.Error("job failed",
			"job_id", jc.Job.ID,
			"job_type", jc.Job.JobType,
			"attempt", jc.Job.Attempts,
			"error", err)
		if fErr := jc.Fail(err); fErr != nil {
			w.log.Error("record job failure", "job_id", jc.Job.ID, "error", fErr)
		}
		return
	}
	if err := jc.Succeed(); err != nil {
		w.log.Error("record job success", "job_id", jc.Job.ID, "error", err)
	}
}
