package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// Context is what a Handler runs against: the claimed job row plus the
// shared database handle. Fail and Succeed write the terminal state back
// to the job_run row; a failed job stays eligible for retry until its
// attempts reach max_attempts.
type Context struct {
	Ctx context.Context
	DB  *gorm.DB
	Job *types.JobRun
	Log *logger.Logger

	repo repos.JobRunRepo
}

func newContext(ctx context.Context, db *gorm.DB, repo repos.JobRunRepo, log *logger.Logger, job *types.JobRun) *Context {
	return &Context{Ctx: ctx, DB: db, Job: job, Log: log, repo: repo}
}

// Decode unmarshals the raw payload into v.
func (jc *Context) Decode(v any) error {
	if len(jc.Job.Payload) == 0 {
		return fmt.Errorf("job %s has no payload", jc.Job.ID)
	}
	return json.Unmarshal(jc.Job.Payload, v)
}

func (jc *Context) Fail(runErr error) error {
	now := time.Now()
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	updates := map[string]any{
		"status":        types.JobStatusFailed,
		"last_error":    msg,
		"last_error_at": now,
		"locked_at":     nil,
		"heartbeat_at":  nil,
		"updated_at":    now,
	}
	if err := jc.repo.UpdateFields(jc.Ctx, nil, jc.Job.ID, updates); err != nil {
		return err
	}
	jc.Job.Status = types.JobStatusFailed
	jc.Job.LastError = msg
	jc.Job.LastErrorAt = &now
	jc.Job.LockedAt = nil
	jc.Job.HeartbeatAt = nil
	return nil
}

func (jc *Context) Succeed() error {
	now := time.Now()
	updates := map[string]any{
		"status":       types.JobStatusSucceeded,
		"finished_at":  now,
		"locked_at":    nil,
		"heartbeat_at": nil,
		"updated_at":   now,
	}
	if err := jc.repo.UpdateFields(jc.Ctx, nil, jc.Job.ID, updates); err != nil {
		return err
	}
	jc.Job.Status = types.JobStatusSucceeded
	jc.Job.FinishedAt = &now
	jc.Job.LockedAt = nil
	jc.Job.HeartbeatAt = nil
	return nil
}
