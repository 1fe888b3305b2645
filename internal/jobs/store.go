package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

const defaultMaxAttempts = 5

// Store enqueues job_run rows. It satisfies services.JobEnqueuer so
// services can queue work inside their own transactions.
type Store struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewStore(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) *Store {
	return &Store{db: db, log: baseLog.With("component", "JobStore"), repo: repo}
}

func (s *Store) Enqueue(ctx context.Context, tx *gorm.DB, jobType string, payload any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("job type is required")
	}
	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for job_type=%s: %w", jobType, err)
		}
		raw = datatypes.JSON(b)
	}
	run := &types.JobRun{
		JobType:     jobType,
		Payload:     raw,
		Status:      types.JobStatusQueued,
		MaxAttempts: defaultMaxAttempts,
	}
	created, err := s.repo.Create(ctx, tx, []*types.JobRun{run})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}
