package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type fakeJobRunRepo struct {
	mu         sync.Mutex
	heartbeats []uuid.UUID
	updates    []map[string]any
	beatTwice  chan struct{}
	once       sync.Once
}

func (f *fakeJobRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.JobRun) ([]*types.JobRun, error) {
	return runs, nil
}

func (f *fakeJobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, retryDelay, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeJobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats = append(f.heartbeats, id)
	if len(f.heartbeats) >= 2 {
		f.once.Do(func() { close(f.beatTwice) })
	}
	return nil
}

type blockingHandler struct {
	release <-chan struct{}
}

func (h *blockingHandler) Type() string { return "blocking" }

func (h *blockingHandler) Run(jc *Context) error {
	select {
	case <-h.release:
		return nil
	case <-time.After(5 * time.Second):
		return nil
	}
}

func TestWorkerHeartbeatsWhileHandlerRuns(t *testing.T) {
	t.Parallel()

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	repo := &fakeJobRunRepo{beatTwice: make(chan struct{})}
	registry := NewRegistry()
	// The handler blocks until the heartbeat has ticked at least twice, so a
	// passing run proves the claim stays fresh for the handler's lifetime.
	if err := registry.Register(&blockingHandler{release: repo.beatTwice}); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := NewWorker(nil, log, repo, registry)
	w.heartbeat = 5 * time.Millisecond

	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: "blocking",
		Status:  types.JobStatusRunning,
	}
	done := make(chan struct{})
	go func() {
		w.runOne(context.Background(), newContext(context.Background(), nil, repo, log, job))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("runOne did not finish")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.heartbeats) < 2 {
		t.Fatalf("expected at least two heartbeats, got %d", len(repo.heartbeats))
	}
	for _, id := range repo.heartbeats {
		if id != job.ID {
			t.Fatalf("heartbeat for wrong job: got %s want %s", id, job.ID)
		}
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected one terminal update, got %d", len(repo.updates))
	}
	if repo.updates[0]["status"] != types.JobStatusSucceeded {
		t.Fatalf("job should have succeeded, got updates %v", repo.updates[0])
	}
}
