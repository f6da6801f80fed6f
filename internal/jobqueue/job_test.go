package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/models"
)

func newTestLifecycle() (*Lifecycle, *fakeJobStore) {
	store := newFakeJobStore()
	return NewLifecycle(store, common.NewSilentLogger()), store
}

func TestLifecycle_Start_SetsRunningAndStartedAt(t *testing.T) {
	lc, _ := newTestLifecycle()
	job := &models.Job{ID: "j1", State: models.JobStateQueued}

	if err := lc.Start(context.Background(), job); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.State != models.JobStateRunning {
		t.Errorf("state = %s, want running", job.State)
	}
	if job.StartedAt.IsZero() {
		t.Error("started_at should be set")
	}
}

func TestLifecycle_Start_FailsOnTerminalJob(t *testing.T) {
	lc, _ := newTestLifecycle()
	job := &models.Job{ID: "j1", State: models.JobStateCompleted}

	if err := lc.Start(context.Background(), job); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start on completed job = %v, want ErrInvalidTransition", err)
	}
}

// Completing twice fails (terminal states never
// transition back).
func TestLifecycle_Complete_IdempotentCallFails(t *testing.T) {
	lc, _ := newTestLifecycle()
	job := &models.Job{ID: "j1", State: models.JobStateRunning}

	if err := lc.Complete(context.Background(), job); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	if err := lc.Complete(context.Background(), job); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Complete = %v, want ErrInvalidTransition", err)
	}
}

func TestLifecycle_Fail_NoOpWhenAlreadyFailed(t *testing.T) {
	lc, _ := newTestLifecycle()
	job := &models.Job{ID: "j1", State: models.JobStateFailed, Exception: &models.Exception{Message: "first"}}

	if err := lc.Fail(context.Background(), job, "w2", errors.New("second")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if job.Exception.Message != "first" {
		t.Errorf("exception = %+v, want unchanged from the original failure", job.Exception)
	}
}

func TestLifecycle_Set_AppliesPartialPatchWithoutStateChange(t *testing.T) {
	lc, _ := newTestLifecycle()
	job := &models.Job{ID: "j1", State: models.JobStateRunning, Priority: 10}

	if err := lc.Set(context.Background(), job, func(j *models.Job) { j.Priority = 99 }); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if job.Priority != 99 {
		t.Errorf("Priority = %d, want 99", job.Priority)
	}
	if job.State != models.JobStateRunning {
		t.Errorf("state = %s, want unchanged running", job.State)
	}
}

func TestJob_Expired(t *testing.T) {
	job := &models.Job{}
	if job.Expired() {
		t.Error("job with no expires_at should not be expired")
	}
}
