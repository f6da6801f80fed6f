// Package jobqueue implements the job dispatch core: the atomic dispatcher
// claim, the job lifecycle state machine, the worker execution contract,
// and the build/later/now factory surface.
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Lifecycle drives the Job state machine against a JobStore. A Job is
// mutated only by its claiming worker between claim and terminal
// transition; Lifecycle itself holds no per-job state and is safe to share.
type Lifecycle struct {
	store  interfaces.JobStore
	logger *common.Logger
}

// NewLifecycle creates a Lifecycle bound to the given store.
func NewLifecycle(store interfaces.JobStore, logger *common.Logger) *Lifecycle {
	return &Lifecycle{store: store, logger: logger}
}

// Start transitions a queued job to running, recording started_at, and
// persists the change. Only the dispatcher should call this directly;
// workers receive already-running jobs.
func (l *Lifecycle) Start(ctx context.Context, job *models.Job) error {
	if job.Terminal() {
		return fmt.Errorf("%w: cannot start a %s job", ErrInvalidTransition, job.State)
	}
	job.State = models.JobStateRunning
	job.StartedAt = time.Now()
	if err := l.store.Persist(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	l.logger.Debug().Str("job_id", job.ID).Str("perform_method", job.PerformMethod).Msg("job started")
	return nil
}

// Complete marks a running job completed. Idempotent calls on an already
// terminal job fail with ErrInvalidTransition.
func (l *Lifecycle) Complete(ctx context.Context, job *models.Job) error {
	if job.Terminal() {
		return fmt.Errorf("%w: job %s already %s", ErrInvalidTransition, job.ID, job.State)
	}
	job.State = models.JobStateCompleted
	if err := l.store.Persist(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	l.logger.Debug().Str("job_id", job.ID).Msg("job completed")
	return nil
}

// Fail captures the exception and marks the job failed. No-op (returns nil)
// if the job is already failed.
func (l *Lifecycle) Fail(ctx context.Context, job *models.Job, workerName string, cause error) error {
	if job.Failed() {
		return nil
	}
	job.State = models.JobStateFailed
	job.Exception = &models.Exception{
		ClassName:  fmt.Sprintf("%T", cause),
		Message:    cause.Error(),
		WorkerName: workerName,
	}
	if err := l.store.Persist(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	l.logger.Warn().
		Str("job_id", job.ID).
		Str("worker_name", workerName).
		Err(cause).
		Msg("job failed")
	return nil
}

// Set applies a partial update without triggering a state transition.
func (l *Lifecycle) Set(ctx context.Context, job *models.Job, patch func(*models.Job)) error {
	patch(job)
	if err := l.store.Persist(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	return nil
}

// Destroy removes a job entirely (used for expired queued jobs, and by
// hosts purging terminal jobs).
func (l *Lifecycle) Destroy(ctx context.Context, job *models.Job) error {
	if err := l.store.Destroy(ctx, job.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	return nil
}
