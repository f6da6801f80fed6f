package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/models"
)

// validLogLevels are the levels call_method's log_level option accepts.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Worker executes claimed jobs: before, perform, after, complete, with
// exception-to-failure mapping.
type Worker struct {
	Name string

	lifecycle *Lifecycle
	registry  *Registry
	logger    *common.Logger
	inline    *InlineMode
	hub       *EventHub
}

// NewWorker creates a Worker bound to a registry of job handlers. hub may
// be nil to disable event broadcasting.
func NewWorker(name string, lifecycle *Lifecycle, registry *Registry, logger *common.Logger, inline *InlineMode, hub *EventHub) *Worker {
	return &Worker{Name: name, lifecycle: lifecycle, registry: registry, logger: logger, inline: inline, hub: hub}
}

// Work executes one cycle of a claimed job's lifecycle. The returned
// bool always reports false in this implementation — it is reserved for
// batch processing, where a true value excludes the job from the
// worker's next lookup.
func (w *Worker) Work(ctx context.Context, job *models.Job) (bool, error) {
	if !job.Running() {
		return false, fmt.Errorf("%w: work requires a running job, got %s", ErrInvalidState, job.State)
	}

	handlers, ok := w.registry.lookup(job.PerformMethod)
	if !ok {
		// No handler registered at all: nothing to execute, nothing to fail.
		// The host is responsible for registering every perform_method it
		// enqueues jobs for.
		return false, w.lifecycle.Complete(ctx, job)
	}

	logger, err := w.callLogger(job)
	if err != nil {
		return false, err
	}

	execErr := w.run(ctx, job, handlers, logger)
	if execErr != nil {
		wrapped := fmt.Errorf("%w: %v", ErrUserPerformError, execErr)
		if failErr := w.lifecycle.Fail(ctx, job, w.Name, execErr); failErr != nil {
			return false, failErr
		}
		logger.Error().
			Str("job_id", job.ID).
			Str("worker_name", w.Name).
			Str("perform_method", job.PerformMethod).
			Err(execErr).
			Msg("job raised during execution")

		w.broadcast(ctx, "job_failed", job)

		if w.inline.Enabled() {
			return false, wrapped
		}
		return false, nil
	}

	if err := w.lifecycle.Complete(ctx, job); err != nil {
		return false, err
	}
	w.broadcast(ctx, "job_completed", job)
	return false, nil
}

func (w *Worker) broadcast(ctx context.Context, eventType string, job *models.Job) {
	if w.hub == nil {
		return
	}
	w.hub.Broadcast(models.JobEvent{Type: eventType, Job: job, Timestamp: time.Now()})
}

func (w *Worker) run(ctx context.Context, job *models.Job, h Handlers, logger *common.Logger) error {
	if h.Before != nil {
		if _, err := w.callMethod(ctx, job, h.Before, "before_"+job.PerformMethod, logger); err != nil {
			return err
		}
	}

	// A nil Perform is a silent miss, same as Before/After: the hooks that
	// are registered still run and the job completes.
	var ret any
	if h.Perform != nil {
		var err error
		ret, err = w.callMethod(ctx, job, h.Perform, job.PerformMethod, logger)
		if err != nil {
			return err
		}
	}

	if job.CollectOutput {
		if m, ok := ret.(map[string]any); ok {
			job.Result = m
		} else if ret != nil {
			job.Result = map[string]any{"result": ret}
		}
	}

	if h.After != nil {
		if _, err := w.callMethod(ctx, job, h.After, "after_"+job.PerformMethod, logger); err != nil {
			return err
		}
	}

	return nil
}

// callMethod invokes one registered hook, benchmarking it under the
// metric key rocketjob/{perform_method}/{method}.
func (w *Worker) callMethod(ctx context.Context, job *models.Job, fn HandlerFunc, method string, logger *common.Logger) (any, error) {
	start := time.Now()
	ret, err := fn(ctx, job)
	logger.Debug().
		Str("job_id", job.ID).
		Str("worker_name", w.Name).
		Dur("duration", time.Since(start)).
		Msg("rocketjob/" + job.PerformMethod + "/" + method)
	return ret, err
}

// callLogger resolves the logger a hook invocation should use, honoring
// a per-job log_level override. An unrecognized level fails with
// ErrBadArgument.
func (w *Worker) callLogger(job *models.Job) (*common.Logger, error) {
	if job.LogLevel == "" {
		return w.logger, nil
	}
	if !validLogLevels[job.LogLevel] {
		return nil, fmt.Errorf("%w: unknown log_level %q", ErrBadArgument, job.LogLevel)
	}
	return w.logger.WithLevel(job.LogLevel), nil
}
