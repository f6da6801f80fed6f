package jobqueue

import (
	"context"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Factory is the job construction and enqueue surface: build, later,
// now, the perform_* sugar, and the rocket_job defaults registration.
type Factory struct {
	store     interfaces.JobStore
	registry  *Registry
	lifecycle *Lifecycle
	inline    *InlineMode
	logger    *common.Logger
	hub       *EventHub
}

// NewFactory creates a Factory bound to a store, registry, and inline-mode
// switch. hub may be nil to disable event broadcasting.
func NewFactory(store interfaces.JobStore, registry *Registry, inline *InlineMode, logger *common.Logger, hub *EventHub) *Factory {
	return &Factory{
		store:     store,
		registry:  registry,
		lifecycle: NewLifecycle(store, logger),
		inline:    inline,
		logger:    logger,
		hub:       hub,
	}
}

// Build constructs an in-memory job, applies the registered defaults hook
// (if any), then the caller's configuration function, without persisting.
func Build(f *Factory, performMethod string, args []any, configure func(*models.Job)) *models.Job {
	job := &models.Job{
		PerformMethod: performMethod,
		Arguments:     args,
		State:         models.JobStateQueued,
		CreatedAt:     time.Now(),
	}
	if defaults, ok := f.registry.defaultsFor(performMethod); ok {
		defaults(job)
	}
	if configure != nil {
		configure(job)
	}
	return job
}

// Later persists a built job as queued, or — when inline mode is on —
// delegates straight to Now.
func (f *Factory) Later(ctx context.Context, performMethod string, args []any, configure func(*models.Job)) (*models.Job, error) {
	job := Build(f, performMethod, args, configure)
	if f.inline.Enabled() {
		return f.runInline(ctx, job)
	}
	if err := f.store.Insert(ctx, job); err != nil {
		return nil, err
	}
	f.broadcastQueued(ctx, job)
	return job, nil
}

// Now builds a job and runs it synchronously to completion using a
// fabricated worker named "inline" — no persistence, no dispatcher.
func (f *Factory) Now(ctx context.Context, performMethod string, args []any, configure func(*models.Job)) (*models.Job, error) {
	job := Build(f, performMethod, args, configure)
	return f.runInline(ctx, job)
}

func (f *Factory) runInline(ctx context.Context, job *models.Job) (*models.Job, error) {
	job.State = models.JobStateRunning
	job.StartedAt = time.Now()

	worker := NewWorker("inline", newNoopLifecycle(), f.registry, f.logger, f.inline, nil)
	for job.Running() {
		done, err := worker.Work(ctx, job)
		if err != nil {
			return job, err
		}
		if done {
			break
		}
	}
	return job, nil
}

// PerformLater is sugar for Later with perform_method = "perform".
func (f *Factory) PerformLater(ctx context.Context, args []any, configure func(*models.Job)) (*models.Job, error) {
	return f.Later(ctx, "perform", args, configure)
}

// PerformNow is sugar for Now with perform_method = "perform".
func (f *Factory) PerformNow(ctx context.Context, args []any, configure func(*models.Job)) (*models.Job, error) {
	return f.Now(ctx, "perform", args, configure)
}

// PerformBuild is sugar for Build with perform_method = "perform".
func PerformBuild(f *Factory, args []any, configure func(*models.Job)) *models.Job {
	return Build(f, "perform", args, configure)
}

// RocketJob registers a defaults hook for perform_method, returning f
// for chaining.
func (f *Factory) RocketJob(performMethod string, defaults DefaultsFunc) *Factory {
	f.registry.RegisterDefaults(performMethod, defaults)
	return f
}

func (f *Factory) broadcastQueued(ctx context.Context, job *models.Job) {
	if f.hub == nil {
		return
	}
	counts, _ := f.store.CountByState(ctx)
	f.hub.Broadcast(models.JobEvent{
		Type:      "job_queued",
		Job:       job,
		Timestamp: time.Now(),
		QueueSize: counts[models.JobStateQueued],
	})
}

// noopStore backs the inline worker's Lifecycle: Now never persists,
// so Complete/Fail only mutate the in-memory job.
type noopStore struct{ interfaces.JobStore }

func (noopStore) Persist(context.Context, *models.Job) error { return nil }
func (noopStore) Destroy(context.Context, string) error       { return nil }

func newNoopLifecycle() *Lifecycle {
	return NewLifecycle(noopStore{}, common.NewSilentLogger())
}
