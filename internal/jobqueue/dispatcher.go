package jobqueue

import (
	"context"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Dispatcher implements the next_job operation: the atomic claim of
// the highest-priority runnable job, with expired
// queued jobs reaped inline.
type Dispatcher struct {
	store     interfaces.JobStore
	lifecycle *Lifecycle
	logger    *common.Logger
	hub       *EventHub
}

// NewDispatcher creates a Dispatcher bound to a store.
func NewDispatcher(store interfaces.JobStore, logger *common.Logger, hub *EventHub) *Dispatcher {
	return &Dispatcher{
		store:     store,
		lifecycle: NewLifecycle(store, logger),
		logger:    logger,
		hub:       hub,
	}
}

// NextJob atomically claims the highest-priority runnable job not in
// skipIDs. Returns (nil, nil) if nothing is claimable.
//
// The store's ClaimNext performs one atomic find-and-modify attempt per
// call; this loop supplies the skip-expired-and-try-again behavior,
// since an expired candidate must be destroyed and the search retried
// rather than handed to a worker.
func (d *Dispatcher) NextJob(ctx context.Context, workerName string, skipIDs []string) (*models.Job, error) {
	skip := append([]string(nil), skipIDs...)

	for {
		job, alreadyRunning, err := d.store.ClaimNext(ctx, workerName, skip)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, nil
		}

		if alreadyRunning {
			// In-flight batch job (sub_state=processing): hand it to this
			// worker without re-firing start — started_at was set at the
			// original claim.
			return job, nil
		}

		if job.Expired() {
			if err := d.lifecycle.Destroy(ctx, job); err != nil {
				return nil, err
			}
			d.logger.Warn().Str("job_id", job.ID).Msg("destroyed expired job at claim time")
			skip = append(skip, job.ID)
			continue
		}

		job.StartedAt = time.Now()
		if err := d.store.Persist(ctx, job); err != nil {
			return nil, err
		}

		d.broadcastStarted(ctx, job)
		return job, nil
	}
}

func (d *Dispatcher) broadcastStarted(ctx context.Context, job *models.Job) {
	if d.hub == nil {
		return
	}
	counts, _ := d.store.CountByState(ctx)
	d.hub.Broadcast(models.JobEvent{
		Type:      "job_started",
		Job:       job,
		Timestamp: time.Now(),
		QueueSize: counts[models.JobStateQueued],
	})
}
