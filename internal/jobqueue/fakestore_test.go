package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/jobforge/internal/models"
)

// fakeJobStore is an in-memory interfaces.JobStore for unit and
// concurrency tests; dispatcher and worker correctness is verified
// against it rather than a live database.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.Job)}
}

func (f *fakeJobStore) Insert(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) Get(_ context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

// ClaimNext mirrors the store's atomic compound claim: select the best
// candidate, then apply the guard under the same lock a real serializable
// find-and-modify would provide.
func (f *fakeJobStore) ClaimNext(_ context.Context, workerName string, skipIDs []string) (*models.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	skip := make(map[string]bool, len(skipIDs))
	for _, id := range skipIDs {
		skip[id] = true
	}

	var best *models.Job
	for _, j := range f.jobs {
		if skip[j.ID] {
			continue
		}
		ready := j.State == models.JobStateQueued ||
			(j.State == models.JobStateRunning && j.SubState == models.SubStateProcessing)
		if !ready {
			continue
		}
		if j.RunAt != nil && j.RunAt.After(time.Now()) {
			continue
		}
		if best == nil ||
			j.Priority < best.Priority ||
			(j.Priority == best.Priority && j.CreatedAt.Before(best.CreatedAt)) {
			best = j
		}
	}
	if best == nil {
		return nil, false, nil
	}

	wasRunning := best.State == models.JobStateRunning
	best.WorkerName = workerName
	best.State = models.JobStateRunning

	cp := *best
	return &cp, wasRunning, nil
}

func (f *fakeJobStore) Persist(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) Destroy(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

func (f *fakeJobStore) CountByState(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, j := range f.jobs {
		counts[j.State]++
	}
	return counts, nil
}

func (f *fakeJobStore) ResetOrphaned(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, j := range f.jobs {
		if j.State == models.JobStateRunning {
			j.State = models.JobStateQueued
			j.WorkerName = ""
			j.StartedAt = time.Time{}
			count++
		}
	}
	return count, nil
}

func (f *fakeJobStore) Create(_ context.Context, upload *models.UploadFileJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[upload.JobID] = &models.Job{ID: upload.JobID, State: models.JobStateQueued}
	return nil
}

func (f *fakeJobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}
