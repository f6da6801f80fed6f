// Package interfaces defines the store and collaborator contracts the
// job queue and directory monitor depend on.
package interfaces

import (
	"context"

	"github.com/bobmcallan/jobforge/internal/models"
)

// JobStore is the persistence boundary the dispatcher and factory use.
// ClaimNext performs the single atomic compound update at the heart of
// dispatch: a queued job is claimed and promoted to running, or an
// already-running batch job (sub_state=processing) is handed to an
// additional worker without re-promotion.
type JobStore interface {
	Insert(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	// ClaimNext returns the claimed job and whether it was already
	// running before the claim (the batch sub-state branch), or
	// (nil, false, nil) if nothing was claimed: no candidate matched, or
	// a racing worker won the selected candidate first.
	ClaimNext(ctx context.Context, workerName string, skipIDs []string) (job *models.Job, alreadyRunning bool, err error)
	Persist(ctx context.Context, job *models.Job) error
	Destroy(ctx context.Context, id string) error
	CountByState(ctx context.Context) (map[string]int, error)
	// ResetOrphaned moves running jobs back to queued, clearing their
	// worker_name. A host calls this once at boot to recover jobs a
	// killed worker left claimed; orphan reaping is the host's concern,
	// never the dispatcher's. Returns the number of jobs reset.
	ResetOrphaned(ctx context.Context) (int, error)
}

// DirmonStore is the persistence boundary for directory-monitoring
// rules.
type DirmonStore interface {
	Insert(ctx context.Context, entry *models.DirmonEntry) error
	Get(ctx context.Context, id string) (*models.DirmonEntry, error)
	FindByPattern(ctx context.Context, pattern string) (*models.DirmonEntry, error)
	ListEnabled(ctx context.Context) ([]*models.DirmonEntry, error)
	Persist(ctx context.Context, entry *models.DirmonEntry) error
	CountByState(ctx context.Context) (map[string]int, error)
}

// UploadJobStore persists the follow-on job a dirmon entry enqueues
// after archiving a matched file.
type UploadJobStore interface {
	Create(ctx context.Context, job *models.UploadFileJob) error
}
