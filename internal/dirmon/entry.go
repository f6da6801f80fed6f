// Package dirmon implements the directory-monitor entry: the persistent
// scanning rule, its state machine, path whitelisting, cross-partition
// archival, and the upload-job enqueue that follows a discovered file.
package dirmon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/jobqueue"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Lifecycle drives the DirmonEntry state machine: pending → enabled →
// {disabled, failed}, plus disabled → enabled re-activation. All
// transitions persist via store; invalid transitions fail with
// jobqueue.ErrInvalidTransition without touching the in-memory entry.
type Lifecycle struct {
	store    interfaces.DirmonStore
	registry *JobTypeRegistry
	logger   *common.Logger
	hub      *jobqueue.EventHub

	mu     sync.Mutex
	recent []Transition
}

// Transition records one state change for operability inspection.
type Transition struct {
	EntryID string
	Name    string
	From    string
	To      string
	At      time.Time
}

// recentTransitionCap bounds the in-memory transition history.
const recentTransitionCap = 64

// NewLifecycle creates a Lifecycle bound to a DirmonStore and job-type
// registry. hub may be nil to disable event broadcasting.
func NewLifecycle(store interfaces.DirmonStore, registry *JobTypeRegistry, logger *common.Logger, hub *jobqueue.EventHub) *Lifecycle {
	return &Lifecycle{store: store, registry: registry, logger: logger, hub: hub}
}

// RecentTransitions returns a snapshot of the most recent state changes,
// newest last.
func (l *Lifecycle) RecentTransitions() []Transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transition, len(l.recent))
	copy(out, l.recent)
	return out
}

func (l *Lifecycle) record(entry *models.DirmonEntry, from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent = append(l.recent, Transition{
		EntryID: entry.ID,
		Name:    entry.Name,
		From:    from,
		To:      to,
		At:      time.Now(),
	})
	if len(l.recent) > recentTransitionCap {
		l.recent = l.recent[len(l.recent)-recentTransitionCap:]
	}
}

// Create validates and persists a new DirmonEntry, enforcing
// one-entry-per-pattern ahead of the store's unique index as a
// friendlier error path. The entry starts pending.
func (l *Lifecycle) Create(ctx context.Context, entry *models.DirmonEntry) error {
	if errs := Validate(l.registry, entry); len(errs) > 0 {
		return fmt.Errorf("%w: %v", jobqueue.ErrBadArgument, errs)
	}

	existing, err := l.store.FindByPattern(ctx, entry.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", jobqueue.ErrStoreError, err)
	}
	if existing != nil {
		return fmt.Errorf("%w: pattern %q already has a dirmon entry", jobqueue.ErrBadArgument, entry.Pattern)
	}

	entry.State = models.DirmonStatePending
	if err := l.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", jobqueue.ErrStoreError, err)
	}
	return nil
}

// Enable transitions pending or disabled entries to enabled.
func (l *Lifecycle) Enable(ctx context.Context, entry *models.DirmonEntry) error {
	switch entry.State {
	case models.DirmonStatePending, models.DirmonStateDisabled:
	default:
		return fmt.Errorf("%w: cannot enable a %s dirmon entry", jobqueue.ErrInvalidTransition, entry.State)
	}
	from := entry.State
	entry.State = models.DirmonStateEnabled
	entry.Exception = nil
	if err := l.persist(ctx, entry); err != nil {
		return err
	}
	l.record(entry, from, entry.State)
	l.broadcast("entry_enabled", entry)
	return nil
}

// Disable transitions enabled or failed entries to disabled.
func (l *Lifecycle) Disable(ctx context.Context, entry *models.DirmonEntry) error {
	switch entry.State {
	case models.DirmonStateEnabled, models.DirmonStateFailed:
	default:
		return fmt.Errorf("%w: cannot disable a %s dirmon entry", jobqueue.ErrInvalidTransition, entry.State)
	}
	from := entry.State
	entry.State = models.DirmonStateDisabled
	if err := l.persist(ctx, entry); err != nil {
		return err
	}
	l.record(entry, from, entry.State)
	l.broadcast("entry_disabled", entry)
	return nil
}

// Fail transitions an enabled entry to failed, capturing the exception.
// The exception is always recorded before the state is persisted.
func (l *Lifecycle) Fail(ctx context.Context, entry *models.DirmonEntry, workerName string, cause error) error {
	if entry.State != models.DirmonStateEnabled {
		return fmt.Errorf("%w: cannot fail a %s dirmon entry", jobqueue.ErrInvalidTransition, entry.State)
	}
	entry.Exception = &models.Exception{
		ClassName:  fmt.Sprintf("%T", cause),
		Message:    cause.Error(),
		WorkerName: workerName,
	}
	entry.State = models.DirmonStateFailed
	if err := l.persist(ctx, entry); err != nil {
		return err
	}
	l.record(entry, models.DirmonStateEnabled, entry.State)
	l.logger.Error().
		Str("dirmon_entry", entry.Name).
		Str("worker_name", workerName).
		Err(cause).
		Msg("dirmon entry failed")
	l.broadcast("entry_failed", entry)
	return nil
}

func (l *Lifecycle) persist(ctx context.Context, entry *models.DirmonEntry) error {
	if err := l.store.Persist(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", jobqueue.ErrStoreError, err)
	}
	return nil
}

func (l *Lifecycle) broadcast(eventType string, entry *models.DirmonEntry) {
	if l.hub == nil {
		return
	}
	l.hub.Broadcast(models.DirmonEvent{Type: eventType, Entry: entry})
}

// CountsByState aggregates dirmon entries by state. States with zero
// entries are absent from the returned map.
func (l *Lifecycle) CountsByState(ctx context.Context) (map[string]int, error) {
	counts, err := l.store.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jobqueue.ErrStoreError, err)
	}
	return counts, nil
}

// Validate checks a DirmonEntry's save-time rules: required and
// whitespace-trimmed pattern/job_class_name/archive_directory, a
// resolvable job_class_name, and properties keys that are all settable
// attributes on the resolved type. It mutates entry in place, trimming
// whitespace from the three required fields, and returns one error per
// violation.
func Validate(registry *JobTypeRegistry, entry *models.DirmonEntry) []error {
	var errs []error

	entry.Pattern = strings.TrimSpace(entry.Pattern)
	entry.JobClassName = strings.TrimSpace(entry.JobClassName)
	entry.ArchiveDirectory = strings.TrimSpace(entry.ArchiveDirectory)

	if entry.Pattern == "" {
		errs = append(errs, fmt.Errorf("pattern is required"))
	}
	if entry.ArchiveDirectory == "" {
		errs = append(errs, fmt.Errorf("archive_directory is required"))
	}

	if entry.JobClassName == "" {
		errs = append(errs, fmt.Errorf("job_class_name is required"))
		return errs
	}

	jt, ok := registry.Resolve(entry.JobClassName)
	if !ok {
		errs = append(errs, fmt.Errorf("job_class_name %q does not resolve to a registered job type", entry.JobClassName))
		return errs
	}
	for key := range entry.Properties {
		if !jt.Attributes[key] {
			errs = append(errs, fmt.Errorf("properties key %q is not a settable attribute on %s", key, entry.JobClassName))
		}
	}
	return errs
}
