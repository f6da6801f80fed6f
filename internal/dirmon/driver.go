package dirmon

import (
	"context"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Driver polls enabled entries on ScanInterval, runs each
// through the Scanner, and enqueues an upload job per discovered file via
// Factory. A HintWatcher per entry may additionally nudge a scan early;
// the poll tick always fires regardless; no fsnotify event is ever the
// sole trigger.
type Driver struct {
	store        interfaces.DirmonStore
	lifecycle    *Lifecycle
	scanner      *Scanner
	factory      *Factory
	logger       *common.Logger
	scanInterval time.Duration

	hints map[string]*HintWatcher
	nudge chan struct{}
}

// NewDriver creates a Driver wiring the dirmon store, state machine,
// scanner, and factory together.
func NewDriver(store interfaces.DirmonStore, lifecycle *Lifecycle, scanner *Scanner, factory *Factory, logger *common.Logger, scanInterval time.Duration) *Driver {
	if scanInterval <= 0 {
		scanInterval = 5 * time.Second
	}
	return &Driver{
		store:        store,
		lifecycle:    lifecycle,
		scanner:      scanner,
		factory:      factory,
		logger:       logger,
		scanInterval: scanInterval,
		hints:        make(map[string]*HintWatcher),
		nudge:        make(chan struct{}, 1),
	}
}

// Run polls enabled entries on ScanInterval until ctx is cancelled. A
// HintWatcher per enabled pattern may fire an early scan between ticks;
// the tick always runs on schedule regardless.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.scanInterval)
	defer ticker.Stop()
	defer d.closeHints()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scanOnce(ctx)
		case <-d.nudge:
			d.scanOnce(ctx)
		}
	}
}

func (d *Driver) scanOnce(ctx context.Context) {
	entries, err := d.store.ListEnabled(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to list enabled dirmon entries")
		return
	}
	d.syncHints(entries)

	for _, entry := range entries {
		entry := entry
		err := d.scanner.Each(ctx, entry, func(path string) {
			if _, err := d.factory.Later(ctx, entry, path); err != nil {
				d.logger.Error().
					Str("dirmon_entry", entry.Name).
					Str("path", path).
					Err(err).
					Msg("failed to archive and enqueue discovered file")
			}
		})
		if err != nil {
			if failErr := d.lifecycle.Fail(ctx, entry, "dirmon-driver", err); failErr != nil {
				d.logger.Warn().Err(failErr).Msg("failed to record dirmon entry failure")
			}
		}
	}
}

// syncHints keeps one HintWatcher alive per enabled pattern: new patterns
// gain a watcher, patterns no longer enabled lose theirs. Watcher setup
// failure is logged and ignored — the poll tick still covers the entry.
func (d *Driver) syncHints(entries []*models.DirmonEntry) {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		seen[entry.Pattern] = true
		if _, ok := d.hints[entry.Pattern]; ok {
			continue
		}
		hw, err := NewHintWatcher(entry.Pattern, d.logger)
		if err != nil {
			d.logger.Warn().Str("dirmon_entry", entry.Name).Err(err).Msg("hint watcher unavailable, polling only")
			continue
		}
		d.hints[entry.Pattern] = hw
		go d.forwardNudges(hw)
	}

	for pattern, hw := range d.hints {
		if !seen[pattern] {
			_ = hw.Close()
			delete(d.hints, pattern)
		}
	}
}

func (d *Driver) forwardNudges(hw *HintWatcher) {
	for range hw.Nudges() {
		select {
		case d.nudge <- struct{}{}:
		default:
		}
	}
}

func (d *Driver) closeHints() {
	for pattern, hw := range d.hints {
		_ = hw.Close()
		delete(d.hints, pattern)
	}
}
