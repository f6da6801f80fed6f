package dirmon

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/bobmcallan/jobforge/internal/common"
)

// HintWatcher is a best-effort fsnotify watch on a DirmonEntry pattern's
// scan root. It nudges the poll loop to scan early on a filesystem
// event, but never replaces the poll loop as the discovery mechanism: a
// dropped or coalesced event only costs one extra poll interval of
// latency, never a missed file, since the regular poll still runs on
// its own schedule.
type HintWatcher struct {
	watcher *fsnotify.Watcher
	nudge   chan struct{}
	logger  *common.Logger
}

// NewHintWatcher watches the non-glob base directory of pattern.
func NewHintWatcher(pattern string, logger *common.Logger) (*HintWatcher, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(base); err != nil {
		w.Close()
		return nil, err
	}

	hw := &HintWatcher{watcher: w, nudge: make(chan struct{}, 1), logger: logger}
	go hw.run()
	return hw, nil
}

func (h *HintWatcher) run() {
	defer close(h.nudge)
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				select {
				case h.nudge <- struct{}{}:
				default:
				}
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("dirmon hint watcher error")
		}
	}
}

// Nudges returns the channel a poll loop can select on alongside its
// regular ticker to scan early. A receive is a hint only.
func (h *HintWatcher) Nudges() <-chan struct{} { return h.nudge }

// Close stops watching and releases the underlying fsnotify resources.
func (h *HintWatcher) Close() error { return h.watcher.Close() }
