package dirmon

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Whitelist is the process-wide concurrent ordered set of canonical
// absolute path prefixes gating file discovery. An empty
// whitelist disables the check entirely — every candidate path is
// allowed.
//
// Modeled as an injectable value rather than a true global so tests can
// run with independent instances.
type Whitelist struct {
	mu    sync.RWMutex
	paths []string
}

// NewWhitelist creates a Whitelist seeded from the given paths. Seed
// paths that fail to canonicalize are skipped; callers that need to
// observe the failure should call Add directly instead.
func NewWhitelist(seed ...string) *Whitelist {
	w := &Whitelist{}
	for _, p := range seed {
		_, _ = w.Add(p)
	}
	return w
}

// Paths returns a snapshot copy of the current whitelist.
func (w *Whitelist) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// Add canonicalizes p via realpath, appends it if not already present,
// and returns the canonical string. Fails with ErrNoSuchPath if p does
// not resolve to an existing filesystem entry.
func (w *Whitelist) Add(p string) (string, error) {
	canon, err := canonicalize(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoSuchPath, p)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.paths {
		if existing == canon {
			return canon, nil
		}
	}
	w.paths = append(w.paths, canon)
	return canon, nil
}

// Delete canonicalizes p and removes it from the whitelist,
// deduplicating in the process.
func (w *Whitelist) Delete(p string) error {
	canon, err := canonicalize(p)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoSuchPath, p)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.paths[:0:0]
	for _, existing := range w.paths {
		if existing != canon {
			kept = append(kept, existing)
		}
	}
	w.paths = kept
	return nil
}

// Allows reports whether candidate is permitted by the whitelist: true
// unconditionally when the whitelist is empty, otherwise true only when
// candidate has one of the canonical paths as a prefix.
func (w *Whitelist) Allows(candidate string) bool {
	paths := w.Paths()
	if len(paths) == 0 {
		return true
	}
	for _, p := range paths {
		if strings.HasPrefix(candidate, p) {
			return true
		}
	}
	return false
}

func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
