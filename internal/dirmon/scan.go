package dirmon

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/models"
)

// Scanner discovers files for dirmon entries: case-insensitive glob
// matching (braces and ** recursion via doublestar) filtered through the
// archive-directory heuristic, the whitelist, and a writability check.
type Scanner struct {
	whitelist       *Whitelist
	archiveToken    string
	logger          *common.Logger
	limiterInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Sometimes
}

// NewScanner creates a Scanner. archiveToken is the process-wide
// default_archive_directory token; paths containing it are always
// skipped, regardless of which entry's own ArchiveDirectory is
// configured. limiterInterval throttles repeated Each calls against a
// pathological pattern (e.g. "**/*" over a huge tree) so a misconfigured
// entry cannot busy-loop the dirmon driver; zero disables throttling.
func NewScanner(whitelist *Whitelist, archiveToken string, logger *common.Logger, limiterInterval time.Duration) *Scanner {
	return &Scanner{
		whitelist:       whitelist,
		archiveToken:    archiveToken,
		logger:          logger,
		limiterInterval: limiterInterval,
		limiters:        make(map[string]*rate.Sometimes),
	}
}

// limiterFor returns the per-pattern scan gate, or nil when throttling is
// disabled. Each pattern gets its own gate so one entry's scan never
// suppresses another's within the same poll tick.
func (s *Scanner) limiterFor(pattern string) *rate.Sometimes {
	if s.limiterInterval <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[pattern]
	if !ok {
		limiter = &rate.Sometimes{Interval: s.limiterInterval}
		s.limiters[pattern] = limiter
	}
	return limiter
}

// Each matches entry.Pattern against the filesystem and invokes yield
// for every path that survives all policy checks. An error stat-ing the
// pattern's base directory propagates (a missing base directory yields no
// matches); entries the walk cannot read are skipped. Per-file policy
// violations are logged and the file is simply skipped, never surfaced as
// an error.
func (s *Scanner) Each(ctx context.Context, entry *models.DirmonEntry, yield func(path string)) error {
	var candidates []string
	var globErr error

	scan := func() {
		candidates, globErr = caseInsensitiveGlob(entry.Pattern)
	}
	if limiter := s.limiterFor(entry.Pattern); limiter != nil {
		limiter.Do(scan)
	} else {
		scan()
	}
	if globErr != nil {
		return globErr
	}

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.considerCandidate(entry, candidate, yield)
	}
	return nil
}

func (s *Scanner) considerCandidate(entry *models.DirmonEntry, candidate string, yield func(path string)) {
	info, err := os.Lstat(candidate)
	if err != nil {
		return
	}
	if info.IsDir() {
		return
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Str("dirmon_entry", entry.Name).Str("pattern", entry.Pattern).Str("path", candidate).Msg("no such file, skipping")
			return
		}
		s.logger.Warn().Str("dirmon_entry", entry.Name).Err(err).Msg("failed to resolve candidate path, skipping")
		return
	}

	if s.archiveToken != "" && strings.Contains(resolved, s.archiveToken) {
		return
	}

	if !s.whitelist.Allows(resolved) {
		s.logger.Error().Str("dirmon_entry", entry.Name).Str("path", resolved).Err(ErrPolicyViolation).Msg("path rejected by whitelist")
		return
	}

	if !isWritable(resolved) {
		s.logger.Error().Str("dirmon_entry", entry.Name).Str("path", resolved).Err(ErrPolicyViolation).Msg("path is not writable, skipping")
		return
	}

	yield(resolved)
}

// isWritable reports whether the current principal can write to path, by
// attempting to open it for writing without truncating its contents.
func isWritable(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// caseInsensitiveGlob matches pattern against the filesystem
// case-insensitively. doublestar.Match itself is case-sensitive, so the
// base directory is walked once and every candidate path is compared
// against the lower-cased pattern in lower case.
func caseInsensitiveGlob(pattern string) ([]string, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	lowered := strings.ToLower(filepath.ToSlash(pattern))

	if _, err := os.Stat(base); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var matches []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		slashPath := filepath.ToSlash(path)
		ok, merr := doublestar.Match(lowered, strings.ToLower(slashPath))
		if merr == nil && ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
