package dirmon

import (
	"context"
	"sync"

	"github.com/bobmcallan/jobforge/internal/models"
)

// fakeDirmonStore is an in-memory interfaces.DirmonStore for unit tests.
type fakeDirmonStore struct {
	mu      sync.Mutex
	entries map[string]*models.DirmonEntry
}

func newFakeDirmonStore() *fakeDirmonStore {
	return &fakeDirmonStore{entries: make(map[string]*models.DirmonEntry)}
}

func (f *fakeDirmonStore) Insert(_ context.Context, entry *models.DirmonEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = "entry-" + entry.Pattern
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeDirmonStore) Get(_ context.Context, id string) (*models.DirmonEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeDirmonStore) FindByPattern(_ context.Context, pattern string) (*models.DirmonEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Pattern == pattern {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirmonStore) ListEnabled(_ context.Context) ([]*models.DirmonEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DirmonEntry
	for _, e := range f.entries {
		if e.State == models.DirmonStateEnabled {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDirmonStore) Persist(_ context.Context, entry *models.DirmonEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeDirmonStore) CountByState(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range f.entries {
		counts[e.State]++
	}
	return counts, nil
}

// fakeUploadJobStore is an in-memory interfaces.UploadJobStore for tests.
type fakeUploadJobStore struct {
	mu      sync.Mutex
	uploads []*models.UploadFileJob
}

func newFakeUploadJobStore() *fakeUploadJobStore {
	return &fakeUploadJobStore{}
}

func (f *fakeUploadJobStore) Create(_ context.Context, upload *models.UploadFileJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload)
	return nil
}
