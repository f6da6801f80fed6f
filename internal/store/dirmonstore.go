package store

import (
	"context"
	"fmt"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const dirmonSelectFields = "entry_id as id, name, pattern, job_class_name, properties, archive_directory, state, exception"

// DirmonStore implements interfaces.DirmonStore using SurrealDB.
type DirmonStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewDirmonStore creates a new DirmonStore.
func NewDirmonStore(db *surrealdb.DB, logger *common.Logger) *DirmonStore {
	return &DirmonStore{db: db, logger: logger}
}

func (s *DirmonStore) Insert(ctx context.Context, entry *models.DirmonEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.State == "" {
		entry.State = models.DirmonStatePending
	}

	sql := `UPSERT $rid SET
		entry_id = $entry_id, name = $name, pattern = $pattern, job_class_name = $job_class_name,
		properties = $properties, archive_directory = $archive_directory, state = $state,
		exception = $exception`
	vars := dirmonVars(entry)
	vars["rid"] = surrealmodels.NewRecordID(dirmonTable, entry.ID)

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to insert dirmon entry: %w", err)
	}
	return nil
}

func (s *DirmonStore) Get(ctx context.Context, id string) (*models.DirmonEntry, error) {
	sql := "SELECT " + dirmonSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(dirmonTable, id)}

	results, err := surrealdb.Query[[]models.DirmonEntry](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get dirmon entry: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	entry := (*results)[0].Result[0]
	return &entry, nil
}

// FindByPattern backs the one-entry-per-pattern check: callers consult
// it before inserting, and the dirmon_entry table additionally carries
// a UNIQUE index on pattern as a backstop.
func (s *DirmonStore) FindByPattern(ctx context.Context, pattern string) (*models.DirmonEntry, error) {
	sql := "SELECT " + dirmonSelectFields + " FROM dirmon_entry WHERE pattern = $pattern LIMIT 1"
	vars := map[string]any{"pattern": pattern}

	results, err := surrealdb.Query[[]models.DirmonEntry](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to find dirmon entry by pattern: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	entry := (*results)[0].Result[0]
	return &entry, nil
}

func (s *DirmonStore) ListEnabled(ctx context.Context) ([]*models.DirmonEntry, error) {
	sql := "SELECT " + dirmonSelectFields + " FROM dirmon_entry WHERE state = $state"
	vars := map[string]any{"state": models.DirmonStateEnabled}

	results, err := surrealdb.Query[[]models.DirmonEntry](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled dirmon entries: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	rows := (*results)[0].Result
	entries := make([]*models.DirmonEntry, len(rows))
	for i := range rows {
		entries[i] = &rows[i]
	}
	return entries, nil
}

func (s *DirmonStore) Persist(ctx context.Context, entry *models.DirmonEntry) error {
	sql := `UPDATE $rid SET
		name = $name, pattern = $pattern, job_class_name = $job_class_name,
		properties = $properties, archive_directory = $archive_directory,
		state = $state, exception = $exception`
	vars := dirmonVars(entry)
	vars["rid"] = surrealmodels.NewRecordID(dirmonTable, entry.ID)

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to persist dirmon entry: %w", err)
	}
	return nil
}

func (s *DirmonStore) CountByState(ctx context.Context) (map[string]int, error) {
	type row struct {
		State string `json:"state"`
		Cnt   int    `json:"cnt"`
	}
	sql := "SELECT state, count() AS cnt FROM dirmon_entry GROUP BY state"
	results, err := surrealdb.Query[[]row](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count dirmon entries by state: %w", err)
	}
	counts := make(map[string]int)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			counts[r.State] = r.Cnt
		}
	}
	return counts, nil
}

func dirmonVars(entry *models.DirmonEntry) map[string]any {
	return map[string]any{
		"entry_id":          entry.ID,
		"name":              entry.Name,
		"pattern":           entry.Pattern,
		"job_class_name":    entry.JobClassName,
		"properties":        entry.Properties,
		"archive_directory": entry.ArchiveDirectory,
		"state":             entry.State,
		"exception":         entry.Exception,
	}
}

var _ interfaces.DirmonStore = (*DirmonStore)(nil)
