// Package store adapts the job queue and directory monitor's storage
// contracts (interfaces.JobStore, interfaces.DirmonStore,
// interfaces.UploadJobStore) onto SurrealDB.
package store

import (
	"context"
	"fmt"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

const (
	jobTable    = "job"
	dirmonTable = "dirmon_entry"
)

// Manager owns the SurrealDB connection and exposes the typed stores the
// job queue and dirmon packages depend on.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	jobs   *JobStore
	dirmon *DirmonStore
}

// NewManager connects to SurrealDB, signs in, selects the configured
// namespace/database, and ensures the job and dirmon_entry tables exist.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Store.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Store.Username,
		"pass": config.Store.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to document store: %w", err)
	}

	if err := db.Use(ctx, config.Store.Namespace, config.Store.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	for _, table := range []string{jobTable, dirmonTable} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	// Unique index prevents two entries scanning identical patterns.
	if _, err := surrealdb.Query[any](ctx, db, "DEFINE INDEX IF NOT EXISTS dirmon_pattern_unique ON TABLE dirmon_entry COLUMNS pattern UNIQUE", nil); err != nil {
		return nil, fmt.Errorf("failed to define dirmon pattern index: %w", err)
	}

	m := &Manager{db: db, logger: logger}
	m.jobs = NewJobStore(db, logger)
	m.dirmon = NewDirmonStore(db, logger)

	logger.Info().
		Str("address", config.Store.Address).
		Str("namespace", config.Store.Namespace).
		Str("database", config.Store.Database).
		Msg("document store connected")

	return m, nil
}

// Jobs returns the job store.
func (m *Manager) Jobs() interfaces.JobStore { return m.jobs }

// Dirmon returns the dirmon entry store.
func (m *Manager) Dirmon() interfaces.DirmonStore { return m.dirmon }

// UploadJobs returns the upload-job store.
func (m *Manager) UploadJobs() interfaces.UploadJobStore { return m.jobs }

// Close releases the underlying connection.
func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}
