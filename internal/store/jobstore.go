package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/interfaces"
	"github.com/bobmcallan/jobforge/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// jobSelectFields aliases job_id to id so results decode straight into models.Job.
const jobSelectFields = "job_id as id, perform_method, arguments, state, sub_state, priority, created_at, started_at, run_at, worker_name, collect_output, result, expires_at, exception, log_level"

// JobStore implements interfaces.JobStore and interfaces.UploadJobStore
// using SurrealDB.
type JobStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewJobStore creates a new JobStore.
func NewJobStore(db *surrealdb.DB, logger *common.Logger) *JobStore {
	return &JobStore{db: db, logger: logger}
}

func (s *JobStore) Insert(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.State == "" {
		job.State = models.JobStateQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.PerformMethod == "" {
		job.PerformMethod = "perform"
	}

	sql := `UPSERT $rid SET
		job_id = $job_id, perform_method = $perform_method, arguments = $arguments,
		state = $state, sub_state = $sub_state, priority = $priority,
		created_at = $created_at, started_at = $started_at, run_at = $run_at,
		worker_name = $worker_name, collect_output = $collect_output, result = $result,
		expires_at = $expires_at, exception = $exception, log_level = $log_level`
	vars := jobVars(job)
	vars["rid"] = surrealmodels.NewRecordID(jobTable, job.ID)

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	sql := "SELECT " + jobSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(jobTable, id)}

	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	job := (*results)[0].Result[0]
	return &job, nil
}

// ClaimNext performs the dispatcher's atomic compound claim.
//
// It selects the highest-priority runnable document, queued-and-ready or
// running-with-sub_state=processing, ordered (priority asc, created_at
// asc), then promotes it with a guarded UPDATE: the WHERE clause
// re-asserts the same state the candidate was selected in, so a second
// worker racing the same candidate loses the update and the caller
// simply sees no row change.
func (s *JobStore) ClaimNext(ctx context.Context, workerName string, skipIDs []string) (*models.Job, bool, error) {
	now := time.Now()

	selectSQL := "SELECT " + jobSelectFields + ` FROM job
		WHERE (state = $queued OR (state = $running AND sub_state = $processing))
		AND (run_at = NONE OR run_at <= $now)`
	vars := map[string]any{
		"queued":     models.JobStateQueued,
		"running":    models.JobStateRunning,
		"processing": models.SubStateProcessing,
		"now":        now,
	}
	if len(skipIDs) > 0 {
		selectSQL += " AND job_id NOT IN $skip_ids"
		vars["skip_ids"] = skipIDs
	}
	selectSQL += " ORDER BY priority ASC, created_at ASC LIMIT 1"

	candidates, err := surrealdb.Query[[]models.Job](ctx, s.db, selectSQL, vars)
	if err != nil {
		return nil, false, fmt.Errorf("failed to select claim candidate: %w", err)
	}
	if candidates == nil || len(*candidates) == 0 || len((*candidates)[0].Result) == 0 {
		return nil, false, nil
	}
	candidate := (*candidates)[0].Result[0]
	wasRunning := candidate.State == models.JobStateRunning

	updateSQL := `UPDATE $rid SET worker_name = $worker, state = $running
		WHERE state = $prev_state AND (sub_state = $prev_sub OR sub_state = NONE)
		RETURN AFTER`
	updateVars := map[string]any{
		"rid":        surrealmodels.NewRecordID(jobTable, candidate.ID),
		"worker":     workerName,
		"running":    models.JobStateRunning,
		"prev_state": candidate.State,
		"prev_sub":   candidate.SubState,
	}
	updated, err := surrealdb.Query[[]models.Job](ctx, s.db, updateSQL, updateVars)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim job: %w", err)
	}
	if updated == nil || len(*updated) == 0 || len((*updated)[0].Result) == 0 {
		// The guard matched nothing: another worker promoted the candidate
		// between our select and update. The claim is theirs; the caller
		// retries on its next poll.
		return nil, false, nil
	}

	candidate.WorkerName = workerName
	candidate.State = models.JobStateRunning
	return &candidate, wasRunning, nil
}

func (s *JobStore) Persist(ctx context.Context, job *models.Job) error {
	sql := `UPDATE $rid SET
		state = $state, sub_state = $sub_state, worker_name = $worker_name,
		started_at = $started_at, collect_output = $collect_output, result = $result,
		exception = $exception, priority = $priority, run_at = $run_at`
	vars := jobVars(job)
	vars["rid"] = surrealmodels.NewRecordID(jobTable, job.ID)

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}
	return nil
}

func (s *JobStore) Destroy(ctx context.Context, id string) error {
	vars := map[string]any{"rid": surrealmodels.NewRecordID(jobTable, id)}
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE $rid", vars); err != nil {
		return fmt.Errorf("failed to destroy job: %w", err)
	}
	return nil
}

func (s *JobStore) CountByState(ctx context.Context) (map[string]int, error) {
	type row struct {
		State string `json:"state"`
		Cnt   int    `json:"cnt"`
	}
	sql := "SELECT state, count() AS cnt FROM job GROUP BY state"
	results, err := surrealdb.Query[[]row](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by state: %w", err)
	}
	counts := make(map[string]int)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			counts[r.State] = r.Cnt
		}
	}
	return counts, nil
}

// ResetOrphaned requeues every running job, clearing worker_name and
// started_at. Intended for host startup, before any worker loop begins
// polling, so a claim left behind by a killed process does not strand
// the job in running forever.
func (s *JobStore) ResetOrphaned(ctx context.Context) (int, error) {
	sql := `UPDATE job SET state = $queued, worker_name = NONE, started_at = NONE
		WHERE state = $running RETURN AFTER`
	vars := map[string]any{
		"queued":  models.JobStateQueued,
		"running": models.JobStateRunning,
	}
	results, err := surrealdb.Query[[]models.Job](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to reset orphaned jobs: %w", err)
	}
	count := 0
	if results != nil && len(*results) > 0 {
		count = len((*results)[0].Result)
	}
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("reset orphaned running jobs to queued")
	}
	return count, nil
}

// Create persists an UploadFileJob as a freshly queued job.
func (s *JobStore) Create(ctx context.Context, upload *models.UploadFileJob) error {
	job := &models.Job{
		ID:            upload.JobID,
		PerformMethod: "perform",
		State:         models.JobStateQueued,
		CreatedAt:     time.Now(),
		Arguments: []any{
			upload.JobClassName, upload.Properties, upload.Description,
			upload.UploadFileName, upload.OriginalFileName,
		},
	}
	return s.Insert(ctx, job)
}

func jobVars(job *models.Job) map[string]any {
	return map[string]any{
		"job_id":         job.ID,
		"perform_method": job.PerformMethod,
		"arguments":      job.Arguments,
		"state":          job.State,
		"sub_state":      job.SubState,
		"priority":       job.Priority,
		"created_at":     job.CreatedAt,
		"started_at":     job.StartedAt,
		"run_at":         job.RunAt,
		"worker_name":    job.WorkerName,
		"collect_output": job.CollectOutput,
		"result":         job.Result,
		"expires_at":     job.ExpiresAt,
		"exception":      job.Exception,
		"log_level":      job.LogLevel,
	}
}

// Compile-time checks.
var _ interfaces.JobStore = (*JobStore)(nil)
var _ interfaces.UploadJobStore = (*JobStore)(nil)
