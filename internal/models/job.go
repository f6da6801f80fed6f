// Package models holds the persistent record types shared by the job
// queue and the directory monitor.
package models

import "time"

// Job states.
const (
	JobStateQueued    = "queued"
	JobStateRunning   = "running"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)

// SubStateProcessing marks a running batch job as still claimable by
// additional workers.
const SubStateProcessing = "processing"

// Exception captures a failure raised during a job's hooks or perform
// method, or during a dirmon entry's scan/archive.
type Exception struct {
	ClassName  string `json:"class_name"`
	Message    string `json:"message"`
	Backtrace  string `json:"backtrace,omitempty"`
	WorkerName string `json:"worker_name,omitempty"`
}

// Job is the persistent unit of work dispatched to workers.
type Job struct {
	ID            string         `json:"id"`
	PerformMethod string         `json:"perform_method"`
	Arguments     []any          `json:"arguments,omitempty"`
	State         string         `json:"state"`
	SubState      string         `json:"sub_state,omitempty"`
	Priority      int            `json:"priority"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     time.Time      `json:"started_at,omitempty"`
	RunAt         *time.Time     `json:"run_at,omitempty"`
	WorkerName    string         `json:"worker_name,omitempty"`
	CollectOutput bool           `json:"collect_output"`
	Result        map[string]any `json:"result,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	Exception     *Exception     `json:"exception,omitempty"`
	LogLevel      string         `json:"log_level,omitempty"`
}

// Running reports whether the job is currently claimed and executing.
func (j *Job) Running() bool { return j.State == JobStateRunning }

// Failed reports whether the job ended in the failed terminal state.
func (j *Job) Failed() bool { return j.State == JobStateFailed }

// Completed reports whether the job ended in the completed terminal state.
func (j *Job) Completed() bool { return j.State == JobStateCompleted }

// Terminal reports whether the job has reached a state that never
// transitions again.
func (j *Job) Terminal() bool { return j.Completed() || j.Failed() }

// Expired reports whether ExpiresAt is set and in the past.
func (j *Job) Expired() bool {
	return j.ExpiresAt != nil && j.ExpiresAt.Before(time.Now())
}

// JobEvent is broadcast whenever a job transitions state, for observers
// such as the event hub. Purely observational.
type JobEvent struct {
	Type      string    `json:"type"` // "job_queued", "job_started", "job_completed", "job_failed"
	Job       *Job      `json:"job"`
	Timestamp time.Time `json:"timestamp"`
	QueueSize int       `json:"queue_size"`
}
