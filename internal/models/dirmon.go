package models

// DirmonEntry states.
const (
	DirmonStatePending  = "pending"
	DirmonStateEnabled  = "enabled"
	DirmonStateDisabled = "disabled"
	DirmonStateFailed   = "failed"
)

// DirmonEntry is a persistent directory-monitoring rule: a glob pattern,
// the job type it enqueues on match, and the archive directory matched
// files are moved into before the upload job is enqueued.
type DirmonEntry struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Pattern         string         `json:"pattern"`
	JobClassName    string         `json:"job_class_name"`
	Properties      map[string]any `json:"properties,omitempty"`
	ArchiveDirectory string        `json:"archive_directory"`
	State           string         `json:"state"`
	Exception       *Exception     `json:"exception,omitempty"`
}

// Failed reports whether the entry has stopped scanning due to a policy
// or IO violation.
func (e *DirmonEntry) Failed() bool { return e.State == DirmonStateFailed }

// Enabled reports whether the entry is actively scanned.
func (e *DirmonEntry) Enabled() bool { return e.State == DirmonStateEnabled }

// DirmonEvent is broadcast on DirmonEntry state transitions.
type DirmonEvent struct {
	Type  string       `json:"type"` // "entry_enabled", "entry_disabled", "entry_failed"
	Entry *DirmonEntry `json:"entry"`
}

// UploadFileJob is the follow-on job a dirmon entry enqueues once it has
// archived a discovered file. The concrete perform logic lives in the
// host application.
type UploadFileJob struct {
	JobClassName      string         `json:"job_class_name"`
	Properties        map[string]any `json:"properties,omitempty"`
	Description       string         `json:"description"`
	UploadFileName    string         `json:"upload_file_name"`
	OriginalFileName  string         `json:"original_file_name"`
	JobID             string         `json:"job_id"`
}
