package dirmon

import "sync"

// JobType describes a registered job class a DirmonEntry may target: the
// set of attribute names that may legally appear in its properties map.
type JobType struct {
	Name       string
	Attributes map[string]bool
}

// JobTypeRegistry resolves job_class_name strings to JobType descriptors.
// A plain lookup table populated at startup by the host application.
type JobTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]JobType
}

// NewJobTypeRegistry creates an empty registry.
func NewJobTypeRegistry() *JobTypeRegistry {
	return &JobTypeRegistry{types: make(map[string]JobType)}
}

// Register adds (or replaces) a job type under name, with the given
// settable attribute names.
func (r *JobTypeRegistry) Register(name string, attributes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attrs := make(map[string]bool, len(attributes))
	for _, a := range attributes {
		attrs[a] = true
	}
	r.types[name] = JobType{Name: name, Attributes: attrs}
}

// Resolve reports the JobType registered under name, if any.
func (r *JobTypeRegistry) Resolve(name string) (JobType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jt, ok := r.types[name]
	return jt, ok
}
