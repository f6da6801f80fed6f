package jobqueue

import (
	"context"
	"sync"

	"github.com/bobmcallan/jobforge/internal/models"
)

// HandlerFunc implements one hook of a job's execution contract. ret is
// captured as the job's result only for the Perform hook when
// collect_output is set.
type HandlerFunc func(ctx context.Context, job *models.Job) (ret any, err error)

// Handlers groups the before/perform/after hooks for one perform_method.
// Every entry is optional; a nil hook is a silent skip.
type Handlers struct {
	Before  HandlerFunc
	Perform HandlerFunc
	After   HandlerFunc
}

// DefaultsFunc applies class-level defaults to a freshly built job,
// before the caller's own configuration is applied.
type DefaultsFunc func(*models.Job)

// Registry maps a perform_method name to its handlers and optional
// defaults hook. One Registry is normally shared process-wide; it is safe
// for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handlers
	defaults map[string]DefaultsFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handlers),
		defaults: make(map[string]DefaultsFunc),
	}
}

// Register associates handlers with a perform_method name.
func (r *Registry) Register(performMethod string, h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[performMethod] = h
}

// RegisterDefaults registers the defaults hook for a perform_method name.
func (r *Registry) RegisterDefaults(performMethod string, fn DefaultsFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[performMethod] = fn
}

func (r *Registry) lookup(performMethod string) (Handlers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[performMethod]
	return h, ok
}

func (r *Registry) defaultsFor(performMethod string) (DefaultsFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.defaults[performMethod]
	return fn, ok
}
