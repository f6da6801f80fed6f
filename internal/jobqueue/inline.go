package jobqueue

import "sync/atomic"

// InlineMode is the process-wide inline-execution switch, modeled as an
// injectable value rather than a true global so tests can run with
// independent instances.
type InlineMode struct {
	enabled atomic.Bool
}

// NewInlineMode creates an InlineMode with the given initial value.
func NewInlineMode(enabled bool) *InlineMode {
	m := &InlineMode{}
	m.enabled.Store(enabled)
	return m
}

// Enabled reports whether inline mode is currently on.
func (m *InlineMode) Enabled() bool { return m.enabled.Load() }

// Set updates inline mode.
func (m *InlineMode) Set(enabled bool) { m.enabled.Store(enabled) }
