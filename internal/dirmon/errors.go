package dirmon

import "errors"

// Error kinds specific to the directory monitor. Transition,
// store, and bad-argument failures reuse the jobqueue package's sentinels
// since both state machines share the same error vocabulary.
var (
	ErrNoSuchPath      = errors.New("no such path")
	ErrPolicyViolation = errors.New("policy violation")
)
