package jobqueue

import "errors"

// Error kinds returned by the job queue.
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidState      = errors.New("invalid state for operation")
	ErrBadArgument       = errors.New("bad argument")
	ErrStoreError        = errors.New("document store error")
	ErrUserPerformError  = errors.New("user perform error")
)
