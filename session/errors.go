package session

import (
	"errors"
	"fmt"

	"extmem/process"
)

// ErrNotAttached is returned by memory operations on a session that is not attached
var ErrNotAttached = errors.New("session not attached")

// AttachError describes why an attach attempt failed.
// It unwraps to the process sentinel (ErrProcessNotFound, ErrHandleDenied,
// ErrModuleNotFound) and to the underlying cause.
type AttachError struct {
	Reason error
	Target string
	Err    error
}

func (e *AttachError) Error() string {
	switch e.Reason {
	case process.ErrProcessNotFound:
		return "process id not found for " + e.Target
	case process.ErrHandleDenied:
		return "failed to open process: " + e.Target
	case process.ErrModuleNotFound:
		return "module base address not found for process: " + e.Target
	default:
		return fmt.Sprintf("attach %s: %v", e.Target, e.Reason)
	}
}

func (e *AttachError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}
