package store

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateJob is returned when a job id is created twice.
	ErrDuplicateJob = errors.New("job already exists")
	// ErrDuplicateChunk is returned when a (job, chunk index) pair is
	// registered twice.
	ErrDuplicateChunk = errors.New("chunk already registered")
	// ErrUnknownJob is returned when an operation targets a job that was
	// never created.
	ErrUnknownJob = errors.New("unknown job")
	// ErrUnknownChunk is returned when a completion targets a chunk that was
	// never registered.
	ErrUnknownChunk = errors.New("unknown chunk")
	// ErrAlreadyFinalized guards against a double finalize trigger.
	ErrAlreadyFinalized = errors.New("job already finalized")
	// ErrJobFailed is returned when an operation targets a job in the failed
	// terminal state.
	ErrJobFailed = errors.New("job has failed")
)

// isUniqueViolation recognizes sqlite unique-constraint failures without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
