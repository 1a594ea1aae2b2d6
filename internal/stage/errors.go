package stage

import (
	"fmt"
	"time"
)

// TimeoutError indicates a stage exceeded its wall-clock budget and was
// terminated.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out after %s", e.Stage, e.Timeout)
}

// ExitError indicates a stage exited with a non-zero status. Stderr holds
// the captured standard-error text verbatim for operator diagnosis.
type ExitError struct {
	Stage  string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s stage exited with code %d: %s", e.Stage, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s stage exited with code %d", e.Stage, e.Code)
}

// StartError indicates the stage process could not be started at all,
// e.g. the executable is missing.
type StartError struct {
	Stage string
	Cause error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s stage: %v", e.Stage, e.Cause)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}
