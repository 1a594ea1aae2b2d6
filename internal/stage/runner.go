// Package stage executes one external pipeline stage as a child process
// with a hard wall-clock timeout.
package stage

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on stage I/O after the process
// has been killed, so a grandchild holding the pipe cannot orphan a run.
const waitDelay = 5 * time.Second

// Spec describes a single stage invocation.
type Spec struct {
	Name    string
	Exe     string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result holds the outcome of a completed stage process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run executes the stage described by spec and waits for it to finish.
// The child runs with its working directory fixed to spec.Dir. On timeout
// the process is killed and a *TimeoutError is returned; a non-zero exit
// yields an *ExitError carrying the captured stderr. Stages are never
// retried here.
func Run(ctx context.Context, spec Spec) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Exe, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Stage: spec.Name, Timeout: spec.Timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &ExitError{
				Stage:  spec.Name,
				Code:   exitErr.ExitCode(),
				Stderr: stderr.String(),
			}
		}
		return nil, &StartError{Stage: spec.Name, Cause: runErr}
	}

	return &Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
