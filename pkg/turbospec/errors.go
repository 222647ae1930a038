package turbospec

import (
	"fmt"
	"strings"
)

// Stage identifies which solver stage failed.
type Stage string

const (
	StageOpacity   Stage = "babsma"
	StageSynthesis Stage = "bsyn"
)

// InterpolatorError reports a failed interpolator invocation. The captured
// stderr travels with the error; the full output is also in the job log.
type InterpolatorError struct {
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *InterpolatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("interpolator: %v", e.Err)
	}
	return fmt.Sprintf("interpolator exited with code %d: %s", e.ExitCode, firstLine(e.Stderr))
}

// Unwrap returns the underlying execution error, if any.
func (e *InterpolatorError) Unwrap() error { return e.Err }

// SolverError reports a failed solver stage invocation.
type SolverError struct {
	Stage    Stage
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("solver %s exited with code %d: %s", e.Stage, e.ExitCode, firstLine(e.Stderr))
}

// Unwrap returns the underlying execution error, if any.
func (e *SolverError) Unwrap() error { return e.Err }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
