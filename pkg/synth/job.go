// Package synth runs the per-point synthesis pipeline: resolve an
// atmosphere source for each target point, interpolate when the catalog
// has no exact model, then drive the two-stage solver. Jobs run
// concurrently on a fixed worker pool with per-job failure isolation.
package synth

import (
	"errors"
	"time"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
	"github.com/stellarsynth/stellarsynth/pkg/turbospec"
)

// Status tracks a job through its state machine:
//
//	Pending -> (Interpolating?) -> ControlFilesGenerated -> SolverRunning
//	        -> Success | Failed
//
// Success and Failed are terminal; there are no automatic retries.
type Status string

const (
	StatusPending               Status = "pending"
	StatusInterpolating         Status = "interpolating"
	StatusControlFilesGenerated Status = "control_files_generated"
	StatusSolverRunning         Status = "solver_running"
	StatusSuccess               Status = "success"
	StatusFailed                Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// FailureKind classifies why a job failed. The run summary separates
// coverage gaps (missing bracket) from catalog data-quality problems
// (ambiguous match) from tool execution errors, because they call for
// different fixes.
type FailureKind string

const (
	FailureAmbiguousMatch FailureKind = "ambiguous_match"
	FailureMissingBracket FailureKind = "missing_bracket"
	FailureInterpolator   FailureKind = "interpolator_error"
	FailureSolver         FailureKind = "solver_error"

	// FailureInternal covers panics, abandoned jobs and any error that
	// carries no tool-specific type. Keeping these out of solver_error
	// stops a pipeline bug from reading as a toolchain problem.
	FailureInternal FailureKind = "internal_error"
)

// ClassifyFailure maps a job error to its failure kind.
func ClassifyFailure(err error) FailureKind {
	var ambiguous *atmosphere.AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		return FailureAmbiguousMatch
	}
	var missing *atmosphere.MissingBracketError
	if errors.As(err, &missing) {
		return FailureMissingBracket
	}
	var interp *turbospec.InterpolatorError
	if errors.As(err, &interp) {
		return FailureInterpolator
	}
	var solver *turbospec.SolverError
	if errors.As(err, &solver) {
		return FailureSolver
	}
	return FailureInternal
}

// Job is one point's unit of work. A job is created Pending, mutated only
// by the worker executing it, and terminal once Status leaves the running
// states.
type Job struct {
	// Point is the target the job synthesizes a spectrum for.
	Point stellar.Point

	// ID is the point-derived identifier used for every path the job
	// touches.
	ID string

	// Context holds the job's derived file paths.
	Context JobContext

	// Status is the job's position in the state machine.
	Status Status

	// Interpolated is true when the atmosphere source was produced by
	// the interpolator rather than found in the catalog.
	Interpolated bool

	// Atmosphere is the resolved model atmosphere path once known.
	Atmosphere string

	// Err carries the failure cause when Status is Failed.
	Err error

	StartedAt   time.Time
	CompletedAt time.Time
}

// NewJob builds a pending job for a point.
func NewJob(p stellar.Point, outputDir string) *Job {
	id := p.ID()
	return &Job{
		Point:   p,
		ID:      id,
		Context: NewJobContext(outputDir, id),
		Status:  StatusPending,
	}
}

// fail marks the job terminal with its cause.
func (j *Job) fail(err error) {
	j.Status = StatusFailed
	j.Err = err
	j.CompletedAt = time.Now()
}

// succeed marks the job terminal.
func (j *Job) succeed() {
	j.Status = StatusSuccess
	j.CompletedAt = time.Now()
}
