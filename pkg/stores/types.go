// Package stores persists runs and per-job outcomes so a batch can be
// inspected after the fact: which points succeeded, which failed and why.
package stores

import (
	"context"
	"time"
)

// RunStatus represents the status of a synthesis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// JobStatus represents the terminal status of one synthesis job.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// Run represents one pipeline invocation.
type Run struct {
	ID          string     `json:"id"`
	ConfigPath  string     `json:"config_path"`
	Status      RunStatus  `json:"status"`
	Points      int        `json:"points"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Job represents one point's outcome within a run.
type Job struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	Teff         int        `json:"teff"`
	LogG         float64    `json:"logg"`
	Z            float64    `json:"z"`
	Mg           float64    `json:"mg"`
	Ca           float64    `json:"ca"`
	Status       JobStatus  `json:"status"`
	Reason       *string    `json:"reason,omitempty"`
	Interpolated bool       `json:"interpolated"`
	Atmosphere   string     `json:"atmosphere"`
	LogPath      string     `json:"log_path"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Store is the persistence interface the pipeline writes through. A nil
// store is valid; persistence is optional.
type Store interface {
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	ListJobs(ctx context.Context, runID string) ([]Job, error)
}
