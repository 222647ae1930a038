package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a migrated SQLite store backed by a temp file.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestStoreMigrations tests that the schema tables exist after migration.
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"runs", "jobs"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestRunLifecycle tests creating, finishing and reading back a run.
func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:         "run-001",
		ConfigPath: "/configs/batch.yaml",
		Status:     RunStatusRunning,
		Points:     10,
		StartedAt:  time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if retrieved.Status != RunStatusRunning {
		t.Errorf("expected status %s, got %s", RunStatusRunning, retrieved.Status)
	}
	if retrieved.Points != 10 {
		t.Errorf("expected 10 points, got %d", retrieved.Points)
	}

	now := time.Now()
	run.Status = RunStatusPartial
	run.Succeeded = 8
	run.Failed = 2
	run.CompletedAt = &now
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	finished, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get finished run: %v", err)
	}
	if finished.Status != RunStatusPartial || finished.Succeeded != 8 || finished.Failed != 2 {
		t.Errorf("finished run = %s %d/%d, want partial 8/2",
			finished.Status, finished.Succeeded, finished.Failed)
	}
	if finished.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

// TestGetRunMissing tests the error for an unknown run ID.
func TestGetRunMissing(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetRun(context.Background(), "absent"); err == nil {
		t.Error("expected error for missing run, got nil")
	}
}

// TestListRuns tests newest-first ordering and the limit.
func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		run := &Run{
			ID:         "run-" + string(rune('a'+i)),
			ConfigPath: "/configs/batch.yaml",
			Status:     RunStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
	}
}

// TestJobLifecycle tests creating, updating and listing jobs within a run.
func TestJobLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:         "run-jobs",
		ConfigPath: "/configs/batch.yaml",
		Status:     RunStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	job := &Job{
		ID:      "p5500_g+4.25_z-0.250_mg+0.000_ca+0.000",
		RunID:   run.ID,
		Teff:    5500,
		LogG:    4.25,
		Z:       -0.25,
		Status:  JobStatusPending,
		LogPath: "/out/logs/p5500.log",
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	reason := "solver_error: solver bsyn exited with code 9"
	now := time.Now()
	job.Status = JobStatusFailed
	job.Reason = &reason
	job.Interpolated = true
	job.Atmosphere = "/out/temp/p5500.interpol"
	job.CompletedAt = &now
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("failed to update job: %v", err)
	}

	jobs, err := store.ListJobs(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	got := jobs[0]
	if got.Status != JobStatusFailed {
		t.Errorf("expected status %s, got %s", JobStatusFailed, got.Status)
	}
	if got.Reason == nil || *got.Reason != reason {
		t.Errorf("expected reason %q, got %v", reason, got.Reason)
	}
	if !got.Interpolated {
		t.Error("expected interpolated flag to persist")
	}
	if got.Teff != 5500 || got.LogG != 4.25 || got.Z != -0.25 {
		t.Errorf("point = (%d, %g, %g), want (5500, 4.25, -0.25)", got.Teff, got.LogG, got.Z)
	}
}
