package synth

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
	"github.com/stellarsynth/stellarsynth/pkg/stores"
	"github.com/stellarsynth/stellarsynth/pkg/turbospec"
)

// stubResolver answers every point with a fixed function.
type stubResolver struct {
	resolve func(stellar.Point) (*atmosphere.Resolution, error)
}

func (s *stubResolver) Resolve(p stellar.Point) (*atmosphere.Resolution, error) {
	return s.resolve(p)
}

// stubInterp records interpolation calls without running anything.
type stubInterp struct {
	mu      sync.Mutex
	runs    int
	removed []string
	failRun error
}

func (s *stubInterp) WriteJobScript(p stellar.Point, set *atmosphere.BracketingSet) (string, string, error) {
	return "interpolate_" + p.ID() + ".script", "/interp/" + p.ID() + ".interpol", nil
}

func (s *stubInterp) Run(ctx context.Context, script, logPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return s.failRun
}

func (s *stubInterp) RemoveJobScript(script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, script)
	return nil
}

// stubSolver records stage invocations and can fail a single job by its
// point identifier.
type stubSolver struct {
	mu        sync.Mutex
	opacity   int
	synthesis int
	failID    string
	failErr   error
}

func (s *stubSolver) RunOpacity(ctx context.Context, controlPath, logPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opacity++
	return nil
}

func (s *stubSolver) RunSynthesis(ctx context.Context, controlPath, logPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesis++
	if s.failID != "" && strings.Contains(controlPath, s.failID) {
		return s.failErr
	}
	return nil
}

// memStore is an in-memory Store for observing pipeline persistence.
type memStore struct {
	mu      sync.Mutex
	created map[string]stores.JobStatus
	updated map[string]stores.JobStatus
}

func newMemStore() *memStore {
	return &memStore{
		created: make(map[string]stores.JobStatus),
		updated: make(map[string]stores.JobStatus),
	}
}

func (m *memStore) Init(context.Context) error    { return nil }
func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func (m *memStore) CreateRun(context.Context, *stores.Run) error { return nil }
func (m *memStore) FinishRun(context.Context, *stores.Run) error { return nil }
func (m *memStore) GetRun(context.Context, string) (*stores.Run, error) {
	return nil, errors.New("not implemented")
}
func (m *memStore) ListRuns(context.Context, int) ([]stores.Run, error) { return nil, nil }

func (m *memStore) CreateJob(_ context.Context, job *stores.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[job.ID] = job.Status
	return nil
}

func (m *memStore) UpdateJob(_ context.Context, job *stores.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[job.ID] = job.Status
	return nil
}

func (m *memStore) ListJobs(context.Context, string) ([]stores.Job, error) { return nil, nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Paths: config.PathsConfig{
			Output:           t.TempDir(),
			ModelAtmospheres: "/models",
			Linelists:        "/linelists",
		},
		Wavelength: config.WavelengthConfig{Min: 4500, Max: 6500, Step: 0.05},
		Solver:     config.SolverConfig{Compiler: "gfortran", TurbulenceCode: "01", XiFix: 1.0},
		Run:        config.RunConfig{Workers: 2},
	}
	ws := &Workspace{OutputDir: cfg.Paths.Output}
	if err := ws.Setup(); err != nil {
		t.Fatalf("workspace setup failed: %v", err)
	}
	return cfg
}

func catalogHitResolver(t *testing.T) *stubResolver {
	t.Helper()
	name := atmosphere.FormatFilename(5500, 4.2, -0.25, 0.1, "01")
	rec, ok := atmosphere.ParseFilename(name)
	if !ok {
		t.Fatalf("composed filename %q does not parse", name)
	}
	return &stubResolver{resolve: func(stellar.Point) (*atmosphere.Resolution, error) {
		return &atmosphere.Resolution{Hit: &rec}, nil
	}}
}

func testPoints(n int) []stellar.Point {
	points := make([]stellar.Point, n)
	for i := range points {
		points[i] = stellar.Point{Teff: 5000 + 100*i, LogG: 4.0, Z: -0.25}
	}
	return points
}

// TestPipelineCatalogHits tests the no-interpolation happy path: every job
// succeeds, both solver stages run per job, and control files land in the
// temp directory.
func TestPipelineCatalogHits(t *testing.T) {
	cfg := testConfig(t)
	interp := &stubInterp{}
	solver := &stubSolver{}
	store := newMemStore()

	pl := NewPipeline(Params{
		Config:    cfg,
		Resolver:  catalogHitResolver(t),
		Interp:    interp,
		Solver:    solver,
		LineLists: []string{"/linelists/atoms.list"},
		RunID:     "run-1",
		Store:     store,
	})

	points := testPoints(4)
	summary, jobs, err := pl.Run(context.Background(), points)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Succeeded != 4 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("summary = %d/%d/%d, want 4/0/0", summary.Succeeded, summary.Failed, summary.Skipped)
	}
	if interp.runs != 0 {
		t.Errorf("interpolator ran %d times for catalog hits", interp.runs)
	}
	if solver.opacity != 4 || solver.synthesis != 4 {
		t.Errorf("solver stages ran %d/%d times, want 4/4", solver.opacity, solver.synthesis)
	}

	for _, job := range jobs {
		if job.Status != StatusSuccess {
			t.Errorf("job %s status = %s, want success", job.ID, job.Status)
		}
		if job.Interpolated {
			t.Errorf("job %s marked interpolated on a catalog hit", job.ID)
		}
		if !strings.HasPrefix(job.Atmosphere, "/models/") {
			t.Errorf("job %s atmosphere = %q, want a catalog path", job.ID, job.Atmosphere)
		}
		for _, path := range []string{job.Context.OpacityControlPath, job.Context.SynthesisControlPath} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("control file %s missing: %v", path, err)
			}
		}
		if store.created[job.ID] != stores.JobStatusPending {
			t.Errorf("job %s not persisted as pending", job.ID)
		}
		if store.updated[job.ID] != stores.JobStatusSuccess {
			t.Errorf("job %s terminal state not persisted", job.ID)
		}
	}
}

// TestPipelineInterpolates tests the bracketed path: the interpolator runs
// per job and the control file uses the interpolated atmosphere.
func TestPipelineInterpolates(t *testing.T) {
	cfg := testConfig(t)
	interp := &stubInterp{}
	solver := &stubSolver{}

	var set atmosphere.BracketingSet
	resolver := &stubResolver{resolve: func(stellar.Point) (*atmosphere.Resolution, error) {
		return &atmosphere.Resolution{Bracket: &set}, nil
	}}

	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: resolver,
		Interp:   interp,
		Solver:   solver,
		RunID:    "run-2",
	})

	summary, jobs, err := pl.Run(context.Background(), testPoints(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("Succeeded = %d, want 2", summary.Succeeded)
	}
	if interp.runs != 2 {
		t.Errorf("interpolator ran %d times, want 2", interp.runs)
	}
	if len(interp.removed) != 2 {
		t.Errorf("removed %d job scripts, want 2", len(interp.removed))
	}

	for _, job := range jobs {
		if !job.Interpolated {
			t.Errorf("job %s not marked interpolated", job.ID)
		}
		if !strings.HasPrefix(job.Atmosphere, "/interp/") {
			t.Errorf("job %s atmosphere = %q, want interpolated path", job.ID, job.Atmosphere)
		}
		data, err := os.ReadFile(job.Context.OpacityControlPath)
		if err != nil {
			t.Fatalf("opacity control file missing: %v", err)
		}
		if !strings.Contains(string(data), "MARCS-FILE: .false.") {
			t.Errorf("job %s control file does not flag the interpolated model", job.ID)
		}
	}
}

// TestPipelineKeepsScriptsWithKeepTemp tests that job scripts survive when
// temp retention is on.
func TestPipelineKeepsScriptsWithKeepTemp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.KeepTemp = true
	interp := &stubInterp{}

	var set atmosphere.BracketingSet
	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: &stubResolver{resolve: func(stellar.Point) (*atmosphere.Resolution, error) {
			return &atmosphere.Resolution{Bracket: &set}, nil
		}},
		Interp: interp,
		Solver: &stubSolver{},
		RunID:  "run-3",
	})

	if _, _, err := pl.Run(context.Background(), testPoints(1)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(interp.removed) != 0 {
		t.Errorf("removed %d job scripts despite keep_temp", len(interp.removed))
	}
}

// TestPipelineFailureIsolation tests that one failing job does not stop
// its siblings and is classified correctly.
func TestPipelineFailureIsolation(t *testing.T) {
	cfg := testConfig(t)
	points := testPoints(4)
	failID := points[1].ID()

	solver := &stubSolver{
		failID:  failID,
		failErr: &turbospec.SolverError{Stage: turbospec.StageSynthesis, ExitCode: 9},
	}
	store := newMemStore()

	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: catalogHitResolver(t),
		Interp:   &stubInterp{},
		Solver:   solver,
		RunID:    "run-4",
		Store:    store,
	})

	summary, jobs, err := pl.Run(context.Background(), points)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Succeeded != 3 || summary.Failed != 1 {
		t.Fatalf("summary = %d/%d, want 3/1", summary.Succeeded, summary.Failed)
	}
	if summary.ByReason[FailureSolver] != 1 {
		t.Errorf("ByReason[solver_error] = %d, want 1", summary.ByReason[FailureSolver])
	}

	for _, job := range jobs {
		if job.ID == failID {
			if job.Status != StatusFailed {
				t.Errorf("job %s status = %s, want failed", job.ID, job.Status)
			}
			if store.updated[job.ID] != stores.JobStatusFailed {
				t.Errorf("failed job %s not persisted as failed", job.ID)
			}
		} else if job.Status != StatusSuccess {
			t.Errorf("sibling job %s status = %s, want success", job.ID, job.Status)
		}
	}
}

// TestPipelineResolutionFailures tests reason classification for the two
// search failure modes.
func TestPipelineResolutionFailures(t *testing.T) {
	cfg := testConfig(t)
	solver := &stubSolver{}

	resolver := &stubResolver{resolve: func(p stellar.Point) (*atmosphere.Resolution, error) {
		if p.Teff < 5100 {
			return nil, &atmosphere.MissingBracketError{Dimension: "teff", Direction: atmosphere.DirectionLower, Target: float64(p.Teff)}
		}
		return nil, &atmosphere.AmbiguousMatchError{Count: 2}
	}}

	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: resolver,
		Interp:   &stubInterp{},
		Solver:   solver,
		RunID:    "run-5",
	})

	summary, _, err := pl.Run(context.Background(), testPoints(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 2 {
		t.Fatalf("Failed = %d, want 2", summary.Failed)
	}
	if summary.ByReason[FailureMissingBracket] != 1 || summary.ByReason[FailureAmbiguousMatch] != 1 {
		t.Errorf("ByReason = %v, want one missing_bracket and one ambiguous_match", summary.ByReason)
	}
	if solver.opacity != 0 {
		t.Errorf("solver ran %d times for unresolvable points", solver.opacity)
	}
}

// TestPipelineCancellation tests that cancelling before feeding leaves
// jobs pending and counted as skipped.
func TestPipelineCancellation(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: catalogHitResolver(t),
		Interp:   &stubInterp{},
		Solver:   &stubSolver{},
		RunID:    "run-6",
	})

	summary, _, err := pl.Run(ctx, testPoints(3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", summary.Skipped)
	}
}

// TestPipelinePanicRecovery tests that a panicking job is contained,
// filed under internal_error, and does not take its siblings down.
func TestPipelinePanicRecovery(t *testing.T) {
	cfg := testConfig(t)
	points := testPoints(3)
	panicID := points[1].ID()

	name := atmosphere.FormatFilename(5500, 4.2, -0.25, 0.1, "01")
	rec, ok := atmosphere.ParseFilename(name)
	if !ok {
		t.Fatalf("composed filename %q does not parse", name)
	}
	resolver := &stubResolver{resolve: func(p stellar.Point) (*atmosphere.Resolution, error) {
		if p.ID() == panicID {
			panic("resolver blew up")
		}
		return &atmosphere.Resolution{Hit: &rec}, nil
	}}

	pl := NewPipeline(Params{
		Config:   cfg,
		Resolver: resolver,
		Interp:   &stubInterp{},
		Solver:   &stubSolver{},
		RunID:    "run-7",
	})

	summary, jobs, err := pl.Run(context.Background(), points)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %d/%d, want 2/1", summary.Succeeded, summary.Failed)
	}
	if summary.ByReason[FailureInternal] != 1 {
		t.Errorf("ByReason[internal_error] = %d, want 1", summary.ByReason[FailureInternal])
	}
	if summary.ByReason[FailureSolver] != 0 {
		t.Errorf("panic misfiled as solver_error: %v", summary.ByReason)
	}

	for _, job := range jobs {
		if job.ID == panicID {
			if job.Status != StatusFailed {
				t.Errorf("panicked job status = %s, want failed", job.Status)
			}
		} else if job.Status != StatusSuccess {
			t.Errorf("sibling job %s status = %s, want success", job.ID, job.Status)
		}
	}
}
