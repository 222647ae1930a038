package turbospec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Solver binaries, named as the toolchain installs them.
const (
	opacityBinary   = "babsma_lu"
	synthesisBinary = "bsyn_lu"
)

// Solver invokes the two-stage external solver. Each stage reads its
// control file on standard input and runs with the installation directory
// as its working directory, the way the toolchain expects to find its data
// files.
type Solver struct {
	// Dir is the solver installation directory.
	Dir string

	// ExecDir is the directory holding the compiled stage binaries
	// (Dir/exec for intel builds, Dir/exec-gf for gfortran).
	ExecDir string
}

// NewSolver locates the solver for the given compiler flavor.
func NewSolver(dir, compiler string) *Solver {
	execDir := filepath.Join(dir, "exec")
	if compiler == "gfortran" {
		execDir = filepath.Join(dir, "exec-gf")
	}
	return &Solver{Dir: dir, ExecDir: execDir}
}

// RunOpacity runs the opacity stage with the given control file on stdin.
func (s *Solver) RunOpacity(ctx context.Context, controlPath, logPath string) error {
	return s.runStage(ctx, StageOpacity, opacityBinary, controlPath, logPath)
}

// RunSynthesis runs the synthesis stage with the given control file on
// stdin. The opacity stage must have completed for the same job first.
func (s *Solver) RunSynthesis(ctx context.Context, controlPath, logPath string) error {
	return s.runStage(ctx, StageSynthesis, synthesisBinary, controlPath, logPath)
}

func (s *Solver) runStage(ctx context.Context, stage Stage, binary, controlPath, logPath string) error {
	control, err := os.Open(controlPath)
	if err != nil {
		return &SolverError{Stage: stage, Err: fmt.Errorf("opening control file: %w", err)}
	}
	defer control.Close()

	res, err := runTool(ctx, s.Dir, logPath, control, filepath.Join(s.ExecDir, binary))
	if err != nil {
		return &SolverError{Stage: stage, Err: err}
	}
	if res.ExitCode != 0 {
		return &SolverError{Stage: stage, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}
