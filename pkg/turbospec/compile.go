package turbospec

import (
	"context"
	"fmt"
)

// Compile compiles the solver by running make in its exec directory.
// Done once per run before any job starts; a failure is fatal setup, not a
// per-job error.
func (s *Solver) Compile(ctx context.Context, logPath string) error {
	res, err := runTool(ctx, s.ExecDir, logPath, nil, "make")
	if err != nil {
		return fmt.Errorf("compiling solver: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("compiling solver: make exited with code %d: %s",
			res.ExitCode, firstLine(res.Stderr))
	}
	return nil
}

// Compile builds the interpol_modeles binary from its Fortran source, as
// the toolchain readme prescribes: <compiler> -o interpol_modeles
// interpol_modeles.f, run from the interpolator directory.
func (ip *Interpolator) Compile(ctx context.Context, compiler, logPath string) error {
	res, err := runTool(ctx, ip.Dir, logPath, nil,
		compiler, "-o", "interpol_modeles", "interpol_modeles.f")
	if err != nil {
		return fmt.Errorf("compiling interpolator: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("compiling interpolator: %s exited with code %d: %s",
			compiler, res.ExitCode, firstLine(res.Stderr))
	}
	return nil
}
