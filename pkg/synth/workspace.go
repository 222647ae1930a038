package synth

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace manages the run's output directory layout:
//
//	<output>/            final spectra, one per successful job
//	<output>/temp/       control files and opacity intermediates
//	<output>/logs/       per-job tool logs
//	<output>/config.yaml copy of the configuration that produced the run
type Workspace struct {
	OutputDir string
}

// Setup creates the output directory tree. Existing directories are
// reused so a run can write next to an earlier one's results.
func (w *Workspace) Setup() error {
	for _, dir := range []string{
		w.OutputDir,
		filepath.Join(w.OutputDir, "temp"),
		filepath.Join(w.OutputDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the intermediates directory.
func (w *Workspace) TempDir() string {
	return filepath.Join(w.OutputDir, "temp")
}

// CopyConfig snapshots the run configuration into the output directory
// so results stay interpretable after the original file changes.
func (w *Workspace) CopyConfig(configPath string) error {
	src, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening config for snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(w.OutputDir, "config.yaml"))
	if err != nil {
		return fmt.Errorf("creating config snapshot: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying config snapshot: %w", err)
	}
	return nil
}

// CleanTemp removes the intermediates directory after a run. Skipped
// when the run is configured to keep temp files.
func (w *Workspace) CleanTemp() error {
	if err := os.RemoveAll(w.TempDir()); err != nil {
		return fmt.Errorf("removing temp directory: %w", err)
	}
	return nil
}
