package synth

import (
	"fmt"
	"path/filepath"
)

// JobContext holds the file paths a single job reads and writes. It is
// computed once from the output directory and the job ID, then never
// mutated, so workers share nothing through it.
type JobContext struct {
	// OpacityControlPath is the babsma control file under temp/.
	OpacityControlPath string

	// SynthesisControlPath is the bsyn control file under temp/.
	SynthesisControlPath string

	// OpacityPath is the opacity stage's output, consumed by the
	// synthesis stage.
	OpacityPath string

	// ResultPath is the final spectrum file.
	ResultPath string

	// LogPath collects the combined stdout/stderr of every tool the job
	// runs.
	LogPath string
}

// NewJobContext derives every path for a job from the run's output
// directory and the job's point-derived ID.
func NewJobContext(outputDir, id string) JobContext {
	temp := filepath.Join(outputDir, "temp")
	return JobContext{
		OpacityControlPath:   filepath.Join(temp, fmt.Sprintf("%s_babsma.par", id)),
		SynthesisControlPath: filepath.Join(temp, fmt.Sprintf("%s_bsyn.par", id)),
		OpacityPath:          filepath.Join(temp, fmt.Sprintf("opac_%s", id)),
		ResultPath:           filepath.Join(outputDir, fmt.Sprintf("%s.spec", id)),
		LogPath:              filepath.Join(outputDir, "logs", fmt.Sprintf("%s.log", id)),
	}
}
