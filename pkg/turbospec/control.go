package turbospec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Control file templates for the two solver stages. Key order is fixed;
// the solver parses these line by line from its standard input.
const opacityControl = `PURE-LTE: .true.
LAMBDA_MIN: {{LAMBDA_MIN}}
LAMBDA_MAX: {{LAMBDA_MAX}}
LAMBDA_STEP: {{LAMBDA_STEP}}
MODELINPUT: '{{MODEL_INPUT}}'
MARCS-FILE: {{MARCS_FILE}}
MODELOPAC: '{{MODEL_OPAC}}'
METALLICITY: {{METALLICITY}}
'ALPHA/Fe:' {{ALPHA}}
'INDIVIDUAL ABUNDANCES:' {{NUM_ELEMENTS}}
{{ABUNDANCES}}XIFIX: T
{{XIFIX}}
`

const synthesisControl = `PURE-LTE: .true.
SEGMENTSFILE: ''
LAMBDA_MIN: {{LAMBDA_MIN}}
LAMBDA_MAX: {{LAMBDA_MAX}}
LAMBDA_STEP: {{LAMBDA_STEP}}
'INTENSITY/FLUX:' 'Flux'
ABFIND: .false.
MODELOPAC: '{{MODEL_OPAC}}'
RESULTFILE: '{{RESULT_FILE}}'
METALLICITY: {{METALLICITY}}
'ALPHA/Fe:' {{ALPHA}}
'INDIVIDUAL ABUNDANCES:' {{NUM_ELEMENTS}}
{{ABUNDANCES}}{{LINE_LISTS}}SPHERICAL: .false.
`

// Abundance is one entry of the individual-abundances block: an atomic
// number and its abundance value.
type Abundance struct {
	Element int
	Value   float64
}

// ControlFiles holds everything substituted into the per-job solver
// control files. Values are fixed when the job is built; the struct is
// never shared between jobs.
type ControlFiles struct {
	LambdaMin  float64
	LambdaMax  float64
	LambdaStep float64

	Metallicity float64
	Alpha       float64
	Abundances  []Abundance

	// AtmospherePath is the resolved model atmosphere, either a catalog
	// file or a freshly interpolated one.
	AtmospherePath string

	// MarcsFile is true when the atmosphere is an original catalog
	// model rather than an interpolated one.
	MarcsFile bool

	// OpacityPath is where the opacity stage writes its output and the
	// synthesis stage reads it back.
	OpacityPath string

	// ResultPath is the final spectrum location.
	ResultPath string

	// LineLists are the absolute paths of the line list files.
	LineLists []string

	// XiFix is the fixed microturbulent velocity in km/s.
	XiFix float64
}

// WriteOpacity renders and writes the opacity-stage control file.
func (c *ControlFiles) WriteOpacity(path string) error {
	content, err := Render(opacityControl, map[string]string{
		"LAMBDA_MIN":   fmt.Sprintf("%.0f", c.LambdaMin),
		"LAMBDA_MAX":   fmt.Sprintf("%.0f", c.LambdaMax),
		"LAMBDA_STEP":  fmt.Sprintf("%.2f", c.LambdaStep),
		"MODEL_INPUT":  c.AtmospherePath,
		"MARCS_FILE":   marcsFlag(c.MarcsFile),
		"MODEL_OPAC":   c.OpacityPath,
		"METALLICITY":  fmt.Sprintf("%.2f", c.Metallicity),
		"ALPHA":        fmt.Sprintf("%.2f", c.Alpha),
		"NUM_ELEMENTS": fmt.Sprintf("%d", len(c.Abundances)),
		"ABUNDANCES":   c.abundanceBlock(),
		"XIFIX":        fmt.Sprintf("%.1f", c.XiFix),
	})
	if err != nil {
		return fmt.Errorf("rendering opacity control file: %w", err)
	}
	return writeControl(path, content)
}

// WriteSynthesis renders and writes the synthesis-stage control file.
func (c *ControlFiles) WriteSynthesis(path string) error {
	content, err := Render(synthesisControl, map[string]string{
		"LAMBDA_MIN":   fmt.Sprintf("%.0f", c.LambdaMin),
		"LAMBDA_MAX":   fmt.Sprintf("%.0f", c.LambdaMax),
		"LAMBDA_STEP":  fmt.Sprintf("%.2f", c.LambdaStep),
		"MODEL_OPAC":   c.OpacityPath,
		"RESULT_FILE":  c.ResultPath,
		"METALLICITY":  fmt.Sprintf("%.2f", c.Metallicity),
		"ALPHA":        fmt.Sprintf("%.2f", c.Alpha),
		"NUM_ELEMENTS": fmt.Sprintf("%d", len(c.Abundances)),
		"ABUNDANCES":   c.abundanceBlock(),
		"LINE_LISTS":   lineListManifest(c.LineLists),
	})
	if err != nil {
		return fmt.Errorf("rendering synthesis control file: %w", err)
	}
	return writeControl(path, content)
}

// abundanceBlock formats the individual-abundances lines, one element per
// line, terminated by a newline so it splices cleanly into the template.
func (c *ControlFiles) abundanceBlock() string {
	var b strings.Builder
	for _, a := range c.Abundances {
		fmt.Fprintf(&b, "%d  %.2f\n", a.Element, a.Value)
	}
	return b.String()
}

// lineListManifest formats the count-prefixed manifest the synthesis stage
// expects: the number of files, then one absolute path per line.
func lineListManifest(paths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "'NFILES   :' '%d'\n", len(paths))
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}

// CollectLineLists gathers the absolute paths of every regular file in the
// line list directory, sorted for a stable manifest.
func CollectLineLists(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading line list directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		paths = append(paths, abs)
	}
	sort.Strings(paths)
	return paths, nil
}

func marcsFlag(marcs bool) string {
	if marcs {
		return ".true."
	}
	return ".false."
}

func writeControl(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing control file: %w", err)
	}
	return nil
}
