package turbospec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testControls(dir string) *ControlFiles {
	return &ControlFiles{
		LambdaMin:   4500,
		LambdaMax:   6500,
		LambdaStep:  0.05,
		Metallicity: -0.25,
		Alpha:       0.1,
		Abundances: []Abundance{
			{Element: 12, Value: 7.7},
			{Element: 20, Value: 6.4},
		},
		AtmospherePath: "/models/p5500.mod",
		MarcsFile:      true,
		OpacityPath:    filepath.Join(dir, "opac_p5500"),
		ResultPath:     filepath.Join(dir, "p5500.spec"),
		LineLists:      []string{"/linelists/atoms.list", "/linelists/molecules.list"},
		XiFix:          1.0,
	}
}

// TestWriteOpacity tests the babsma control file content.
func TestWriteOpacity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "babsma.par")

	if err := testControls(dir).WriteOpacity(path); err != nil {
		t.Fatalf("WriteOpacity failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read control file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"LAMBDA_MIN: 4500",
		"LAMBDA_MAX: 6500",
		"LAMBDA_STEP: 0.05",
		"MODELINPUT: '/models/p5500.mod'",
		"MARCS-FILE: .true.",
		"METALLICITY: -0.25",
		"'ALPHA/Fe:' 0.10",
		"'INDIVIDUAL ABUNDANCES:' 2",
		"12  7.70",
		"20  6.40",
		"XIFIX: T",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("opacity control file is missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "{{") {
		t.Errorf("opacity control file has unsubstituted tokens:\n%s", content)
	}
}

// TestWriteOpacityInterpolatedModel tests the MARCS flag for interpolated
// atmospheres.
func TestWriteOpacityInterpolatedModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "babsma.par")

	c := testControls(dir)
	c.MarcsFile = false
	if err := c.WriteOpacity(path); err != nil {
		t.Fatalf("WriteOpacity failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "MARCS-FILE: .false.") {
		t.Error("expected MARCS-FILE: .false. for an interpolated model")
	}
}

// TestWriteSynthesis tests the bsyn control file content, including the
// count-prefixed line list manifest.
func TestWriteSynthesis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bsyn.par")

	if err := testControls(dir).WriteSynthesis(path); err != nil {
		t.Fatalf("WriteSynthesis failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read control file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"'INTENSITY/FLUX:' 'Flux'",
		"RESULTFILE: '" + filepath.Join(dir, "p5500.spec") + "'",
		"'NFILES   :' '2'",
		"/linelists/atoms.list",
		"/linelists/molecules.list",
		"SPHERICAL: .false.",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("synthesis control file is missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "{{") {
		t.Errorf("synthesis control file has unsubstituted tokens:\n%s", content)
	}
}

// TestCollectLineLists tests directory scanning with a stable sorted order.
func TestCollectLineLists(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_molecules.list", "a_atoms.list"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	paths, err := CollectLineLists(dir)
	if err != nil {
		t.Fatalf("CollectLineLists failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
	if filepath.Base(paths[0]) != "a_atoms.list" || filepath.Base(paths[1]) != "b_molecules.list" {
		t.Errorf("paths not sorted: %v", paths)
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
	}
}
