package turbospec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

func testBracket(t *testing.T) *atmosphere.BracketingSet {
	t.Helper()
	var set atmosphere.BracketingSet
	i := 0
	for _, teff := range []int{5250, 5750} {
		for _, logg := range []float64{4.0, 4.5} {
			for _, z := range []float64{-0.5, 0.0} {
				name := atmosphere.FormatFilename(teff, logg, z, stellar.Alpha(z), "01")
				rec, ok := atmosphere.ParseFilename(name)
				if !ok {
					t.Fatalf("composed filename %q does not parse", name)
				}
				set[i] = rec
				i++
			}
		}
	}
	return &set
}

// TestInstallTemplate tests that the reusable script lands in the
// interpolator directory as an executable.
func TestInstallTemplate(t *testing.T) {
	ip := &Interpolator{Dir: t.TempDir()}
	if err := ip.InstallTemplate(); err != nil {
		t.Fatalf("InstallTemplate failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(ip.Dir, TemplateScriptName))
	if err != nil {
		t.Fatalf("template script missing: %v", err)
	}
	if info.Mode()&0o100 == 0 {
		t.Error("template script is not executable")
	}
}

// TestWriteJobScript tests per-job script rendering: every token
// substituted, the eight model filenames in corner order, and the
// deterministic output path.
func TestWriteJobScript(t *testing.T) {
	ip := &Interpolator{
		Dir:       t.TempDir(),
		ModelDir:  "/models",
		OutputDir: "/out",
	}
	p := stellar.Point{Teff: 5500, LogG: 4.25, Z: -0.25}
	set := testBracket(t)

	script, outPath, err := ip.WriteJobScript(p, set)
	if err != nil {
		t.Fatalf("WriteJobScript failed: %v", err)
	}

	if script != "interpolate_"+p.ID()+".script" {
		t.Errorf("script name = %q, want point-derived name", script)
	}
	if outPath != "/out/"+p.ID()+".interpol" {
		t.Errorf("outPath = %q, want /out/%s.interpol", outPath, p.ID())
	}

	data, err := os.ReadFile(filepath.Join(ip.Dir, script))
	if err != nil {
		t.Fatalf("failed to read job script: %v", err)
	}
	content := string(data)

	if strings.Contains(content, "{{") {
		t.Errorf("job script has unsubstituted tokens:\n%s", content)
	}
	if !strings.Contains(content, "set model_path = /models") {
		t.Error("job script is missing the model path")
	}
	for i, rec := range set {
		if !strings.Contains(content, rec.Filename) {
			t.Errorf("job script is missing model%d filename %q", i+1, rec.Filename)
		}
	}
	// Corner order must survive into the script's model slots.
	lowIdx := strings.Index(content, "set model1 = "+set[0].Filename)
	highIdx := strings.Index(content, "set model8 = "+set[7].Filename)
	if lowIdx < 0 || highIdx < 0 || lowIdx > highIdx {
		t.Error("bracketing corners are not in slot order")
	}
}

// TestWriteJobScriptDistinctJobs tests that two jobs get distinct script
// names, so parallel interpolations never clobber each other.
func TestWriteJobScriptDistinctJobs(t *testing.T) {
	ip := &Interpolator{
		Dir:       t.TempDir(),
		ModelDir:  "/models",
		OutputDir: "/out",
	}
	set := testBracket(t)

	a, _, err := ip.WriteJobScript(stellar.Point{Teff: 5400, LogG: 4.2, Z: -0.3}, set)
	if err != nil {
		t.Fatalf("first WriteJobScript failed: %v", err)
	}
	b, _, err := ip.WriteJobScript(stellar.Point{Teff: 5600, LogG: 4.3, Z: -0.2}, set)
	if err != nil {
		t.Fatalf("second WriteJobScript failed: %v", err)
	}
	if a == b {
		t.Errorf("both jobs got script name %q", a)
	}
}

// TestWriteJobScriptAbundanceOnlyDifference tests that points sharing an
// interpolation target but differing in abundance get their own output
// files and scripts.
func TestWriteJobScriptAbundanceOnlyDifference(t *testing.T) {
	ip := &Interpolator{
		Dir:       t.TempDir(),
		ModelDir:  "/models",
		OutputDir: "/out",
	}
	set := testBracket(t)

	a := stellar.Point{Teff: 5500, LogG: 4.25, Z: -0.25, Mg: 0.0}
	b := stellar.Point{Teff: 5500, LogG: 4.25, Z: -0.25, Mg: 0.2}

	scriptA, outA, err := ip.WriteJobScript(a, set)
	if err != nil {
		t.Fatalf("first WriteJobScript failed: %v", err)
	}
	scriptB, outB, err := ip.WriteJobScript(b, set)
	if err != nil {
		t.Fatalf("second WriteJobScript failed: %v", err)
	}

	if outA == outB {
		t.Errorf("both jobs write the interpolated model to %q", outA)
	}
	if scriptA == scriptB {
		t.Errorf("both jobs got script name %q", scriptA)
	}

	data, err := os.ReadFile(filepath.Join(ip.Dir, scriptB))
	if err != nil {
		t.Fatalf("failed to read job script: %v", err)
	}
	if !strings.Contains(string(data), outB) {
		t.Errorf("job script does not write to its own output path %q", outB)
	}
}

// TestRemoveJobScript tests cleanup of a per-job script.
func TestRemoveJobScript(t *testing.T) {
	ip := &Interpolator{
		Dir:       t.TempDir(),
		ModelDir:  "/models",
		OutputDir: "/out",
	}
	script, _, err := ip.WriteJobScript(stellar.Point{Teff: 5500, LogG: 4.25, Z: -0.25}, testBracket(t))
	if err != nil {
		t.Fatalf("WriteJobScript failed: %v", err)
	}

	if err := ip.RemoveJobScript(script); err != nil {
		t.Fatalf("RemoveJobScript failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ip.Dir, script)); !os.IsNotExist(err) {
		t.Error("job script still exists after removal")
	}
}
