package turbospec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/stellarsynth/stellarsynth/pkg/atmosphere"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

// TemplateScriptName is the reusable interpolation script installed once
// per run into the interpolator directory. Each job copies it under a
// unique name before substitution, so jobs can interpolate in parallel.
const TemplateScriptName = "interpolate.script"

// interpolatorScript is the csh driver the interpolator ships with, with
// the paths, the target values and the eight bracketing filenames replaced
// by tokens. The interpolator reads its stdin-style input from the heredoc
// and invokes the interpol_modeles binary in its working directory.
const interpolatorScript = `#!/bin/csh -f
set model_path = {{MODEL_PATH}}

set marcs_binary = '.false.'

#values requested for the interpolated model
foreach Tref   ( {{TREF}} )
foreach loggref ( {{LOGGREF}} )
foreach zref ( {{ZREF}} )
set modele_out = {{OUTPUT_PATH}}/{{JOB_ID}}.interpol
set modele_out2 = {{OUTPUT_PATH}}/{{JOB_ID}}.alt

# grid models bracketing the interpolation point
set model1 = {{MODEL1}}
set model2 = {{MODEL2}}
set model3 = {{MODEL3}}
set model4 = {{MODEL4}}
set model5 = {{MODEL5}}
set model6 = {{MODEL6}}
set model7 = {{MODEL7}}
set model8 = {{MODEL8}}

set test = '.false.'
set model_test = ''

./interpol_modeles <<EOF
'${model_path}/${model1}'
'${model_path}/${model2}'
'${model_path}/${model3}'
'${model_path}/${model4}'
'${model_path}/${model5}'
'${model_path}/${model6}'
'${model_path}/${model7}'
'${model_path}/${model8}'
'${modele_out}'
'${modele_out2}'
${Tref}
${loggref}
${zref}
${test}
${marcs_binary}
'${model_test}'
EOF

end
end
end
`

// Interpolator prepares and runs model atmosphere interpolations. All
// fields are fixed for the duration of a run.
type Interpolator struct {
	// Dir is the interpolator installation directory; scripts are
	// written and executed there.
	Dir string

	// ModelDir is the model atmosphere catalog directory.
	ModelDir string

	// OutputDir receives the interpolated .interpol files.
	OutputDir string
}

// InstallTemplate writes the reusable template script into the
// interpolator directory. Called once per run, before any job starts.
func (ip *Interpolator) InstallTemplate() error {
	path := filepath.Join(ip.Dir, TemplateScriptName)
	if err := os.WriteFile(path, []byte(interpolatorScript), 0o755); err != nil {
		return fmt.Errorf("installing interpolator template: %w", err)
	}
	return nil
}

// WriteJobScript renders a per-job copy of the template with the target
// values and the eight bracketing filenames, and returns the script name
// together with the deterministic path the interpolated model will be
// written to.
func (ip *Interpolator) WriteJobScript(p stellar.Point, set *atmosphere.BracketingSet) (script, outPath string, err error) {
	tref := strconv.Itoa(p.Teff)
	loggref := strconv.FormatFloat(p.LogG, 'f', -1, 64)
	zref := strconv.FormatFloat(p.Z, 'f', -1, 64)

	// The output name carries the full point ID. Points may share
	// teff/logg/z and differ only in abundance, and jobs interpolate in
	// parallel, so a name derived from the interpolation target alone
	// would let two jobs write the same file.
	values := map[string]string{
		"MODEL_PATH":  ip.ModelDir,
		"OUTPUT_PATH": ip.OutputDir,
		"JOB_ID":      p.ID(),
		"TREF":        tref,
		"LOGGREF":     loggref,
		"ZREF":        zref,
	}
	for i, rec := range set {
		values[fmt.Sprintf("MODEL%d", i+1)] = rec.Filename
	}

	content, err := Render(interpolatorScript, values)
	if err != nil {
		return "", "", fmt.Errorf("rendering interpolator script: %w", err)
	}

	script = fmt.Sprintf("interpolate_%s.script", p.ID())
	if err := os.WriteFile(filepath.Join(ip.Dir, script), []byte(content), 0o755); err != nil {
		return "", "", fmt.Errorf("writing interpolator script: %w", err)
	}

	outPath = filepath.Join(ip.OutputDir, p.ID()+".interpol")
	return script, outPath, nil
}

// Run executes a prepared job script from the interpolator directory,
// blocking until the interpolation finishes. Output is captured to the
// job log. A non-zero exit or an execution failure is an
// InterpolatorError.
func (ip *Interpolator) Run(ctx context.Context, script, logPath string) error {
	res, err := runTool(ctx, ip.Dir, logPath, nil, "./"+script)
	if err != nil {
		return &InterpolatorError{Err: err}
	}
	if res.ExitCode != 0 {
		return &InterpolatorError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// RemoveJobScript deletes a per-job script after the run when temp files
// are not being kept.
func (ip *Interpolator) RemoveJobScript(script string) error {
	return os.Remove(filepath.Join(ip.Dir, script))
}
