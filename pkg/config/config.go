// Package config loads and validates the run configuration for the
// synthesis pipeline. Configuration errors are fatal: they are reported
// once, before any sampling or job execution starts.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full run configuration, decoded from a YAML file.
type Config struct {
	// Paths locates the external toolchain and the run's inputs/outputs.
	Paths PathsConfig `yaml:"paths" validate:"required"`

	// Wavelength is the synthesis wavelength window.
	Wavelength WavelengthConfig `yaml:"wavelength" validate:"required"`

	// Sampling selects and parameterizes the stellar parameter sampler.
	Sampling SamplingConfig `yaml:"sampling" validate:"required"`

	// Solver holds settings passed through to the external solver.
	Solver SolverConfig `yaml:"solver" validate:"required"`

	// Run holds execution-level settings.
	Run RunConfig `yaml:"run"`
}

// PathsConfig locates the external binaries and data directories.
type PathsConfig struct {
	// Turbospectrum is the solver's installation directory; the solver
	// binaries run with this as their working directory.
	Turbospectrum string `yaml:"turbospectrum" validate:"required"`

	// Interpolator is the directory holding the interpol_modeles binary
	// and the per-job interpolation scripts.
	Interpolator string `yaml:"interpolator" validate:"required"`

	// Linelists is the directory of spectral line list files.
	Linelists string `yaml:"linelists" validate:"required"`

	// ModelAtmospheres is the precomputed atmosphere catalog directory.
	ModelAtmospheres string `yaml:"model_atmospheres" validate:"required"`

	// ParameterFile is the input table for file-mode sampling.
	ParameterFile string `yaml:"parameter_file"`

	// Output is the run output directory.
	Output string `yaml:"output" validate:"required"`
}

// WavelengthConfig is the synthesis window in Angstrom.
type WavelengthConfig struct {
	Min  float64 `yaml:"min" validate:"gt=0"`
	Max  float64 `yaml:"max" validate:"gt=0"`
	Step float64 `yaml:"step" validate:"gt=0"`
}

// Range is an inclusive [Min, Max] bound for one real dimension.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// IntRange is an inclusive [Min, Max] bound for an integer dimension.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// GridPoints configures the number of evenly spaced values per dimension
// in grid mode.
type GridPoints struct {
	Teff int `yaml:"teff" validate:"omitempty,min=1"`
	LogG int `yaml:"logg" validate:"omitempty,min=1"`
	Z    int `yaml:"z" validate:"omitempty,min=1"`
	Mg   int `yaml:"mg" validate:"omitempty,min=1"`
	Ca   int `yaml:"ca" validate:"omitempty,min=1"`
}

// SamplingConfig selects the sampler mode and its bounds.
type SamplingConfig struct {
	// Mode is one of "file", "random" or "grid".
	Mode string `yaml:"mode" validate:"required,oneof=file random grid"`

	// Count is the number of points to draw in random mode.
	Count int `yaml:"count" validate:"omitempty,min=1"`

	// Seed makes random-mode runs reproducible. Zero means seed from
	// the current time.
	Seed int64 `yaml:"seed"`

	// MaxAttempts bounds the rejection-sampling loop in random mode.
	// Zero selects a default proportional to Count.
	MaxAttempts int `yaml:"max_attempts" validate:"omitempty,min=1"`

	Teff IntRange `yaml:"teff"`
	LogG Range    `yaml:"logg"`
	Z    Range    `yaml:"z"`
	Mg   Range    `yaml:"mg"`
	Ca   Range    `yaml:"ca"`

	// Grid configures the per-dimension point counts for grid mode.
	Grid GridPoints `yaml:"grid"`
}

// SolverConfig holds values passed through to the external solver.
type SolverConfig struct {
	// Compiler selects the solver makefile: "intel" or "gfortran".
	Compiler string `yaml:"compiler" validate:"required,oneof=intel gfortran"`

	// TurbulenceCode is the two-digit microturbulence code catalog
	// records must carry, e.g. "01".
	TurbulenceCode string `yaml:"turbulence_code" validate:"required,len=2"`

	// XiFix is the fixed microturbulent velocity in km/s fed to the
	// opacity stage.
	XiFix float64 `yaml:"xifix" validate:"gt=0"`

	// SkipCompile skips compiling the solver and interpolator before
	// the run, assuming existing binaries.
	SkipCompile bool `yaml:"skip_compile"`
}

// RunConfig holds execution-level settings.
type RunConfig struct {
	// Workers is the size of the job worker pool. Zero selects a
	// default.
	Workers int `yaml:"workers" validate:"omitempty,min=1"`

	// StorePath is the SQLite run store location. Empty disables the
	// store.
	StorePath string `yaml:"store_path"`

	// MetricsListen is the address for Prometheus metrics exposition.
	// Empty disables the endpoint.
	MetricsListen string `yaml:"metrics_listen"`

	// KeepTemp retains per-job control files and scripts after the run.
	KeepTemp bool `yaml:"keep_temp"`
}

// ConfigurationError is a fatal configuration problem. No sampling or job
// execution happens once one is raised.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Load reads, decodes and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "config", Reason: err.Error()}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks tag-level constraints and the cross-field rules the tags
// cannot express (range ordering, mode-dependent requirements).
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &ConfigurationError{
				Field:  errs[0].Namespace(),
				Reason: fmt.Sprintf("failed %q constraint", errs[0].Tag()),
			}
		}
		return &ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if c.Wavelength.Min >= c.Wavelength.Max {
		return &ConfigurationError{Field: "wavelength", Reason: "min must be below max"}
	}

	switch c.Sampling.Mode {
	case "file":
		if c.Paths.ParameterFile == "" {
			return &ConfigurationError{Field: "paths.parameter_file", Reason: "required in file mode"}
		}
	case "random":
		if c.Sampling.Count == 0 {
			return &ConfigurationError{Field: "sampling.count", Reason: "required in random mode"}
		}
		if err := c.validateBounds(); err != nil {
			return err
		}
	case "grid":
		if err := c.validateBounds(); err != nil {
			return err
		}
		g := c.Sampling.Grid
		if g.Teff < 1 || g.LogG < 1 || g.Z < 1 || g.Mg < 1 || g.Ca < 1 {
			return &ConfigurationError{Field: "sampling.grid", Reason: "every dimension needs at least one point"}
		}
	}
	return nil
}

func (c *Config) validateBounds() error {
	s := c.Sampling
	if s.Teff.Min > s.Teff.Max {
		return &ConfigurationError{Field: "sampling.teff", Reason: "min above max"}
	}
	for _, b := range []struct {
		name string
		r    Range
	}{
		{"sampling.logg", s.LogG},
		{"sampling.z", s.Z},
		{"sampling.mg", s.Mg},
		{"sampling.ca", s.Ca},
	} {
		if b.r.Min > b.r.Max {
			return &ConfigurationError{Field: b.name, Reason: "min above max"}
		}
	}
	return nil
}
