package sampler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stellar"
)

// requiredColumns are the header names a parameter table must carry.
var requiredColumns = []string{"teff", "logg", "z", "mg", "ca"}

// ReadPointsFile parses a whitespace-delimited parameter table with a
// header row. Every data row becomes one point; column order is free
// because fields are mapped by header name. A header missing a required
// column is a fatal configuration error.
func ReadPointsFile(path string) ([]stellar.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "paths.parameter_file", Reason: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, &config.ConfigurationError{Field: "paths.parameter_file", Reason: "empty file"}
	}
	header := strings.Fields(scanner.Text())

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &config.ConfigurationError{
			Field:  "paths.parameter_file",
			Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	var points []stellar.Point
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < len(header) {
			return nil, &config.ConfigurationError{
				Field:  "paths.parameter_file",
				Reason: fmt.Sprintf("line %d has %d fields, header has %d", line, len(fields), len(header)),
			}
		}

		values := make(map[string]float64, len(requiredColumns))
		for _, name := range requiredColumns {
			v, err := strconv.ParseFloat(fields[index[name]], 64)
			if err != nil {
				return nil, &config.ConfigurationError{
					Field:  "paths.parameter_file",
					Reason: fmt.Sprintf("line %d: bad %s value %q", line, name, fields[index[name]]),
				}
			}
			values[name] = v
		}
		points = append(points, stellar.Point{
			Teff: int(values["teff"]),
			LogG: values["logg"],
			Z:    values["z"],
			Mg:   values["mg"],
			Ca:   values["ca"],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &config.ConfigurationError{Field: "paths.parameter_file", Reason: err.Error()}
	}
	return points, nil
}

// WritePointsFile persists a generated point set in the same format file
// mode reads, so a random or grid run can be replayed exactly.
func WritePointsFile(path string, points []stellar.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing generated parameters: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(requiredColumns, " "))
	for _, p := range points {
		fmt.Fprintf(w, "%d %.2f %.3f %.3f %.3f\n", p.Teff, p.LogG, p.Z, p.Mg, p.Ca)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing generated parameters: %w", err)
	}
	return nil
}
