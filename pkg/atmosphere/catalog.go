package atmosphere

import (
	"fmt"
	"os"
	"path/filepath"
)

// Catalog is the set of model atmosphere records found in one directory.
// It is built once per run and treated as read-only afterwards; concurrent
// jobs share it without locking. No duplicate-key constraint is enforced:
// several records may carry identical grid parameters.
type Catalog struct {
	// Dir is the directory the catalog was built from.
	Dir string

	// Records holds every filename that matched the catalog grammar, in
	// directory listing order.
	Records []Record
}

// BuildCatalog scans the directory and parses every filename that follows
// the model atmosphere grammar. Files are never opened; only the directory
// listing is read. Non-matching names are skipped silently, so the model
// directory may contain readme files, tarballs and the like.
func BuildCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading model atmosphere directory: %w", err)
	}

	cat := &Catalog{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if rec, ok := ParseFilename(entry.Name()); ok {
			cat.Records = append(cat.Records, rec)
		}
	}
	return cat, nil
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.Records)
}

// Path returns the absolute path of a record's model file.
func (c *Catalog) Path(rec Record) string {
	return filepath.Join(c.Dir, rec.Filename)
}

// WithTurbulence returns the records carrying the given microturbulence
// code. Both exact matching and bracketing only ever consider one
// turbulence code at a time.
func (c *Catalog) WithTurbulence(code string) []Record {
	out := make([]Record, 0, len(c.Records))
	for _, rec := range c.Records {
		if rec.Turbulence == code {
			out = append(out, rec)
		}
	}
	return out
}
