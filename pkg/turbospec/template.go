// Package turbospec drives the external radiative-transfer toolchain: the
// model atmosphere interpolator and the two-stage solver (opacity, then
// synthesis). Both tools consume plain-text scripts, so the package renders
// them by literal token substitution and invokes the binaries as blocking
// subprocesses with their output captured to per-job logs.
package turbospec

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{[A-Z0-9_]+\}\}`)

// Render substitutes every {{KEY}} token in the template with its value.
// Substitution is deliberately plain string replacement: the external
// tools use flat text scripts and nothing here needs a template engine.
// Rendering fails if a provided key does not occur in the template or if
// any token is left unreplaced, so a drifted template surfaces immediately
// instead of reaching a solver as a literal "{{TOKEN}}".
func Render(template string, values map[string]string) (string, error) {
	out := template
	for key, value := range values {
		token := "{{" + key + "}}"
		if !strings.Contains(out, token) {
			return "", fmt.Errorf("template has no %s token", token)
		}
		out = strings.ReplaceAll(out, token, value)
	}
	if leftover := tokenPattern.FindString(out); leftover != "" {
		return "", fmt.Errorf("template token %s was not substituted", leftover)
	}
	return out, nil
}
