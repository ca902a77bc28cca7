// Package docblock reads Google-style docstrings.
//
// Parse is a line heuristic, not a structural parser. It has no notion of
// indentation: inside an Args: section, any line that starts with an upper
// case letter and ends with a colon is taken as the next section heading,
// even when it is really part of a parameter description. Changing that
// changes which issues are reported for existing docstrings.
package docblock

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/rpcaudit/internal/model"
)

const (
	argsHeading   = "Args:"
	returnsMarker = "Returns:"
)

// Parse extracts the documented parameter names and whether a Returns:
// section is present.
func Parse(doc string) model.DocumentationBlock {
	documented := make(map[string]struct{})
	inArgs := false

	for _, line := range strings.Split(doc, "\n") {
		stripped := strings.TrimSpace(line)

		if stripped == argsHeading {
			inArgs = true
			continue
		}
		if !inArgs {
			continue
		}
		if isHeading(stripped) {
			inArgs = false
			continue
		}
		if name, ok := paramName(stripped); ok {
			documented[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(documented))
	for n := range documented {
		names = append(names, n)
	}
	sort.Strings(names)

	return model.DocumentationBlock{
		Params:     names,
		HasReturns: strings.Contains(doc, returnsMarker),
	}
}

// isHeading reports whether a trimmed line looks like "Section:".
func isHeading(stripped string) bool {
	if stripped == "" || stripped == argsHeading || !strings.HasSuffix(stripped, ":") {
		return false
	}
	r, _ := utf8.DecodeRuneInString(stripped)
	return unicode.IsUpper(r)
}

// paramName reads "name (type): description" or "name: description".
func paramName(stripped string) (string, bool) {
	before, _, found := strings.Cut(stripped, ":")
	if !found {
		return "", false
	}
	if i := strings.IndexByte(before, '('); i >= 0 {
		before = before[:i]
	}
	name := strings.TrimSpace(before)
	if name == "" || strings.HasPrefix(name, "*") {
		return "", false
	}
	return name, true
}
