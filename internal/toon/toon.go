// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// audit reports.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/rpcaudit/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(rep *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(rep.Root)))
	parts = append(parts, fmt.Sprintf("marker: %s", encodeValue(rep.Marker)))

	var fileRows [][]string
	for i := range rep.Results {
		r := &rep.Results[i]
		var errText string
		if r.Failed() {
			errText = r.Err.Error()
		}
		fileRows = append(fileRows, []string{
			r.Path,
			fmt.Sprintf("%d", r.EndpointsChecked),
			fmt.Sprintf("%d", len(r.Issues)),
			errText,
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "endpoints", "issues", "error"}, fileRows))

	var issueRows [][]string
	for i := range rep.Results {
		r := &rep.Results[i]
		for j := range r.Issues {
			is := &r.Issues[j]
			issueRows = append(issueRows, []string{
				r.Path,
				is.Endpoint,
				fmt.Sprintf("%d", is.Line),
				string(is.Kind),
				string(is.Severity),
				issueDetail(is),
			})
		}
	}
	parts = append(parts, formatTabular("issues", []string{"file", "endpoint", "line", "kind", "severity", "detail"}, issueRows))

	s := rep.Summary
	parts = append(parts, formatTabular("summary",
		[]string{"files_scanned", "endpoints_checked", "files_with_issues", "files_with_errors", "total_issues"},
		[][]string{{
			fmt.Sprintf("%d", s.FilesScanned),
			fmt.Sprintf("%d", s.EndpointsChecked),
			fmt.Sprintf("%d", s.FilesWithIssues),
			fmt.Sprintf("%d", s.FilesWithErrors),
			fmt.Sprintf("%d", s.TotalIssues),
		}}))

	return strings.Join(parts, "\n")
}

// issueDetail is the kind-specific payload: space-separated names or the
// return type.
func issueDetail(is *model.Issue) string {
	switch is.Kind {
	case model.UndocumentedParams, model.ExtraDocumentedParams:
		return strings.Join(is.Params, " ")
	case model.MissingReturnsDocs:
		return is.ReturnType
	}
	return ""
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
