// Package report renders audit reports for people and machines.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phobologic/rpcaudit/internal/model"
)

var rule = strings.Repeat("=", 80)

// TextOptions controls the human-readable report.
type TextOptions struct {
	// ShowClean lists files that have no issues.
	ShowClean bool
}

type styles struct {
	high, medium, failed, path, ok lipgloss.Style
}

// Colours are only emitted when w is a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		high:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		medium: r.NewStyle().Foreground(lipgloss.Color("214")),
		failed: r.NewStyle().Foreground(lipgloss.Color("196")),
		path:   r.NewStyle().Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

// Text writes the per-file breakdown followed by the run summary.
func Text(w io.Writer, rep *model.Report, opts TextOptions) error {
	st := newStyles(w)
	var b strings.Builder

	fmt.Fprintln(&b, "Auditing RPC endpoint docstrings")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Found %d RPC files to audit\n", len(rep.Results))

	for _, r := range rep.Results {
		switch {
		case r.Failed():
			fmt.Fprintf(&b, "\n%s %s: %v\n", st.failed.Render("ERROR in"), r.Path, r.Err)
		case len(r.Issues) > 0:
			writeFileSection(&b, st, r)
		case opts.ShowClean:
			fmt.Fprintf(&b, "\n%s\n", st.path.Render(r.Path))
			fmt.Fprintf(&b, "   Endpoints checked: %d\n", r.EndpointsChecked)
			fmt.Fprintf(&b, "   %s\n", st.ok.Render("OK"))
		}
	}

	s := rep.Summary
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintln(&b, "Summary:")
	fmt.Fprintf(&b, "   Files scanned: %d\n", s.FilesScanned)
	fmt.Fprintf(&b, "   Total endpoints checked: %d\n", s.EndpointsChecked)
	fmt.Fprintf(&b, "   Files with issues: %d/%d\n", s.FilesWithIssues, s.FilesScanned)
	fmt.Fprintf(&b, "   Files with errors: %d\n", s.FilesWithErrors)
	fmt.Fprintf(&b, "   Total issues: %d\n", s.TotalIssues)
	if s.Clean() {
		fmt.Fprintf(&b, "\n%s\n", st.ok.Render("All RPC endpoint docstrings are properly documented!"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeFileSection(b *strings.Builder, st styles, r model.AuditResult) {
	fmt.Fprintf(b, "\n%s\n", st.path.Render(r.Path))
	fmt.Fprintf(b, "   Endpoints checked: %d\n", r.EndpointsChecked)
	fmt.Fprintf(b, "   Issues found: %d\n", len(r.Issues))

	for _, is := range r.Issues {
		label := "[" + strings.ToUpper(string(is.Severity)) + "]"
		if is.Severity == model.High {
			label = st.high.Render(label)
		} else {
			label = st.medium.Render(label)
		}
		fmt.Fprintf(b, "\n   %s %s\n", label, is.Kind)
		fmt.Fprintf(b, "       Endpoint: %s (line %d)\n", is.Endpoint, is.Line)
		fmt.Fprintf(b, "       Message: %s\n", is.Message)
	}
}
