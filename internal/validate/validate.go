// Package validate cross-checks endpoint signatures against their docstrings.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/rpcaudit/internal/docblock"
	"github.com/phobologic/rpcaudit/internal/model"
)

// noneType is the return annotation that needs no Returns: section.
const noneType = "None"

// Endpoint returns the issues for one endpoint, in a fixed order:
// missing docstring (exclusive), undocumented params, extra documented
// params, missing returns docs.
func Endpoint(c model.FunctionCandidate) []model.Issue {
	if !c.HasDoc() {
		return []model.Issue{model.NewIssue(
			model.MissingDocstring, c.Name, c.Line,
			fmt.Sprintf("Missing docstring for endpoint '%s'", c.Name),
		)}
	}
	return Compare(c, docblock.Parse(c.Doc))
}

// Compare checks a candidate against an already parsed docstring.
func Compare(c model.FunctionCandidate, doc model.DocumentationBlock) []model.Issue {
	var issues []model.Issue

	if missing := difference(c.Params, doc.Params); len(missing) > 0 {
		issue := model.NewIssue(
			model.UndocumentedParams, c.Name, c.Line,
			"Parameters not documented in Args: "+strings.Join(missing, ", "),
		)
		issue.Params = missing
		issues = append(issues, issue)
	}

	if extra := difference(doc.Params, c.Params); len(extra) > 0 {
		issue := model.NewIssue(
			model.ExtraDocumentedParams, c.Name, c.Line,
			"Documented parameters don't exist in signature: "+strings.Join(extra, ", "),
		)
		issue.Params = extra
		issues = append(issues, issue)
	}

	if c.ReturnType != "" && c.ReturnType != noneType && !doc.HasReturns {
		issue := model.NewIssue(
			model.MissingReturnsDocs, c.Name, c.Line,
			fmt.Sprintf("Function returns %s but has no Returns section in docstring", c.ReturnType),
		)
		issue.ReturnType = c.ReturnType
		issues = append(issues, issue)
	}

	return issues
}

// difference returns the sorted names in a that are not in b.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, n := range b {
		in[n] = struct{}{}
	}
	var out []string
	for _, n := range a {
		if _, ok := in[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
