// Package model defines core data structures for rpcaudit.
package model

import (
	"errors"
	"sort"
)

// Severity ranks how serious an issue is.
type Severity string

const (
	High   Severity = "high"
	Medium Severity = "medium"
)

// IssueKind identifies the check that produced an issue.
type IssueKind string

const (
	MissingDocstring      IssueKind = "missing_docstring"
	UndocumentedParams    IssueKind = "undocumented_params"
	ExtraDocumentedParams IssueKind = "extra_documented_params"
	MissingReturnsDocs    IssueKind = "missing_returns_docs"
)

// Severity returns the fixed severity for the kind.
func (k IssueKind) Severity() Severity {
	switch k {
	case MissingDocstring, UndocumentedParams:
		return High
	case ExtraDocumentedParams, MissingReturnsDocs:
		return Medium
	}
	return Medium
}

// SourceFile is a discovered file and its contents.
type SourceFile struct {
	Path   string // Relative to audit root
	Source []byte
}

// FunctionCandidate is a function carrying the RPC marker decorator.
type FunctionCandidate struct {
	Name       string
	Line       int
	Params     []string // Sorted, unique
	ReturnType string   // "" when the function has no return annotation
	Doc        string   // Cleaned docstring, "" when absent
}

// HasDoc reports whether the function has a non-empty docstring.
func (c FunctionCandidate) HasDoc() bool {
	return c.Doc != ""
}

// DocumentationBlock is the information recovered from a docstring.
type DocumentationBlock struct {
	Params     []string // Sorted, unique
	HasReturns bool
}

// Issue is a single documentation mismatch for one endpoint.
type Issue struct {
	Kind       IssueKind
	Endpoint   string
	Line       int
	Message    string
	Severity   Severity
	Params     []string // undocumented_params, extra_documented_params
	ReturnType string   // missing_returns_docs
}

// NewIssue builds an issue whose severity is derived from kind.
func NewIssue(kind IssueKind, endpoint string, line int, message string) Issue {
	return Issue{
		Kind:     kind,
		Endpoint: endpoint,
		Line:     line,
		Message:  message,
		Severity: kind.Severity(),
	}
}

// AuditResult is the outcome of auditing one file. Exactly one of Err or
// (EndpointsChecked, Issues) is meaningful.
type AuditResult struct {
	Path             string
	Err              error
	EndpointsChecked int
	Endpoints        []FunctionCandidate
	Issues           []Issue
}

// NewResult builds a successful result.
func NewResult(path string, endpoints []FunctionCandidate, issues []Issue) AuditResult {
	return AuditResult{
		Path:             path,
		EndpointsChecked: len(endpoints),
		Endpoints:        endpoints,
		Issues:           issues,
	}
}

// NewErrorResult builds a failed result. err must be non-nil.
func NewErrorResult(path string, err error) AuditResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	return AuditResult{Path: path, Err: err}
}

// Failed reports whether the file could not be audited.
func (r AuditResult) Failed() bool {
	return r.Err != nil
}

// RunSummary holds run-level totals.
type RunSummary struct {
	FilesScanned     int
	EndpointsChecked int
	FilesWithIssues  int
	FilesWithErrors  int
	TotalIssues      int
}

// Add folds one file result into the summary.
func (s *RunSummary) Add(r AuditResult) {
	s.FilesScanned++
	if r.Failed() {
		s.FilesWithErrors++
		return
	}
	s.EndpointsChecked += r.EndpointsChecked
	if len(r.Issues) > 0 {
		s.FilesWithIssues++
		s.TotalIssues += len(r.Issues)
	}
}

// Clean reports whether the run found neither issues nor file errors.
func (s RunSummary) Clean() bool {
	return s.TotalIssues == 0 && s.FilesWithErrors == 0
}

// Report is the complete result of an audit run, ready for rendering.
type Report struct {
	Root    string
	Marker  string
	Results []AuditResult
	Summary RunSummary
}

// NewReport sorts results by path and computes the summary.
func NewReport(root, marker string, results []AuditResult) *Report {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	var s RunSummary
	for _, r := range results {
		s.Add(r)
	}
	return &Report{
		Root:    root,
		Marker:  marker,
		Results: results,
		Summary: s,
	}
}
