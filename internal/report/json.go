package report

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/phobologic/rpcaudit/internal/model"
)

type jsonReport struct {
	RunID   string      `json:"run_id"`
	Root    string      `json:"root"`
	Marker  string      `json:"marker"`
	Files   []jsonFile  `json:"files"`
	Summary jsonSummary `json:"summary"`
}

type jsonFile struct {
	Path             string         `json:"path"`
	Error            string         `json:"error,omitempty"`
	EndpointsChecked int            `json:"endpoints_checked"`
	Endpoints        []jsonEndpoint `json:"endpoints,omitempty"`
	Issues           []jsonIssue    `json:"issues"`
}

type jsonEndpoint struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Params     []string `json:"params"`
	ReturnType string   `json:"return_type,omitempty"`
	HasDoc     bool     `json:"has_docstring"`
}

type jsonIssue struct {
	Type       string   `json:"type"`
	Severity   string   `json:"severity"`
	Endpoint   string   `json:"endpoint"`
	Line       int      `json:"lineno"`
	Message    string   `json:"message"`
	Parameters []string `json:"parameters,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
}

type jsonSummary struct {
	FilesScanned     int `json:"files_scanned"`
	EndpointsChecked int `json:"endpoints_checked"`
	FilesWithIssues  int `json:"files_with_issues"`
	FilesWithErrors  int `json:"files_with_errors"`
	TotalIssues      int `json:"total_issues"`
}

// JSON writes the report as an indented JSON document tagged with a fresh
// run id.
func JSON(w io.Writer, rep *model.Report) error {
	out := jsonReport{
		RunID:  uuid.NewString(),
		Root:   rep.Root,
		Marker: rep.Marker,
		Files:  make([]jsonFile, 0, len(rep.Results)),
		Summary: jsonSummary{
			FilesScanned:     rep.Summary.FilesScanned,
			EndpointsChecked: rep.Summary.EndpointsChecked,
			FilesWithIssues:  rep.Summary.FilesWithIssues,
			FilesWithErrors:  rep.Summary.FilesWithErrors,
			TotalIssues:      rep.Summary.TotalIssues,
		},
	}

	for _, r := range rep.Results {
		f := jsonFile{
			Path:             r.Path,
			EndpointsChecked: r.EndpointsChecked,
			Issues:           make([]jsonIssue, 0, len(r.Issues)),
		}
		if r.Failed() {
			f.Error = r.Err.Error()
		}
		for _, ep := range r.Endpoints {
			params := ep.Params
			if params == nil {
				params = []string{}
			}
			f.Endpoints = append(f.Endpoints, jsonEndpoint{
				Name:       ep.Name,
				Line:       ep.Line,
				Params:     params,
				ReturnType: ep.ReturnType,
				HasDoc:     ep.HasDoc(),
			})
		}
		for _, is := range r.Issues {
			f.Issues = append(f.Issues, jsonIssue{
				Type:       string(is.Kind),
				Severity:   string(is.Severity),
				Endpoint:   is.Endpoint,
				Line:       is.Line,
				Message:    is.Message,
				Parameters: is.Params,
				ReturnType: is.ReturnType,
			})
		}
		out.Files = append(out.Files, f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
