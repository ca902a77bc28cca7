// Package detect finds RPC endpoint functions in a syntax tree and extracts
// their signatures and docstrings.
package detect

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rpcaudit/internal/lang"
	"github.com/phobologic/rpcaudit/internal/model"
)

// Detector finds functions carrying the marker decorator. It is safe for
// concurrent use; trees must not be shared.
type Detector struct {
	query   *sitter.Query
	marker  string
	ignored map[string]struct{}
}

// New builds a Detector for l. ignoreParams are parameter names dropped from
// declared sets in addition to the language's own ignored names.
func New(l *lang.Language, marker string, ignoreParams []string) (*Detector, error) {
	if marker == "" {
		return nil, fmt.Errorf("empty marker name")
	}
	q, err := l.GetEndpointQuery()
	if err != nil {
		return nil, fmt.Errorf("endpoint query for %s: %w", l.Name, err)
	}
	ignored := make(map[string]struct{}, len(l.IgnoredParams)+len(ignoreParams))
	for _, n := range l.IgnoredParams {
		ignored[n] = struct{}{}
	}
	for _, n := range ignoreParams {
		ignored[n] = struct{}{}
	}
	return &Detector{query: q, marker: marker, ignored: ignored}, nil
}

// Endpoints returns one candidate per marker-decorated function in tree, in
// source order. Nested functions are inspected independently of whether
// their enclosing function is an endpoint.
func (d *Detector) Endpoints(tree *sitter.Tree, source []byte) []model.FunctionCandidate {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(d.query, tree.RootNode())

	type found struct {
		start uint32
		cand  model.FunctionCandidate
	}
	var all []found
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var decorated, fn *sitter.Node
		for _, c := range match.Captures {
			switch d.query.CaptureNameForId(c.Index) {
			case "decorated":
				decorated = c.Node
			case "definition.function":
				fn = c.Node
			}
		}
		if decorated == nil || fn == nil {
			continue
		}
		if !hasMarker(decorated, source, d.marker) {
			continue
		}

		sig := ExtractSignature(fn, source, d.ignored)
		all = append(all, found{
			start: fn.StartByte(),
			cand: model.FunctionCandidate{
				Name:       sig.Name,
				Line:       sig.Line,
				Params:     sig.Params,
				ReturnType: sig.ReturnType,
				Doc:        sig.Doc,
			},
		})
	}

	// Matches for nested definitions can complete before their parents.
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })
	out := make([]model.FunctionCandidate, len(all))
	for i := range all {
		out[i] = all[i].cand
	}
	return out
}
