package detect

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rpcaudit/internal/docblock"
	"github.com/phobologic/rpcaudit/internal/lang"
)

// Signature is what the extractor recovers from a function_definition node.
type Signature struct {
	Name       string
	Line       int
	Params     []string
	ReturnType string
	Doc        string
}

// ExtractSignature reads the name, declared parameters, return annotation and
// docstring of a function_definition node. Names in ignored are dropped from
// the parameter set, as are *args and **kwargs splats and positional-only
// parameters.
func ExtractSignature(fn *sitter.Node, source []byte, ignored map[string]struct{}) Signature {
	sig := Signature{Line: int(fn.StartPoint().Row) + 1}

	if name := fn.ChildByFieldName("name"); name != nil {
		sig.Name = lang.NodeText(name, source)
	}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		sig.Params = paramNames(params, source, ignored)
	}
	if rt := fn.ChildByFieldName("return_type"); rt != nil {
		sig.ReturnType = annotationText(lang.NodeText(rt, source))
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		if raw, ok := docstring(body, source); ok {
			sig.Doc = docblock.Clean(raw)
		}
	}
	return sig
}

func paramNames(params *sitter.Node, source []byte, ignored map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for i := 0; i < int(params.ChildCount()); i++ {
		var ident *sitter.Node
		child := params.Child(i)
		switch child.Type() {
		case "positional_separator", "/":
			// Everything before "/" is positional-only.
			clear(seen)
			continue
		case "identifier":
			ident = child
		case "typed_parameter":
			// First named child is the identifier, or a splat pattern for
			// annotated *args / **kwargs.
			if first := child.NamedChild(0); first != nil && first.Type() == "identifier" {
				ident = first
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				ident = name
			}
		}
		if ident == nil {
			continue
		}
		name := lang.NodeText(ident, source)
		if _, skip := ignored[name]; skip {
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// docstring returns the decoded first-statement string literal of a block.
func docstring(body *sitter.Node, source []byte) (string, bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return "", false
		}
		expr := stmt.NamedChild(0)
		for expr != nil && expr.Type() == "parenthesized_expression" {
			expr = firstNonComment(expr)
		}
		if expr == nil {
			return "", false
		}
		return stringValue(expr, source)
	}
	return "", false
}

func firstNonComment(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() != "comment" {
			return c
		}
	}
	return nil
}

// annotationText renders a return annotation the way Python prints it back:
// whitespace collapsed, no padding inside brackets, one space after commas,
// and redundant outer parentheses dropped.
func annotationText(raw string) string {
	s := lang.CollapseWhitespace(raw)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' {
			if b.Len() > 0 && strings.IndexByte("[(, ", lastByte(&b)) >= 0 {
				continue
			}
			if i+1 < len(s) && strings.IndexByte("]),", s[i+1]) >= 0 {
				continue
			}
		}
		b.WriteByte(c)
		if c == ',' && i+1 < len(s) && strings.IndexByte("])", s[i+1]) < 0 {
			b.WriteByte(' ')
		}
	}
	s = b.String()
	for enclosed(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func lastByte(b *strings.Builder) byte {
	s := b.String()
	return s[len(s)-1]
}

// enclosed reports whether s is wrapped in one pair of grouping parentheses,
// as opposed to a tuple or two separate groups.
func enclosed(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		case ',':
			if depth == 1 {
				return false
			}
		}
	}
	return depth == 0
}

func stringValue(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "string":
		return literalValue(lang.NodeText(node, source))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := node.NamedChild(i)
			if part.Type() == "comment" {
				continue
			}
			v, ok := stringValue(part, source)
			if !ok {
				return "", false
			}
			b.WriteString(v)
		}
		return b.String(), true
	}
	return "", false
}

// literalValue decodes a Python string literal. Bytes and f-strings are not
// docstrings and report false.
func literalValue(text string) (string, bool) {
	i := 0
	for i < len(text) && strings.IndexByte("rRuUbBfF", text[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(text[:i])
	body := text[i:]
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	inner := body[len(quote) : len(body)-len(quote)]
	if strings.Contains(prefix, "r") {
		return inner, true
	}
	return docblock.Unescape(inner), true
}
