// Package parse turns source files into tree-sitter syntax trees.
package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Error describes a syntax error found while parsing a file.
type Error struct {
	Line   int // 1-based
	Column int // 1-based
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Source parses source with parser. The parser must be created for the
// correct language and must not be shared between goroutines.
// The caller owns the returned tree and must Close it.
// A tree containing ERROR or MISSING nodes is reported as *Error.
func Source(ctx context.Context, parser *sitter.Parser, source []byte) (*sitter.Tree, error) {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		perr := firstError(root, source)
		tree.Close()
		return nil, perr
	}
	return tree, nil
}

// firstError finds the earliest ERROR or MISSING node in document order.
func firstError(node *sitter.Node, source []byte) *Error {
	if node.IsMissing() {
		return newError(node, fmt.Sprintf("missing %q", node.Type()))
	}
	if node.IsError() {
		return newError(node, fmt.Sprintf("unexpected %q", snippet(node, source)))
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if e := firstError(child, source); e != nil {
			return e
		}
	}
	return newError(node, "invalid syntax")
}

func newError(node *sitter.Node, msg string) *Error {
	p := node.StartPoint()
	return &Error{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: msg}
}

func snippet(node *sitter.Node, source []byte) string {
	const max = 20
	text := string(source[node.StartByte():node.EndByte()])
	for i, r := range text {
		if r == '\n' {
			text = text[:i]
			break
		}
	}
	if len(text) > max {
		text = text[:max] + "..."
	}
	return text
}
