package detect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/rpcaudit/internal/lang"
)

// Expr is the closed set of decorator expression shapes the detector
// distinguishes. Every other syntax is folded into Other.
type Expr interface {
	isExpr()
}

// Name is a bare identifier: @marker.
type Name struct {
	ID string
}

// Attribute is a dotted access: @pkg.marker.
type Attribute struct {
	Value Expr
	Attr  string
}

// Call is a called decorator: @marker(...) or @pkg.marker(...).
type Call struct {
	Func Expr
}

// Other is any decorator expression that is none of the above.
type Other struct {
	Kind string // tree-sitter node type
}

func (Name) isExpr()      {}
func (Attribute) isExpr() {}
func (Call) isExpr()      {}
func (Other) isExpr()     {}

// IsMarker reports whether e is one of the three accepted marker shapes:
// a bare name, an attribute whose final component is the marker, or a call
// wrapping either of those.
func IsMarker(e Expr, marker string) bool {
	switch e := e.(type) {
	case Name, Attribute:
		return namesMarker(e, marker)
	case Call:
		return namesMarker(e.Func, marker)
	case Other:
		return false
	}
	return false
}

func namesMarker(e Expr, marker string) bool {
	switch e := e.(type) {
	case Name:
		return e.ID == marker
	case Attribute:
		return e.Attr == marker
	}
	return false
}

// exprFromNode converts a tree-sitter expression node into an Expr.
func exprFromNode(node *sitter.Node, source []byte) Expr {
	if node == nil {
		return Other{}
	}
	switch node.Type() {
	case "identifier":
		return Name{ID: lang.NodeText(node, source)}
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return Other{Kind: node.Type()}
		}
		return Attribute{
			Value: exprFromNode(node.ChildByFieldName("object"), source),
			Attr:  lang.NodeText(attr, source),
		}
	case "call":
		return Call{Func: exprFromNode(node.ChildByFieldName("function"), source)}
	}
	return Other{Kind: node.Type()}
}

// decoratorExpr returns the expression following '@' in a decorator node.
func decoratorExpr(decorator *sitter.Node, source []byte) Expr {
	for i := 0; i < int(decorator.NamedChildCount()); i++ {
		child := decorator.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		return exprFromNode(child, source)
	}
	return Other{}
}

// hasMarker reports whether any decorator of a decorated_definition matches.
func hasMarker(decorated *sitter.Node, source []byte, marker string) bool {
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if IsMarker(decoratorExpr(child, source), marker) {
			return true
		}
	}
	return false
}
