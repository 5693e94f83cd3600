package operators

import (
	"go/ast"
	"go/token"
)

const (
	trueStr  = "true"
	falseStr = "false"
)

// NewBoolean flips boolean literals.
func NewBoolean() Operator {
	return &astOperator{
		name:        "boolean",
		description: "replace true with false and false with true",
		find:        findBoolean,
	}
}

func findBoolean(n ast.Node, fset *token.FileSet, _ []byte) []site {
	ident, ok := n.(*ast.Ident)
	if !ok || !isBooleanLiteral(ident.Name) {
		return nil
	}

	start, end, ok := nodeRange(fset, ident)
	if !ok {
		return nil
	}

	return []site{{start: start, end: end, replacement: flipBoolean(ident.Name)}}
}

func isBooleanLiteral(name string) bool {
	return name == trueStr || name == falseStr
}

func flipBoolean(original string) string {
	if original == trueStr {
		return falseStr
	}

	return trueStr
}
