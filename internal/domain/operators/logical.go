package operators

import (
	"go/ast"
	"go/token"
)

// NewLogical swaps && and || and drops logical negation.
func NewLogical() Operator {
	return &astOperator{
		name:        "logical",
		description: "replace && with || and the reverse; remove unary !",
		find:        findLogical,
	}
}

func findLogical(n ast.Node, fset *token.FileSet, _ []byte) []site {
	switch expr := n.(type) {
	case *ast.BinaryExpr:
		switch expr.Op {
		case token.LAND:
			return tokenSites(fset, expr.OpPos, token.LAND, []token.Token{token.LOR})
		case token.LOR:
			return tokenSites(fset, expr.OpPos, token.LOR, []token.Token{token.LAND})
		}
	case *ast.UnaryExpr:
		if expr.Op != token.NOT {
			return nil
		}

		start, ok := offsetForPos(fset, expr.OpPos)
		if !ok {
			return nil
		}

		return []site{{start: start, end: start + 1}}
	}

	return nil
}
