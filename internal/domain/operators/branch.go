package operators

import (
	"go/ast"
	"go/token"
)

// NewBranch negates the condition of if statements.
func NewBranch() Operator {
	return &astOperator{
		name:        "branch",
		description: "negate if conditions",
		find:        findBranch,
	}
}

func findBranch(n ast.Node, fset *token.FileSet, src []byte) []site {
	stmt, ok := n.(*ast.IfStmt)
	if !ok || stmt.Cond == nil {
		return nil
	}

	start, end, ok := nodeRange(fset, stmt.Cond)
	if !ok {
		return nil
	}

	return []site{{start: start, end: end, replacement: "!(" + string(src[start:end]) + ")"}}
}
