package operators

import (
	"go/ast"
	"go/token"
)

var comparisonOps = []token.Token{token.LSS, token.GTR, token.LEQ, token.GEQ, token.EQL, token.NEQ}

// NewComparison swaps each comparison operator for every other one.
func NewComparison() Operator {
	return &astOperator{
		name:        "comparison",
		description: "replace < > <= >= == != with each other",
		find:        findComparison,
	}
}

func findComparison(n ast.Node, fset *token.FileSet, _ []byte) []site {
	binExpr, ok := n.(*ast.BinaryExpr)
	if !ok || !isComparisonOp(binExpr.Op) {
		return nil
	}

	alternatives := comparisonOps
	// Ordering operators do not apply to nil, booleans or most composite values.
	if isNilIdent(binExpr.X) || isNilIdent(binExpr.Y) || isBoolIdent(binExpr.X) || isBoolIdent(binExpr.Y) {
		alternatives = []token.Token{token.EQL, token.NEQ}
	}

	return tokenSites(fset, binExpr.OpPos, binExpr.Op, alternatives)
}

func isComparisonOp(op token.Token) bool {
	return op == token.LSS || op == token.GTR || op == token.LEQ ||
		op == token.GEQ || op == token.EQL || op == token.NEQ
}

func isNilIdent(e ast.Expr) bool {
	ident, ok := ast.Unparen(e).(*ast.Ident)
	return ok && ident.Name == "nil"
}

func isBoolIdent(e ast.Expr) bool {
	ident, ok := ast.Unparen(e).(*ast.Ident)
	return ok && isBooleanLiteral(ident.Name)
}
