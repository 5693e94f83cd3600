package operators

import (
	"go/ast"
	"go/token"
)

var arithmeticOps = []token.Token{token.ADD, token.SUB, token.MUL, token.QUO, token.REM}

// NewArithmetic swaps each arithmetic binary operator for every other one.
func NewArithmetic() Operator {
	return &astOperator{
		name:        "arithmetic",
		description: "replace + - * / % with each other",
		find:        findArithmetic,
	}
}

func findArithmetic(n ast.Node, fset *token.FileSet, _ []byte) []site {
	binExpr, ok := n.(*ast.BinaryExpr)
	if !ok || !isArithmeticOp(binExpr.Op) {
		return nil
	}

	// String concatenation has no arithmetic alternative that compiles.
	if isStringLit(binExpr.X) || isStringLit(binExpr.Y) {
		return nil
	}

	return tokenSites(fset, binExpr.OpPos, binExpr.Op, arithmeticOps)
}

func isArithmeticOp(op token.Token) bool {
	return op == token.ADD || op == token.SUB || op == token.MUL || op == token.QUO || op == token.REM
}

func isStringLit(e ast.Expr) bool {
	lit, ok := ast.Unparen(e).(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}
