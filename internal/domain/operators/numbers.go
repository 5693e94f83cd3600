package operators

import (
	"go/ast"
	"go/token"
	"strconv"
)

// NewNumbers nudges numeric literals by one in each direction.
func NewNumbers() Operator {
	return &astOperator{
		name:        "numbers",
		description: "replace numeric literals n with n+1 and n-1",
		find:        findNumbers,
	}
}

func findNumbers(n ast.Node, fset *token.FileSet, _ []byte) []site {
	lit, ok := n.(*ast.BasicLit)
	if !ok || (lit.Kind != token.INT && lit.Kind != token.FLOAT) {
		return nil
	}

	start, end, ok := nodeRange(fset, lit)
	if !ok {
		return nil
	}

	var replacements []string

	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseUint(lit.Value, 0, 64)
		if err != nil {
			return nil
		}

		if v < ^uint64(0) {
			replacements = append(replacements, strconv.FormatUint(v+1, 10))
		}

		// Literals are never negative; going below zero breaks unsigned contexts.
		if v > 0 {
			replacements = append(replacements, strconv.FormatUint(v-1, 10))
		}
	case token.FLOAT:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil
		}

		replacements = append(replacements, formatFloat(v+1), formatFloat(v-1))
	}

	sites := make([]site, 0, len(replacements))
	for _, r := range replacements {
		sites = append(sites, site{start: start, end: end, replacement: r})
	}

	return sites
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}

	return s
}
