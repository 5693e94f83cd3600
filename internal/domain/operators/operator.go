// Package operators provides the Go source mutation operators.
//
// An operator finds the mutation sites of a source file in a fixed traversal
// order. Each site is one occurrence: Count reports how many there are and
// Apply returns a copy of the source with exactly one of them rewritten.
package operators

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

var (
	// ErrUnknownOperator is returned when a registry lookup fails.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrOccurrenceOutOfRange is returned by Apply for an occurrence the
	// source does not have.
	ErrOccurrenceOutOfRange = errors.New("occurrence out of range")
)

// Operator mutates Go source code.
type Operator interface {
	Name() string
	Description() string
	// Count returns the number of mutation sites in src.
	Count(src []byte) (int, error)
	// Apply returns a new buffer with the occurrence-th site mutated. src is
	// never modified.
	Apply(src []byte, occurrence int) ([]byte, error)
}

// site is a byte range of the source and the text that replaces it.
type site struct {
	start, end  int
	replacement string
}

// finder collects the sites a single AST node contributes.
type finder func(n ast.Node, fset *token.FileSet, src []byte) []site

type astOperator struct {
	name        string
	description string
	find        finder
}

func (o *astOperator) Name() string {
	return o.name
}

func (o *astOperator) Description() string {
	return o.description
}

func (o *astOperator) Count(src []byte) (int, error) {
	sites, err := o.sites(src)
	if err != nil {
		return 0, err
	}

	return len(sites), nil
}

func (o *astOperator) Apply(src []byte, occurrence int) ([]byte, error) {
	sites, err := o.sites(src)
	if err != nil {
		return nil, err
	}

	if occurrence < 0 || occurrence >= len(sites) {
		return nil, fmt.Errorf("%s occurrence %d of %d: %w", o.name, occurrence, len(sites), ErrOccurrenceOutOfRange)
	}

	s := sites[occurrence]

	return replaceRange(src, s.start, s.end, s.replacement), nil
}

func (o *astOperator) sites(src []byte) ([]site, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	ignore := buildIgnoreIndex(file, fset, src)
	if ignore.file.ignores(o.name) {
		return nil, nil
	}

	var sites []site

	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			return true
		}

		if fd, ok := n.(*ast.FuncDecl); ok {
			if rule, ok := ignore.funcs[fd.Pos()]; ok && rule.ignores(o.name) {
				return false
			}
		}

		line := fset.Position(n.Pos()).Line
		if rule, ok := ignore.lines[line]; ok && rule.ignores(o.name) {
			return true
		}

		sites = append(sites, o.find(n, fset, src)...)

		return true
	})

	return sites, nil
}

func offsetForPos(fset *token.FileSet, pos token.Pos) (int, bool) {
	if !pos.IsValid() {
		return 0, false
	}

	return fset.Position(pos).Offset, true
}

func nodeRange(fset *token.FileSet, n ast.Node) (int, int, bool) {
	start, ok1 := offsetForPos(fset, n.Pos())
	end, ok2 := offsetForPos(fset, n.End())

	return start, end, ok1 && ok2
}

// replaceRange returns a copy of src with src[start:end] replaced.
func replaceRange(src []byte, start, end int, replacement string) []byte {
	out := make([]byte, 0, len(src)-(end-start)+len(replacement))
	out = append(out, src[:start]...)
	out = append(out, replacement...)
	out = append(out, src[end:]...)

	return out
}

// tokenSites emits one site per alternative of the operator token at pos.
func tokenSites(fset *token.FileSet, pos token.Pos, original token.Token, alternatives []token.Token) []site {
	start, ok := offsetForPos(fset, pos)
	if !ok {
		return nil
	}

	end := start + len(original.String())
	sites := make([]site, 0, len(alternatives))

	for _, alt := range alternatives {
		if alt == original {
			continue
		}

		sites = append(sites, site{start: start, end: end, replacement: alt.String()})
	}

	return sites
}
