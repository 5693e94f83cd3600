package operators

import (
	"go/ast"
	"go/token"
	"strings"
)

const ignoreDirective = "//orbit:ignore"

// ignoreRule lists the operators a directive disables; empty means all.
type ignoreRule map[string]struct{}

func (r ignoreRule) ignores(operator string) bool {
	if r == nil {
		return false
	}

	if len(r) == 0 {
		return true
	}

	_, ok := r[operator]

	return ok
}

type ignoreIndex struct {
	file  ignoreRule
	funcs map[token.Pos]ignoreRule
	lines map[int]ignoreRule
}

// buildIgnoreIndex reads //orbit:ignore directives. A directive above the
// package clause covers the file and one in a function's doc comment covers
// the function. A trailing directive covers its own line; a directive on a
// line of its own covers the next line.
//
//	//orbit:ignore
//	//orbit:ignore arithmetic,comparison
func buildIgnoreIndex(file *ast.File, fset *token.FileSet, src []byte) ignoreIndex {
	idx := ignoreIndex{
		funcs: map[token.Pos]ignoreRule{},
		lines: map[int]ignoreRule{},
	}

	if file.Doc != nil {
		idx.file = directiveIn(file.Doc)
	}

	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Doc != nil {
			if rule := directiveIn(fd.Doc); rule != nil {
				idx.funcs[fd.Pos()] = rule
			}
		}
	}

	for _, group := range file.Comments {
		for _, c := range group.List {
			rule, ok := parseDirective(c.Text)
			if !ok {
				continue
			}

			pos := fset.Position(c.Slash)

			line := pos.Line
			if !trailing(src, pos.Offset) {
				line++
			}

			idx.lines[line] = merge(idx.lines[line], rule)
		}
	}

	return idx
}

// trailing reports whether code precedes offset on its line.
func trailing(src []byte, offset int) bool {
	for i := offset - 1; i >= 0 && src[i] != '\n'; i-- {
		if src[i] != ' ' && src[i] != '\t' {
			return true
		}
	}

	return false
}

func directiveIn(group *ast.CommentGroup) ignoreRule {
	var rule ignoreRule

	for _, c := range group.List {
		if r, ok := parseDirective(c.Text); ok {
			rule = merge(rule, r)
		}
	}

	return rule
}

func parseDirective(text string) (ignoreRule, bool) {
	rest, ok := strings.CutPrefix(text, ignoreDirective)
	if !ok {
		return nil, false
	}

	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return nil, false
	}

	rule := ignoreRule{}

	for _, name := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		rule[name] = struct{}{}
	}

	return rule, true
}

func merge(a, b ignoreRule) ignoreRule {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case len(a) == 0 || len(b) == 0:
		return ignoreRule{}
	}

	out := ignoreRule{}
	for k := range a {
		out[k] = struct{}{}
	}

	for k := range b {
		out[k] = struct{}{}
	}

	return out
}
