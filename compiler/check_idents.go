package compiler

import (
	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
)

// builtinNames are always in scope and never reported.
var builtinNames = map[string]bool{
	"self":    true,
	"println": true,
	"print":   true,
	"panic":   true,
	"drop":    true,
}

// identCheck implements ast.Check and reports variable references that
// resolve to no binding.
type identCheck struct{}

// UnresolvedNameCheck returns a Check that reports references to names
// with no visible declaration. Identifiers in callee position and fn item
// names are functions, not variables, and are never reported.
func UnresolvedNameCheck() ast.Check { return &identCheck{} }

func (ic *identCheck) Name() string { return "unresolved-name" }

func (ic *identCheck) Check(prog *ast.Program) error {
	funcs := make(map[string]bool)
	ast.Walk(prog, func(n ast.Node) bool {
		if f, ok := n.(*ast.FuncDef); ok {
			funcs[f.Name] = true
		}
		return false
	})

	var out diag.List
	b := newBinder()
	b.ref = func(id *ast.Ident, at env.Point, callee bool) {
		if callee || funcs[id.Name] || builtinNames[id.Name] {
			return
		}
		if _, ok := b.env.Resolve(id.Name, at); ok {
			return
		}
		out.Add(diag.Diagnostic{
			Kind: diag.UnresolvedName,
			Name: id.Name,
			Span: ast.SpanOf(id),
		})
	}
	if err := b.bind(prog); err != nil {
		return err
	}
	out.Sort()
	return out.Err()
}
