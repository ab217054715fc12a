package compiler

import (
	"fmt"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/env"
)

// binder walks a program top-down, declaring every binding in an
// environment as it is reached. Callbacks observe the walk with the
// environment Point at the node, so a check sees exactly the names in
// scope there.
type binder struct {
	env *env.Env

	// ref is called for each identifier evaluated for its value or used as
	// a place. callee is set when the identifier is the function of a call.
	ref func(id *ast.Ident, at env.Point, callee bool)
	// closure is called when a closure is reached, before its parameters
	// are declared.
	closure func(c *ast.Closure, at env.Point)

	err error
}

func newBinder() *binder { return &binder{env: env.New()} }

// bind walks prog. Top-level statements run in a scope of their own under
// the root; fn items start from the root and see only their parameters.
func (b *binder) bind(prog *ast.Program) error {
	b.push()
	b.stmts(prog.Statements)
	b.pop()
	return b.err
}

func (b *binder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *binder) push() {
	if _, err := b.env.Push(); err != nil {
		b.fail(fmt.Errorf("opening scope: %w", err))
	}
}

func (b *binder) pop() {
	if err := b.env.Pop(); err != nil {
		b.fail(fmt.Errorf("closing scope: %w", err))
	}
}

func (b *binder) declareParams(ps []ast.Param) {
	for _, p := range ps {
		mut := env.Immutable
		if p.Mutable {
			mut = env.Mutable
		}
		if _, err := b.env.Declare(p.Name, mut, env.DeclParam, p.Span); err != nil {
			b.fail(fmt.Errorf("declaring parameter %s: %w", p.Name, err))
		}
	}
}

func (b *binder) stmts(ss []ast.Statement) {
	for _, s := range ss {
		b.stmt(s)
	}
}

func (b *binder) block(ss []ast.Statement) {
	b.push()
	b.stmts(ss)
	b.pop()
}

func (b *binder) stmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.LetStmt:
		b.expr(st.Value)
		mut := env.Immutable
		if st.Mutable {
			mut = env.Mutable
		}
		if _, err := b.env.Declare(st.Name, mut, env.DeclLet, st.NameSpan); err != nil {
			b.fail(fmt.Errorf("declaring %s: %w", st.Name, err))
		}
	case *ast.AssignStmt:
		b.expr(st.Value)
		b.expr(st.Target)
	case *ast.ExprStmt:
		b.expr(st.Expression)
	case *ast.BlockStmt:
		b.block(st.Body)
	case *ast.IfStmt:
		b.expr(st.Condition)
		b.block(st.Body)
		b.block(st.ElseBody)
	case *ast.WhileStmt:
		b.expr(st.Condition)
		b.block(st.Body)
	case *ast.ReturnStmt:
		b.expr(st.Value)
	case *ast.FuncDef:
		if _, err := b.env.PushUnder(env.Root); err != nil {
			b.fail(fmt.Errorf("opening fn %s: %w", st.Name, err))
			return
		}
		b.declareParams(st.Params)
		b.stmts(st.Body)
		b.pop()
	case *ast.ExternFn:
	}
}

func (b *binder) exprs(es []ast.Expr) {
	for _, e := range es {
		b.expr(e)
	}
}

func (b *binder) expr(e ast.Expr) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Ident:
		if b.ref != nil {
			b.ref(ex, b.env.Here(), false)
		}
	case *ast.UnaryExpr:
		b.expr(ex.Operand)
	case *ast.BinaryExpr:
		b.expr(ex.Left)
		b.expr(ex.Right)
	case *ast.CallExpr:
		if id, ok := ex.Func.(*ast.Ident); ok {
			if b.ref != nil {
				b.ref(id, b.env.Here(), true)
			}
		} else {
			b.expr(ex.Func)
		}
		b.exprs(ex.Args)
	case *ast.MethodCall:
		b.expr(ex.Receiver)
		b.exprs(ex.Args)
	case *ast.FieldExpr:
		b.expr(ex.Object)
	case *ast.IndexExpr:
		b.expr(ex.Object)
		b.expr(ex.Index)
	case *ast.Closure:
		if b.closure != nil {
			b.closure(ex, b.env.Here())
		}
		b.push()
		b.declareParams(ex.Params)
		b.stmts(ex.Body)
		b.pop()
	}
}
