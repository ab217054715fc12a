package capture

import (
	"testing"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
	"github.com/rubiojr/capcheck/methods"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t *testing.T
	f *ast.Factory
	e *env.Env
}

func newFixture(t *testing.T) *fixture {
	e := env.New()
	_, err := e.Push()
	require.NoError(t, err)
	return &fixture{t: t, f: ast.NewFactory(), e: e}
}

func (fx *fixture) decl(name string, mut env.Mutability) env.BindingID {
	id, err := fx.e.Declare(name, mut, env.DeclLet, ast.SpanOf(fx.f.Ident(name)))
	require.NoError(fx.t, err)
	return id
}

func (fx *fixture) analyze(c *ast.Closure) *Set {
	return Analyze(c, fx.e, fx.e.Here(), methods.Defaults())
}

func (fx *fixture) record(s *Set, id env.BindingID) *Record {
	r, ok := s.Get(id)
	require.True(fx.t, ok, "binding %d not captured", id)
	return r
}

func TestRead(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f
	use := f.Ident("x")
	set := fx.analyze(f.Closure(nil, f.Expr(f.Binary(use, "+", f.Int("1")))))

	require.Equal(t, 1, set.Len())
	r := fx.record(set, x)
	assert.Equal(t, Read, r.Modes)
	assert.Equal(t, ByRef, r.By)
	assert.Equal(t, "x", r.Name)
	require.Len(t, r.Uses, 1)
	assert.Equal(t, ast.SpanOf(use), r.Uses[0].Span)
	assert.False(t, r.Uses[0].Forwarded)
}

func TestAssign(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f
	stmt := f.Assign(f.Ident("x"), f.Int("2"))
	set := fx.analyze(f.Closure(nil, stmt))

	r := fx.record(set, x)
	assert.Equal(t, Assign, r.Modes)
	assert.Equal(t, ByMutRef, r.By)
	require.Len(t, r.Uses, 1)
	assert.Equal(t, ast.SpanOf(stmt), r.Uses[0].Span)
}

func TestCompoundAssignIsAssignOnly(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f
	set := fx.analyze(f.Closure(nil, f.AssignOp(f.Ident("x"), "+=", f.Int("1"))))
	assert.Equal(t, Assign, fx.record(set, x).Modes)
}

func TestPlacesRootedAtVariable(t *testing.T) {
	fx := newFixture(t)
	p := fx.decl("p", env.Immutable)
	v := fx.decl("v", env.Immutable)
	i := fx.decl("i", env.Immutable)
	f := fx.f
	set := fx.analyze(f.Closure(nil,
		f.Assign(f.Field(f.Field(f.Ident("p"), "a"), "b"), f.Int("1")),
		f.Assign(f.Index(f.Ident("v"), f.Ident("i")), f.Int("2")),
	))

	assert.Equal(t, Assign, fx.record(set, p).Modes)
	assert.Equal(t, Assign, fx.record(set, v).Modes)
	assert.Equal(t, Read, fx.record(set, i).Modes, "the index is only read")
}

func TestMutableBorrows(t *testing.T) {
	fx := newFixture(t)
	s := fx.decl("s", env.Immutable)
	r := fx.decl("r", env.Immutable)
	o := fx.decl("o", env.Immutable)
	n := fx.decl("n", env.Immutable)
	f := fx.f

	call := f.Method(f.Ident("s"), "read_to_end")
	borrow := f.Unary("&mut", f.Ident("r"))
	set := fx.analyze(f.Closure(nil,
		f.Expr(call),
		f.Let("b", borrow),
		f.Expr(f.Method(f.Field(f.Ident("o"), "items"), "push", f.Int("1"))),
		f.Expr(f.Method(f.Ident("n"), "len")),
		f.Expr(f.Unary("&", f.Ident("n"))),
	))

	rs := fx.record(set, s)
	assert.Equal(t, MutableBorrow, rs.Modes)
	assert.Equal(t, ast.SpanOf(call), rs.Uses[0].Span)
	rr := fx.record(set, r)
	assert.Equal(t, MutableBorrow, rr.Modes)
	assert.Equal(t, ast.SpanOf(borrow), rr.Uses[0].Span)
	assert.Equal(t, MutableBorrow, fx.record(set, o).Modes)
	assert.Equal(t, Read, fx.record(set, n).Modes)
	assert.Equal(t, ByMutRef, rs.By)
}

func TestNilSignaturesReadReceivers(t *testing.T) {
	fx := newFixture(t)
	s := fx.decl("s", env.Immutable)
	f := fx.f
	set := Analyze(f.Closure(nil, f.Expr(f.Method(f.Ident("s"), "read_to_end"))), fx.e, fx.e.Here(), nil)
	assert.Equal(t, Read, fx.record(set, s).Modes)
}

func TestDerefAssignReadsReference(t *testing.T) {
	fx := newFixture(t)
	r := fx.decl("r", env.Immutable)
	f := fx.f
	set := fx.analyze(f.Closure(nil, f.Assign(f.Unary("*", f.Ident("r")), f.Int("3"))))
	assert.Equal(t, Read, fx.record(set, r).Modes)
}

func TestShadowing(t *testing.T) {
	fx := newFixture(t)
	fx.decl("x", env.Immutable)
	f := fx.f

	set := fx.analyze(f.Closure(nil,
		f.Let("x", f.Int("5")),
		f.Assign(f.Ident("x"), f.Int("6")),
	))
	assert.Equal(t, 0, set.Len(), "the inner let shadows the capture")

	set = fx.analyze(f.Closure([]ast.Param{f.Param("x")}, f.Assign(f.Ident("x"), f.Int("1"))))
	assert.Equal(t, 0, set.Len(), "parameters shadow captures")
}

func TestLetInitializerSeesOuterName(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f
	set := fx.analyze(f.Closure(nil, f.Let("x", f.Ident("x")), f.Assign(f.Ident("x"), f.Int("1"))))
	r := fx.record(set, x)
	assert.Equal(t, Read, r.Modes, "only the initializer refers to the outer x")
}

func TestBlockLocalsEndWithBlock(t *testing.T) {
	fx := newFixture(t)
	y := fx.decl("y", env.Immutable)
	f := fx.f
	set := fx.analyze(f.Closure(nil,
		f.Block(f.Let("y", f.Int("1")), f.Assign(f.Ident("y"), f.Int("2"))),
		f.Assign(f.Ident("y"), f.Int("3")),
	))
	r := fx.record(set, y)
	assert.Equal(t, Assign, r.Modes)
	assert.Len(t, r.Uses, 1)
}

func TestNestedClosureForwardsReads(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f
	inner := f.Closure(nil, f.Assign(f.Ident("x"), f.Int("1")), f.Expr(f.Method(f.Ident("x"), "push")))
	set := fx.analyze(f.Closure(nil, f.Expr(inner)))

	r := fx.record(set, x)
	assert.Equal(t, Read, r.Modes)
	require.Len(t, r.Uses, 2)
	for _, u := range r.Uses {
		assert.True(t, u.Forwarded)
		assert.Equal(t, Read, u.Mode)
	}
}

func TestUnresolvedNamesAreSkipped(t *testing.T) {
	fx := newFixture(t)
	f := fx.f
	set := fx.analyze(f.Closure(nil,
		f.Assign(f.Ident("nowhere"), f.Int("1")),
		f.Expr(f.Call(f.Ident("free_fn"))),
		f.Expr(f.Call(f.Path("std", "io", "stdin"))),
	))
	assert.Equal(t, 0, set.Len())
}

func TestLaterBindingsAreNotCaptured(t *testing.T) {
	fx := newFixture(t)
	f := fx.f
	fx.decl("a", env.Immutable)
	at := fx.e.Here()
	fx.decl("later", env.Immutable)

	set := Analyze(f.Closure(nil, f.Assign(f.Ident("later"), f.Int("1"))), fx.e, at, nil)
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, at, set.At)
}

func TestCaptureKind(t *testing.T) {
	fx := newFixture(t)
	x := fx.decl("x", env.Immutable)
	f := fx.f

	set := fx.analyze(f.Proc(nil, f.Assign(f.Ident("x"), f.Int("1"))))
	assert.Equal(t, ByValue, fx.record(set, x).By)
	set = fx.analyze(f.MoveClosure(nil, f.Expr(f.Ident("x"))))
	assert.Equal(t, ByValue, fx.record(set, x).By)
	set = fx.analyze(f.Closure(nil, f.Expr(f.Ident("x"))))
	assert.Equal(t, ByRef, fx.record(set, x).By)
}

func TestRecordsOrderAndAccumulation(t *testing.T) {
	fx := newFixture(t)
	a := fx.decl("a", env.Immutable)
	b := fx.decl("b", env.Mutable)
	f := fx.f
	c := f.Closure(nil,
		f.Expr(f.Ident("b")),
		f.Assign(f.Ident("b"), f.Ident("a")),
		f.Expr(f.Unary("&mut", f.Ident("b"))),
	)
	set := fx.analyze(c)

	recs := set.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, a, recs[0].Binding)
	assert.Equal(t, b, recs[1].Binding)
	assert.Equal(t, Read|Assign|MutableBorrow, recs[1].Modes)
	assert.Len(t, recs[1].Uses, 3)
	assert.Same(t, c, set.Closure)

	again := fx.analyze(c)
	assert.Equal(t, set.Records(), again.Records(), "analysis is pure")
}

func TestSetAdd(t *testing.T) {
	set := NewSet(nil, env.Point{})
	b := env.Binding{ID: 3, Name: "q"}
	set.Add(b, Read, diag.Span{Start: 1, End: 2})
	set.Add(b, Assign, diag.Span{Start: 5, End: 6})
	r, ok := set.Get(3)
	require.True(t, ok)
	assert.Equal(t, Read|Assign, r.Modes)
	assert.Equal(t, "q", r.Name)
	_, ok = set.Get(4)
	assert.False(t, ok)
}

func TestModeHelpers(t *testing.T) {
	m := Read | MutableBorrow
	assert.True(t, m.Has(Read))
	assert.False(t, m.Has(Assign))
	assert.True(t, m.Mutates())
	assert.False(t, Read.Mutates())
	assert.Equal(t, MutableBorrow, m.MostRestrictive())
	assert.Equal(t, Assign, (m | Assign).MostRestrictive())
	assert.Equal(t, Read, Read.MostRestrictive())
	assert.Equal(t, Mode(0), Mode(0).MostRestrictive())
	assert.Equal(t, "read|mut-borrow", m.String())
	assert.Equal(t, "none", Mode(0).String())
	assert.Equal(t, "by-mut-ref", ByMutRef.String())
	assert.Equal(t, "by-value", ByValue.String())
	assert.Equal(t, "by-ref", ByRef.String())
}
