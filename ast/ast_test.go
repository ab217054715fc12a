package ast

import (
	"errors"
	"testing"

	"github.com/rubiojr/capcheck/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryDistinctPositions(t *testing.T) {
	f := NewFactory()
	a := f.Ident("x")
	b := f.Ident("x")
	assert.NotEqual(t, SpanOf(a), SpanOf(b))
	assert.True(t, a.Pos().IsValid())
	assert.Less(t, a.Pos(), a.End())
	assert.Less(t, a.End(), b.Pos())
}

func TestFactoryClosures(t *testing.T) {
	f := NewFactory()
	c := f.Closure(nil)
	assert.Equal(t, ConstructClosure, c.Construct)
	assert.False(t, c.ByValue())

	m := f.MoveClosure([]Param{f.Param("a")})
	assert.True(t, m.Move)
	assert.True(t, m.ByValue())
	require.Len(t, m.Params, 1)
	assert.Equal(t, "a", m.Params[0].Name)

	p := f.Proc(nil)
	assert.Equal(t, "proc", p.Construct.String())
	assert.True(t, p.ByValue())
}

func TestFactoryLetAndAssign(t *testing.T) {
	f := NewFactory()
	l := f.LetMut("x", f.Int("1"))
	assert.True(t, l.Mutable)
	assert.True(t, l.NameSpan.IsValid())

	a := f.AssignOp(f.Ident("x"), "+=", f.Int("2"))
	assert.True(t, a.Compound())
	assert.False(t, f.Assign(f.Ident("x"), f.Int("3")).Compound())
}

func TestProgramFromKeepsMetadata(t *testing.T) {
	f := NewFactory()
	src := &Program{SourceFile: "a.cap", Source: []byte("x")}
	p := f.ProgramFrom(src, []Statement{f.Expr(f.Ident("x"))})
	assert.Equal(t, "a.cap", p.SourceFile)
	assert.Equal(t, []byte("x"), p.Source)
	assert.Len(t, p.Statements, 1)
	assert.Equal(t, p.Statements[0].Pos(), p.Pos())
}

func TestWalkVisitsEveryNode(t *testing.T) {
	f := NewFactory()
	inner := f.Closure(nil, f.Expr(f.Ident("y")))
	outer := f.Proc(nil,
		f.Assign(f.Field(f.Ident("x"), "f"), f.Index(f.Ident("v"), f.Int("0"))),
		f.Expr(f.Method(f.Ident("s"), "push", inner)),
	)
	prog := f.Program(
		f.Let("x", f.Binary(f.Int("1"), "+", f.Unary("-", f.Int("2")))),
		f.If(f.Bool(true), []Statement{f.Expr(outer)}, []Statement{f.Return(nil)}),
		f.While(f.Bool(false), f.Block(f.Expr(f.Call(f.Path("std", "io", "stdin"))))),
		f.Func("g", nil, f.Expr(f.String("s"))),
	)

	var idents []string
	Walk(prog, func(n Node) bool {
		if id, ok := n.(*Ident); ok {
			idents = append(idents, id.Name)
		}
		return false
	})
	assert.Equal(t, []string{"x", "v", "s", "y"}, idents)

	var cs []*Closure
	Walk(prog, func(n Node) bool {
		if c, ok := n.(*Closure); ok {
			cs = append(cs, c)
		}
		return false
	})
	require.Len(t, cs, 2, "nested closures follow the one containing them")
	assert.Same(t, outer, cs[0])
	assert.Same(t, inner, cs[1])
}

func TestWalkStopsEarly(t *testing.T) {
	f := NewFactory()
	prog := f.Program(f.Expr(f.Ident("a")), f.Expr(f.Ident("b")))
	var seen []string
	stopped := Walk(prog, func(n Node) bool {
		if id, ok := n.(*Ident); ok {
			seen = append(seen, id.Name)
			return true
		}
		return false
	})
	assert.True(t, stopped)
	assert.Equal(t, []string{"a"}, seen)
}

func TestCheckChainGathersDiagnostics(t *testing.T) {
	first := CheckFunc{N: "first", F: func(*Program) error {
		return diag.List{{Kind: diag.UnresolvedName, Name: "b", Span: diag.Span{Start: 20, End: 21}}}
	}}
	clean := CheckFunc{N: "clean", F: func(*Program) error { return nil }}
	second := CheckFunc{N: "second", F: func(*Program) error {
		return diag.List{{Kind: diag.CannotAssignImmutableCapture, Name: "a", Span: diag.Span{Start: 10, End: 11}}}
	}}

	err := CheckChain{first, clean, second}.Run(&Program{})
	var l diag.List
	require.True(t, errors.As(err, &l))
	require.Len(t, l, 2)
	assert.Equal(t, "a", l[0].Name, "sorted by position")
	assert.Equal(t, "b", l[1].Name)

	assert.NoError(t, CheckChain{clean}.Run(&Program{}))
}

func TestCheckChainAbortsOnInternalError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	chain := CheckChain{
		CheckFunc{N: "broken", F: func(*Program) error { return boom }},
		CheckFunc{N: "after", F: func(*Program) error { ran = true; return nil }},
	}
	err := chain.Run(&Program{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.False(t, ran)
}

func TestReceiverStrings(t *testing.T) {
	assert.Equal(t, "&self", RecvShared.String())
	assert.Equal(t, "&mut self", RecvMut.String())
	assert.Equal(t, "self", RecvOwned.String())
	assert.Equal(t, "", RecvNone.String())
}
