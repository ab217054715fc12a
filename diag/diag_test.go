package diag

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernc.org/token"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{
			Diagnostic{Kind: CannotAssignImmutableCapture, Name: "x", Construct: "proc"},
			"cannot assign to immutable captured outer variable in a proc `x`",
		},
		{
			Diagnostic{Kind: CannotBorrowImmutableCaptureAsMutable, Name: "s", Construct: "proc"},
			"cannot borrow immutable captured outer variable in a proc `s` as mutable",
		},
		{
			Diagnostic{Kind: CannotAssignImmutableCapture, Name: "y"},
			"cannot assign to immutable captured outer variable in a closure `y`",
		},
		{
			Diagnostic{Kind: UnresolvedName, Name: "z"},
			"unresolved name `z`",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.Message())
	}
}

func TestKindCodes(t *testing.T) {
	assert.Equal(t, "E0001", CannotAssignImmutableCapture.Code())
	assert.Equal(t, "E0002", CannotBorrowImmutableCaptureAsMutable.Code())
	assert.Equal(t, "E0100", UnresolvedName.Code())
	assert.Equal(t, "", Kind(0).Code())
	assert.Equal(t, "Kind(42)", Kind(42).String())

	for _, k := range Kinds() {
		got, ok := KindByCode(k.Code())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
		got, ok = KindByCode(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	k, ok := KindByCode("e0002")
	assert.True(t, ok)
	assert.Equal(t, CannotBorrowImmutableCaptureAsMutable, k)
	_, ok = KindByCode("E9999")
	assert.False(t, ok)
}

func TestListSortAndDedup(t *testing.T) {
	var l List
	l.Add(Diagnostic{Kind: CannotBorrowImmutableCaptureAsMutable, Name: "s", Span: Span{Start: 30, End: 35}})
	l.Add(Diagnostic{Kind: CannotAssignImmutableCapture, Name: "x", Span: Span{Start: 10, End: 15}})
	l.Add(Diagnostic{Kind: CannotAssignImmutableCapture, Name: "x", Span: Span{Start: 10, End: 15}})
	l.Add(Diagnostic{Kind: CannotBorrowImmutableCaptureAsMutable, Name: "x", Span: Span{Start: 10, End: 15}})

	l.Sort()
	require.Len(t, l, 4)
	assert.Equal(t, token.Pos(10), l[0].Span.Start)
	assert.Equal(t, CannotAssignImmutableCapture, l[0].Kind)
	assert.Equal(t, CannotBorrowImmutableCaptureAsMutable, l[2].Kind)
	assert.Equal(t, token.Pos(30), l[3].Span.Start)

	l.Dedup()
	require.Len(t, l, 3, "different kinds at the same span are kept")
	assert.Equal(t, []Kind{CannotAssignImmutableCapture, CannotBorrowImmutableCaptureAsMutable, CannotBorrowImmutableCaptureAsMutable},
		[]Kind{l[0].Kind, l[1].Kind, l[2].Kind})
}

func TestListAsError(t *testing.T) {
	var empty List
	assert.NoError(t, empty.Err())

	l := List{
		{Kind: CannotAssignImmutableCapture, Name: "x", Construct: "proc"},
		{Kind: UnresolvedName, Name: "z"},
	}
	err := fmt.Errorf("check: %w", l.Err())
	var got List
	require.True(t, errors.As(err, &got))
	assert.Len(t, got, 2)
	assert.Contains(t, err.Error(), "E0001: cannot assign")
	assert.Contains(t, err.Error(), "(and 1 more errors)")
}

func TestRender(t *testing.T) {
	src := []byte("let x = 1;\nproc() { x = 2; };\n")
	f := token.NewFile("t.cap", len(src))
	f.SetLinesForContent(src)

	d := Diagnostic{
		Kind:      CannotAssignImmutableCapture,
		Name:      "x",
		Span:      Span{Start: f.Pos(20), End: f.Pos(26)},
		Decl:      Span{Start: f.Pos(4), End: f.Pos(5)},
		Construct: "proc",
	}
	r := &Renderer{File: f, Source: src}
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, List{d}))

	want := "t.cap:2:10: error[E0001]: cannot assign to immutable captured outer variable in a proc `x`\n" +
		"    proc() { x = 2; };\n" +
		"             ^^^^^^\n" +
		"t.cap:1:5: note: `x` declared immutable here\n" +
		"    let x = 1;\n" +
		"        ^\n" +
		"1 error\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderColorAndUnknownPositions(t *testing.T) {
	r := &Renderer{Color: true}
	var buf bytes.Buffer
	l := List{
		{Kind: UnresolvedName, Name: "a", Span: Span{Start: 5, End: 6}},
		{Kind: UnresolvedName, Name: "b", Span: Span{Start: 9, End: 10}},
	}
	require.NoError(t, r.Render(&buf, l))
	out := buf.String()
	assert.Contains(t, out, "-: \033[31m\033[1merror[E0100]\033[0m: unresolved name `a`")
	assert.Contains(t, out, "2 errors")
	assert.NotContains(t, out, "note")
}

func TestRendererPositionOutsideFile(t *testing.T) {
	f := token.NewFile("a.cap", 10)
	r := &Renderer{File: f}
	outside := r.Position(token.Pos(500))
	assert.False(t, outside.IsValid())
	none := r.Position(token.NoPos)
	assert.False(t, none.IsValid())
	p := r.Position(f.Pos(3))
	assert.Equal(t, 1, p.Line)
	assert.Equal(t, 4, p.Column)
}
