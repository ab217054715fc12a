package methods

import (
	"testing"

	"github.com/rubiojr/capcheck/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(f *ast.Factory, method string) *ast.MethodCall {
	return f.Method(f.Ident("s"), method)
}

func TestDefaults(t *testing.T) {
	f := ast.NewFactory()
	tbl := Defaults()

	for _, m := range []string{"read_to_end", "push", "insert", "clear", "pop", "truncate", "sort", "write", "next"} {
		assert.True(t, tbl.MutableReceiver(call(f, m)), m)
	}
	for _, m := range []string{"len", "clone", "get", "iter", "into_iter", "unwrap"} {
		assert.False(t, tbl.MutableReceiver(call(f, m)), m)
	}
	assert.False(t, tbl.MutableReceiver(call(f, "frobnicate")), "unknown methods take &self")

	s, ok := tbl.Lookup("read_to_end")
	require.True(t, ok)
	assert.Equal(t, Builtin, s.Source)
	assert.NotEmpty(t, s.Doc)
}

func TestRegisterOverrides(t *testing.T) {
	f := ast.NewFactory()
	tbl := Defaults()
	tbl.Register(Sig{Name: "next", Receiver: ast.RecvShared, Source: Config})
	assert.False(t, tbl.MutableReceiver(call(f, "next")))

	var zero Table
	zero.Register(Sig{Name: "reset", Receiver: ast.RecvMut})
	assert.True(t, zero.MutableReceiver(call(f, "reset")))
}

func TestCloneIsIndependent(t *testing.T) {
	f := ast.NewFactory()
	base := Defaults()
	c := base.Clone()
	c.Register(Sig{Name: "drain", Receiver: ast.RecvMut})
	assert.True(t, c.MutableReceiver(call(f, "drain")))
	assert.False(t, base.MutableReceiver(call(f, "drain")))
	assert.Equal(t, len(base.Names())+1, len(c.Names()))
}

func TestAddExterns(t *testing.T) {
	f := ast.NewFactory()
	prog := f.Program(
		f.Extern("consume", ast.RecvMut),
		f.Extern("peek", ast.RecvShared),
		f.Extern("helper", ast.RecvNone),
		f.Func("main", nil, f.Extern("nested", ast.RecvMut)),
	)
	tbl := New()
	assert.Equal(t, 3, tbl.AddExterns(prog))
	assert.True(t, tbl.MutableReceiver(call(f, "consume")))
	assert.True(t, tbl.MutableReceiver(call(f, "nested")))
	assert.False(t, tbl.MutableReceiver(call(f, "peek")))
	_, ok := tbl.Lookup("helper")
	assert.False(t, ok, "free functions have no receiver")

	s, _ := tbl.Lookup("consume")
	assert.Equal(t, Extern, s.Source)
	assert.Equal(t, []string{"consume", "nested", "peek"}, tbl.Names())
}

func TestSetDoc(t *testing.T) {
	tbl := Defaults()
	assert.True(t, tbl.SetDoc("push", "Appends."))
	s, _ := tbl.Lookup("push")
	assert.Equal(t, "Appends.", s.Doc)
	assert.False(t, tbl.SetDoc("missing", "x"))
}
