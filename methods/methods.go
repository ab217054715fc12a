// Package methods keeps the method signatures the capture analyzer needs:
// for each method name, how the method takes its receiver. A call whose
// method takes &mut self borrows its receiver mutably.
//
// Signatures come from three places, later ones overriding earlier ones:
// the built-in table below, the project configuration, and extern fn
// declarations in the checked source.
package methods

import (
	"sort"

	"github.com/rubiojr/capcheck/ast"
)

// Source records where a signature came from.
type Source string

const (
	Builtin Source = "builtin"
	Config  Source = "config"
	Extern  Source = "extern"
)

// Sig describes one method.
type Sig struct {
	// Name is the method name (e.g. "read_to_end").
	Name string
	// Receiver is how the method takes self.
	Receiver ast.Receiver
	// Doc is a one-line description shown by `capcheck explain`.
	Doc    string
	Source Source
}

var builtins = []Sig{
	{Name: "read_to_end", Receiver: ast.RecvMut, Doc: "Read all remaining bytes of a reader."},
	{Name: "read_to_string", Receiver: ast.RecvMut, Doc: "Read all remaining bytes of a reader as text."},
	{Name: "read_line", Receiver: ast.RecvMut, Doc: "Read one line from a reader."},
	{Name: "write", Receiver: ast.RecvMut, Doc: "Write bytes to a writer."},
	{Name: "write_all", Receiver: ast.RecvMut, Doc: "Write every byte to a writer."},
	{Name: "flush", Receiver: ast.RecvMut, Doc: "Flush a buffered writer."},
	{Name: "push", Receiver: ast.RecvMut, Doc: "Append an element."},
	{Name: "push_str", Receiver: ast.RecvMut, Doc: "Append a string slice."},
	{Name: "pop", Receiver: ast.RecvMut, Doc: "Remove the last element."},
	{Name: "insert", Receiver: ast.RecvMut, Doc: "Insert an element."},
	{Name: "remove", Receiver: ast.RecvMut, Doc: "Remove an element."},
	{Name: "clear", Receiver: ast.RecvMut, Doc: "Remove every element."},
	{Name: "truncate", Receiver: ast.RecvMut, Doc: "Shorten to a length."},
	{Name: "sort", Receiver: ast.RecvMut, Doc: "Sort in place."},
	{Name: "reverse", Receiver: ast.RecvMut, Doc: "Reverse in place."},
	{Name: "next", Receiver: ast.RecvMut, Doc: "Advance an iterator."},
	{Name: "len", Receiver: ast.RecvShared, Doc: "Number of elements."},
	{Name: "is_empty", Receiver: ast.RecvShared, Doc: "Whether there are no elements."},
	{Name: "get", Receiver: ast.RecvShared, Doc: "Look up an element."},
	{Name: "contains", Receiver: ast.RecvShared, Doc: "Membership test."},
	{Name: "iter", Receiver: ast.RecvShared, Doc: "Borrowing iterator."},
	{Name: "clone", Receiver: ast.RecvShared, Doc: "Copy the value."},
	{Name: "to_string", Receiver: ast.RecvShared, Doc: "Render as a string."},
	{Name: "into_iter", Receiver: ast.RecvOwned, Doc: "Consuming iterator."},
	{Name: "unwrap", Receiver: ast.RecvOwned, Doc: "Extract the inner value."},
}

// Table maps method names to signatures.
type Table struct {
	sigs map[string]Sig
}

// New returns an empty table.
func New() *Table {
	return &Table{sigs: make(map[string]Sig)}
}

// Defaults returns a table holding the built-in signatures.
func Defaults() *Table {
	t := New()
	for _, s := range builtins {
		s.Source = Builtin
		t.Register(s)
	}
	return t
}

// Register adds or replaces a signature.
func (t *Table) Register(s Sig) {
	if t.sigs == nil {
		t.sigs = make(map[string]Sig)
	}
	t.sigs[s.Name] = s
}

// Lookup returns the signature registered for name.
func (t *Table) Lookup(name string) (Sig, bool) {
	s, ok := t.sigs[name]
	return s, ok
}

// SetDoc attaches a doc string to a registered method. It reports whether
// the method exists.
func (t *Table) SetDoc(name, doc string) bool {
	s, ok := t.sigs[name]
	if !ok {
		return false
	}
	s.Doc = doc
	t.sigs[name] = s
	return true
}

// Names returns sorted names of all registered methods.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.sigs))
	for name := range t.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of t.
func (t *Table) Clone() *Table {
	c := New()
	for name, s := range t.sigs {
		c.sigs[name] = s
	}
	return c
}

// MutableReceiver reports whether call borrows its receiver mutably.
// Unknown methods are assumed to take &self.
func (t *Table) MutableReceiver(call *ast.MethodCall) bool {
	s, ok := t.sigs[call.Method]
	return ok && s.Receiver == ast.RecvMut
}

// AddExterns registers every extern fn declared anywhere in prog that takes
// a receiver, and returns how many were added.
func (t *Table) AddExterns(prog *ast.Program) int {
	n := 0
	ast.Walk(prog, func(node ast.Node) bool {
		x, ok := node.(*ast.ExternFn)
		if !ok || x.Receiver == ast.RecvNone {
			return false
		}
		t.Register(Sig{Name: x.Name, Receiver: x.Receiver, Source: Extern})
		n++
		return false
	})
	return n
}
