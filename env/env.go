// Package env implements the binding environment: every variable
// declaration seen during a top-down walk, grouped into lexical scopes.
//
// Scopes live in an arena and refer to their parent by index, so the scope
// tree has no pointer cycles and lookups walk parent links in O(depth).
// Bindings get a BindingID in declaration order; a Point records how many
// bindings existed at a program location, which lets a closure resolve names
// exactly as they were visible where it was defined even after the walk has
// moved on.
//
// An Env is built by a single goroutine. After Freeze it is read-only and
// may be shared by any number of concurrent readers.
package env

import (
	"errors"
	"fmt"

	"github.com/rubiojr/capcheck/diag"
)

var (
	// ErrFrozen is returned when mutating an environment after Freeze.
	ErrFrozen = errors.New("environment is frozen")
	// ErrRootScope is returned when popping the root scope.
	ErrRootScope = errors.New("cannot pop the root scope")
)

// ScopeID indexes a scope in the arena.
type ScopeID int32

const (
	// Root is the outermost scope, created by New.
	Root ScopeID = 0
	// NoScope is the parent of Root.
	NoScope ScopeID = -1
)

// BindingID uniquely identifies one declaration. IDs grow in declaration
// order, so a shadowing declaration always has a larger ID than the binding
// it shadows.
type BindingID int32

// Mutability is the declared mutability of a binding.
type Mutability uint8

const (
	Immutable Mutability = iota
	Mutable
)

func (m Mutability) String() string {
	if m == Mutable {
		return "mutable"
	}
	return "immutable"
}

// DeclKind tells how a binding was introduced.
type DeclKind uint8

const (
	DeclLet DeclKind = iota
	DeclParam
)

func (k DeclKind) String() string {
	if k == DeclParam {
		return "param"
	}
	return "let"
}

// Binding is one declared variable.
type Binding struct {
	ID    BindingID
	Name  string
	Mut   Mutability
	Kind  DeclKind
	Scope ScopeID
	Depth int
	Span  diag.Span
}

// Scope is a lexical scope record.
type Scope struct {
	ID       ScopeID
	Parent   ScopeID
	Depth    int
	Bindings []BindingID // declaration order
	Closed   bool
}

// Point is the state of the environment at one program location: the
// innermost open scope and the number of bindings declared so far.
type Point struct {
	Scope ScopeID
	Seq   int
}

func (p Point) String() string { return fmt.Sprintf("scope %d @%d", p.Scope, p.Seq) }

// Env is the arena of scopes and bindings.
type Env struct {
	scopes   []Scope
	bindings []Binding
	open     []ScopeID // open scopes, innermost last
	frozen   bool
}

// New returns an environment holding only the root scope.
func New() *Env {
	return &Env{
		scopes: []Scope{{ID: Root, Parent: NoScope}},
		open:   []ScopeID{Root},
	}
}

func (e *Env) cur() ScopeID { return e.open[len(e.open)-1] }

// Push opens a child scope of the current scope and makes it current.
func (e *Env) Push() (ScopeID, error) {
	return e.PushUnder(e.cur())
}

// PushUnder opens a child scope of parent and makes it current, hiding the
// scopes opened since parent until the matching Pop. Function items use it
// to start from the root scope instead of their lexical position.
func (e *Env) PushUnder(parent ScopeID) (ScopeID, error) {
	if e.frozen {
		return NoScope, ErrFrozen
	}
	if parent < 0 || int(parent) >= len(e.scopes) {
		return NoScope, fmt.Errorf("push under unknown scope %d", parent)
	}
	id := ScopeID(len(e.scopes))
	e.scopes = append(e.scopes, Scope{ID: id, Parent: parent, Depth: e.scopes[parent].Depth + 1})
	e.open = append(e.open, id)
	return id, nil
}

// Pop closes the current scope and returns to the scope that was current
// before the matching Push. A closed scope is never mutated again.
func (e *Env) Pop() error {
	if e.frozen {
		return ErrFrozen
	}
	if len(e.open) == 1 {
		return ErrRootScope
	}
	e.scopes[e.cur()].Closed = true
	e.open = e.open[:len(e.open)-1]
	return nil
}

// Declare adds a binding to the current scope.
func (e *Env) Declare(name string, mut Mutability, kind DeclKind, span diag.Span) (BindingID, error) {
	if e.frozen {
		return -1, ErrFrozen
	}
	s := &e.scopes[e.cur()]
	id := BindingID(len(e.bindings))
	e.bindings = append(e.bindings, Binding{
		ID:    id,
		Name:  name,
		Mut:   mut,
		Kind:  kind,
		Scope: s.ID,
		Depth: s.Depth,
		Span:  span,
	})
	s.Bindings = append(s.Bindings, id)
	return id, nil
}

// Freeze closes every open scope and makes the environment read-only.
func (e *Env) Freeze() {
	for _, id := range e.open {
		e.scopes[id].Closed = true
	}
	e.open = e.open[:1]
	e.frozen = true
}

// Here returns the Point of the current walk position.
func (e *Env) Here() Point { return Point{Scope: e.cur(), Seq: len(e.bindings)} }

// Len returns the number of declared bindings.
func (e *Env) Len() int { return len(e.bindings) }

// Binding returns the binding with the given ID.
func (e *Env) Binding(id BindingID) (Binding, bool) {
	if id < 0 || int(id) >= len(e.bindings) {
		return Binding{}, false
	}
	return e.bindings[id], true
}

// Scope returns the scope with the given ID.
func (e *Env) Scope(id ScopeID) (Scope, bool) {
	if id < 0 || int(id) >= len(e.scopes) {
		return Scope{}, false
	}
	return e.scopes[id], true
}

// Resolve finds the binding name refers to at point at: the innermost
// declaration visible from at.Scope that was declared before at.Seq.
func (e *Env) Resolve(name string, at Point) (Binding, bool) {
	for s := at.Scope; s != NoScope; s = e.scopes[s].Parent {
		if int(s) >= len(e.scopes) {
			return Binding{}, false
		}
		ids := e.scopes[s].Bindings
		for i := len(ids) - 1; i >= 0; i-- {
			b := e.bindings[ids[i]]
			if int(b.ID) >= at.Seq {
				continue
			}
			if b.Name == name {
				return b, true
			}
		}
	}
	return Binding{}, false
}

// Visible reports whether binding id was declared in at.Scope or one of its
// ancestors before at.Seq. It does not consider shadowing.
func (e *Env) Visible(id BindingID, at Point) bool {
	b, ok := e.Binding(id)
	if !ok || int(id) >= at.Seq {
		return false
	}
	return e.IsAncestor(b.Scope, at.Scope)
}

// IsAncestor reports whether anc is s or an ancestor of s.
func (e *Env) IsAncestor(anc, s ScopeID) bool {
	for ; s != NoScope; s = e.scopes[s].Parent {
		if int(s) >= len(e.scopes) {
			return false
		}
		if s == anc {
			return true
		}
	}
	return false
}
