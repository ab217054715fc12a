// Package capture computes the capture set of a closure: every variable the
// closure body references that is declared outside the body, with the union
// of the ways the body uses it.
package capture

import (
	"sort"
	"strings"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
)

// Mode is a set of access modes.
type Mode uint8

const (
	Read Mode = 1 << iota
	Assign
	MutableBorrow
)

// Has reports whether every mode in x is in m.
func (m Mode) Has(x Mode) bool { return m&x == x }

// Mutates reports whether m holds Assign or MutableBorrow.
func (m Mode) Mutates() bool { return m&(Assign|MutableBorrow) != 0 }

// MostRestrictive returns the strongest single mode in m: Assign, then
// MutableBorrow, then Read. It returns 0 for an empty set.
func (m Mode) MostRestrictive() Mode {
	switch {
	case m.Has(Assign):
		return Assign
	case m.Has(MutableBorrow):
		return MutableBorrow
	case m.Has(Read):
		return Read
	}
	return 0
}

func (m Mode) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m.Has(Read) {
		parts = append(parts, "read")
	}
	if m.Has(Assign) {
		parts = append(parts, "assign")
	}
	if m.Has(MutableBorrow) {
		parts = append(parts, "mut-borrow")
	}
	return strings.Join(parts, "|")
}

// By is how a variable is captured.
type By uint8

const (
	ByRef    By = iota // shared reference
	ByMutRef           // unique reference
	ByValue            // copied or moved into the closure
)

func (b By) String() string {
	switch b {
	case ByMutRef:
		return "by-mut-ref"
	case ByValue:
		return "by-value"
	}
	return "by-ref"
}

// Use is one occurrence of a captured variable in the body.
type Use struct {
	Mode Mode // a single mode
	Span diag.Span
	// Forwarded marks a use inside a nested closure. The enclosing closure
	// has to capture the variable for the nested one but only reads it.
	Forwarded bool
}

// Record is the capture of one outer binding.
type Record struct {
	Binding env.BindingID
	Name    string
	Modes   Mode
	Uses    []Use
	By      By
}

// Set is the capture set of one closure.
type Set struct {
	Closure *ast.Closure
	// At is the environment point the closure was defined at.
	At      env.Point
	records map[env.BindingID]*Record
}

// NewSet returns an empty capture set for c defined at at. Pipelines that
// discover captures themselves fill it with Add.
func NewSet(c *ast.Closure, at env.Point) *Set {
	return &Set{Closure: c, At: at, records: make(map[env.BindingID]*Record)}
}

// Add unions mode into the record of binding b, creating it if absent.
func (s *Set) Add(b env.Binding, mode Mode, span diag.Span) {
	s.add(b.ID, b.Name, Use{Mode: mode, Span: span})
}

func (s *Set) add(id env.BindingID, name string, u Use) {
	r, ok := s.records[id]
	if !ok {
		r = &Record{Binding: id, Name: name}
		s.records[id] = r
	}
	r.Modes |= u.Mode
	r.Uses = append(r.Uses, u)
}

// Get returns the record of binding id.
func (s *Set) Get(id env.BindingID) (*Record, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of captured bindings.
func (s *Set) Len() int { return len(s.records) }

// Records returns the records ordered by binding ID.
func (s *Set) Records() []*Record {
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Binding < out[j].Binding })
	return out
}

// Lookup is the subset of a binding environment the analyzer reads.
type Lookup interface {
	Resolve(name string, at env.Point) (env.Binding, bool)
}

// Signatures classifies method calls. The analyzer treats the answer as
// an opaque fact about the call site.
type Signatures interface {
	MutableReceiver(call *ast.MethodCall) bool
}

// Analyze computes the capture set of c, resolving outer names against e
// as they were visible at point at. Names that resolve to nothing are
// skipped; reporting them is the job of name resolution.
//
// Analyze does not modify c or e, so it is safe to run concurrently on a
// frozen environment.
func Analyze(c *ast.Closure, e Lookup, at env.Point, sigs Signatures) *Set {
	a := &analyzer{env: e, at: at, sigs: sigs, set: NewSet(c, at)}
	a.push()
	for _, p := range c.Params {
		a.declare(p.Name)
	}
	a.stmts(c.Body)
	a.pop()

	for _, r := range a.set.records {
		switch {
		case c.ByValue():
			r.By = ByValue
		case r.Modes.Mutates():
			r.By = ByMutRef
		default:
			r.By = ByRef
		}
	}
	return a.set
}

type analyzer struct {
	env  Lookup
	at   env.Point
	sigs Signatures
	set  *Set

	// shadow holds names declared inside the analyzed closure, one map
	// per block, innermost last.
	shadow []map[string]bool
	// nested counts enclosing closures inside the analyzed one.
	nested int
}

func (a *analyzer) push() { a.shadow = append(a.shadow, make(map[string]bool)) }
func (a *analyzer) pop()  { a.shadow = a.shadow[:len(a.shadow)-1] }

func (a *analyzer) declare(name string) { a.shadow[len(a.shadow)-1][name] = true }

func (a *analyzer) local(name string) bool {
	for i := len(a.shadow) - 1; i >= 0; i-- {
		if a.shadow[i][name] {
			return true
		}
	}
	return false
}

// ref records one use of name.
func (a *analyzer) ref(name string, mode Mode, span diag.Span) {
	if a.local(name) {
		return
	}
	b, ok := a.env.Resolve(name, a.at)
	if !ok {
		return
	}
	u := Use{Mode: mode, Span: span}
	if a.nested > 0 {
		u.Mode = Read
		u.Forwarded = true
	}
	a.set.add(b.ID, b.Name, u)
}

func (a *analyzer) stmts(ss []ast.Statement) {
	for _, s := range ss {
		a.stmt(s)
	}
}

func (a *analyzer) block(ss []ast.Statement) {
	a.push()
	a.stmts(ss)
	a.pop()
}

func (a *analyzer) stmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.LetStmt:
		// The initializer is evaluated before the new name is in scope.
		a.expr(st.Value)
		a.declare(st.Name)
	case *ast.AssignStmt:
		a.expr(st.Value)
		// Compound assignments classify as Assign only.
		a.place(st.Target, Assign, ast.SpanOf(st))
	case *ast.ExprStmt:
		a.expr(st.Expression)
	case *ast.BlockStmt:
		a.block(st.Body)
	case *ast.IfStmt:
		a.expr(st.Condition)
		a.block(st.Body)
		a.block(st.ElseBody)
	case *ast.WhileStmt:
		a.expr(st.Condition)
		a.block(st.Body)
	case *ast.ReturnStmt:
		a.expr(st.Value)
	case *ast.FuncDef, *ast.ExternFn:
		// Items cannot capture.
	}
}

func (a *analyzer) exprs(es []ast.Expr) {
	for _, e := range es {
		a.expr(e)
	}
}

// expr walks an expression evaluated for its value.
func (a *analyzer) expr(e ast.Expr) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Ident:
		a.ref(ex.Name, Read, ast.SpanOf(ex))
	case *ast.UnaryExpr:
		if ex.Op == "&mut" {
			a.place(ex.Operand, MutableBorrow, ast.SpanOf(ex))
			return
		}
		a.expr(ex.Operand)
	case *ast.BinaryExpr:
		a.expr(ex.Left)
		a.expr(ex.Right)
	case *ast.CallExpr:
		// A callee that is not a binding is a free function; ref skips it.
		a.expr(ex.Func)
		a.exprs(ex.Args)
	case *ast.MethodCall:
		if a.sigs != nil && a.sigs.MutableReceiver(ex) {
			a.place(ex.Receiver, MutableBorrow, ast.SpanOf(ex))
		} else {
			a.expr(ex.Receiver)
		}
		a.exprs(ex.Args)
	case *ast.FieldExpr:
		a.expr(ex.Object)
	case *ast.IndexExpr:
		a.expr(ex.Object)
		a.expr(ex.Index)
	case *ast.Closure:
		a.nested++
		a.push()
		for _, p := range ex.Params {
			a.declare(p.Name)
		}
		a.stmts(ex.Body)
		a.pop()
		a.nested--
	}
}

// place walks an expression used as a place (assigned or borrowed) and
// attributes mode to the variable the place is rooted at.
func (a *analyzer) place(e ast.Expr, mode Mode, span diag.Span) {
	switch ex := e.(type) {
	case *ast.Ident:
		a.ref(ex.Name, mode, span)
	case *ast.FieldExpr:
		a.place(ex.Object, mode, span)
	case *ast.IndexExpr:
		a.place(ex.Object, mode, span)
		a.expr(ex.Index)
	case *ast.UnaryExpr:
		if ex.Op == "*" {
			// Writing through a reference only reads the reference.
			a.expr(ex.Operand)
			return
		}
		a.expr(ex)
	default:
		a.expr(e)
	}
}
