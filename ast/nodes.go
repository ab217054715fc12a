package ast

import (
	"github.com/rubiojr/capcheck/diag"
	"modernc.org/token"
)

// Node is the interface for all AST nodes.
type Node interface {
	node()
	Pos() token.Pos
	End() token.Pos
}

// Statement is the interface for statement nodes.
type Statement interface {
	Node
	stmt()
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr()
}

// Base records the source range of a node.
type Base struct {
	From token.Pos // first byte
	To   token.Pos // one past the last byte
}

func (b Base) Pos() token.Pos { return b.From }
func (b Base) End() token.Pos { return b.To }

// SpanOf returns the source span covered by n.
func SpanOf(n Node) diag.Span {
	if n == nil {
		return diag.Span{}
	}
	return diag.Span{Start: n.Pos(), End: n.End()}
}

// Program is the root node.
type Program struct {
	Statements []Statement
	SourceFile string      // display path of the source file
	File       *token.File // position table; nil for synthetic trees
	Source     []byte      // raw source, for excerpts
}

func (p *Program) node() {}

func (p *Program) Pos() token.Pos {
	if len(p.Statements) == 0 {
		return token.NoPos
	}
	return p.Statements[0].Pos()
}

func (p *Program) End() token.Pos {
	if len(p.Statements) == 0 {
		return token.NoPos
	}
	return p.Statements[len(p.Statements)-1].End()
}

// Param is a closure or function parameter.
type Param struct {
	Name    string
	Mutable bool
	Span    diag.Span
}

// LetStmt represents let [mut] name [= value];.
type LetStmt struct {
	Base
	Name     string
	NameSpan diag.Span
	Mutable  bool
	Value    Expr // nil for a deferred initialisation
}

func (l *LetStmt) node() {}
func (l *LetStmt) stmt() {}

// AssignStmt represents target = value and target op= value.
// Target is an Ident, Field, Index or a deref Unary.
type AssignStmt struct {
	Base
	Target Expr
	Op     string // "=", "+=", "-=", ...
	Value  Expr
}

func (a *AssignStmt) node() {}
func (a *AssignStmt) stmt() {}

// Compound reports whether the assignment is op= rather than plain =.
func (a *AssignStmt) Compound() bool { return a.Op != "=" }

// ExprStmt is a statement that is just an expression.
type ExprStmt struct {
	Base
	Expression Expr
}

func (e *ExprStmt) node() {}
func (e *ExprStmt) stmt() {}

// BlockStmt is { body } used as a statement; it opens a scope.
type BlockStmt struct {
	Base
	Body []Statement
}

func (b *BlockStmt) node() {}
func (b *BlockStmt) stmt() {}

// IfStmt represents if cond { } [else { }]. An else-if chain is an IfStmt
// as the single statement of ElseBody.
type IfStmt struct {
	Base
	Condition Expr
	Body      []Statement
	ElseBody  []Statement
}

func (i *IfStmt) node() {}
func (i *IfStmt) stmt() {}

// WhileStmt represents while cond { body }.
type WhileStmt struct {
	Base
	Condition Expr
	Body      []Statement
}

func (w *WhileStmt) node() {}
func (w *WhileStmt) stmt() {}

// ReturnStmt represents return [expr];.
type ReturnStmt struct {
	Base
	Value Expr // nil if bare return
}

func (r *ReturnStmt) node() {}
func (r *ReturnStmt) stmt() {}

// FuncDef represents fn name(params) { body }. Function items do not
// capture: their body only sees their own parameters.
type FuncDef struct {
	Base
	Name   string
	Params []Param
	Body   []Statement
}

func (f *FuncDef) node() {}
func (f *FuncDef) stmt() {}

// Receiver is how a method takes self.
type Receiver uint8

const (
	RecvNone   Receiver = iota // free function, no self
	RecvShared                 // &self
	RecvMut                    // &mut self
	RecvOwned                  // self
)

func (r Receiver) String() string {
	switch r {
	case RecvShared:
		return "&self"
	case RecvMut:
		return "&mut self"
	case RecvOwned:
		return "self"
	}
	return ""
}

// ExternFn declares the signature of a method implemented elsewhere:
// extern fn name(&mut self, a, b);.
type ExternFn struct {
	Base
	Name     string
	Receiver Receiver
	Params   []Param
}

func (x *ExternFn) node() {}
func (x *ExternFn) stmt() {}

// Ident is a variable (or function) reference.
type Ident struct {
	Base
	Name string
}

func (i *Ident) node() {}
func (i *Ident) expr() {}

// Path is a qualified item path such as std::io::stdin. Paths never name
// local variables.
type Path struct {
	Base
	Segments []string
}

func (p *Path) node() {}
func (p *Path) expr() {}

// IntLit is an integer literal.
type IntLit struct {
	Base
	Value string
}

func (i *IntLit) node() {}
func (i *IntLit) expr() {}

// StringLit is a string literal (quotes stripped).
type StringLit struct {
	Base
	Value string
}

func (s *StringLit) node() {}
func (s *StringLit) expr() {}

// BoolLit is true or false.
type BoolLit struct {
	Base
	Value bool
}

func (b *BoolLit) node() {}
func (b *BoolLit) expr() {}

// UnaryExpr represents op operand. Op is one of "-", "!", "&", "&mut", "*".
type UnaryExpr struct {
	Base
	Op      string
	Operand Expr
}

func (u *UnaryExpr) node() {}
func (u *UnaryExpr) expr() {}

// BinaryExpr represents left op right.
type BinaryExpr struct {
	Base
	Left  Expr
	Op    string
	Right Expr
}

func (b *BinaryExpr) node() {}
func (b *BinaryExpr) expr() {}

// CallExpr represents func(args...).
type CallExpr struct {
	Base
	Func Expr
	Args []Expr
}

func (c *CallExpr) node() {}
func (c *CallExpr) expr() {}

// MethodCall represents receiver.method(args...).
type MethodCall struct {
	Base
	Receiver   Expr
	Method     string
	MethodSpan diag.Span
	Args       []Expr
}

func (m *MethodCall) node() {}
func (m *MethodCall) expr() {}

// FieldExpr represents object.field.
type FieldExpr struct {
	Base
	Object Expr
	Field  string
}

func (f *FieldExpr) node() {}
func (f *FieldExpr) expr() {}

// IndexExpr represents object[index].
type IndexExpr struct {
	Base
	Object Expr
	Index  Expr
}

func (i *IndexExpr) node() {}
func (i *IndexExpr) expr() {}

// Construct is the syntactic form of a closure.
type Construct uint8

const (
	ConstructClosure Construct = iota // |params| body or closure { }
	ConstructProc                     // proc(params) { }
)

func (c Construct) String() string {
	if c == ConstructProc {
		return "proc"
	}
	return "closure"
}

// Closure is an anonymous function that may capture variables of the
// scope it is defined in.
type Closure struct {
	Base
	Construct Construct
	Move      bool // move |..| closures capture by value
	Params    []Param
	Body      []Statement
}

func (c *Closure) node() {}
func (c *Closure) expr() {}

// ByValue reports whether the closure copies its captures.
func (c *Closure) ByValue() bool { return c.Move || c.Construct == ConstructProc }
