package ast

import (
	"github.com/rubiojr/capcheck/diag"
	"modernc.org/token"
)

// Factory builds syntax trees without source text. Every node it creates
// gets a fresh, distinct position so spans stay comparable, which is what
// checks rely on to tell occurrences apart. Trees from the parser carry
// real positions instead.
type Factory struct {
	next token.Pos
}

// NewFactory returns a new Factory.
func NewFactory() *Factory { return &Factory{next: 1} }

func (f *Factory) base() Base {
	p := f.next
	f.next += 2
	return Base{From: p, To: p + 1}
}

func (f *Factory) span() diag.Span {
	b := f.base()
	return diag.Span{Start: b.From, End: b.To}
}

// Program wraps statements into a Program.
func (f *Factory) Program(stmts ...Statement) *Program {
	return &Program{Statements: stmts, SourceFile: "<synthetic>"}
}

// ProgramFrom creates a new Program copying metadata from src with new statements.
func (f *Factory) ProgramFrom(src *Program, stmts []Statement) *Program {
	return &Program{
		Statements: stmts,
		SourceFile: src.SourceFile,
		File:       src.File,
		Source:     src.Source,
	}
}

// --- Statements ---

// Let creates let name = value;.
func (f *Factory) Let(name string, value Expr) *LetStmt {
	return &LetStmt{Base: f.base(), Name: name, NameSpan: f.span(), Value: value}
}

// LetMut creates let mut name = value;.
func (f *Factory) LetMut(name string, value Expr) *LetStmt {
	l := f.Let(name, value)
	l.Mutable = true
	return l
}

// Assign creates target = value;.
func (f *Factory) Assign(target, value Expr) *AssignStmt {
	return f.AssignOp(target, "=", value)
}

// AssignOp creates target op value; where op is "=" or a compound operator.
func (f *Factory) AssignOp(target Expr, op string, value Expr) *AssignStmt {
	return &AssignStmt{Base: f.base(), Target: target, Op: op, Value: value}
}

// Expr creates an expression statement.
func (f *Factory) Expr(e Expr) *ExprStmt {
	return &ExprStmt{Base: f.base(), Expression: e}
}

// Block creates { body }.
func (f *Factory) Block(body ...Statement) *BlockStmt {
	return &BlockStmt{Base: f.base(), Body: body}
}

// If creates if cond { body } else { elseBody }.
func (f *Factory) If(cond Expr, body, elseBody []Statement) *IfStmt {
	return &IfStmt{Base: f.base(), Condition: cond, Body: body, ElseBody: elseBody}
}

// While creates while cond { body }.
func (f *Factory) While(cond Expr, body ...Statement) *WhileStmt {
	return &WhileStmt{Base: f.base(), Condition: cond, Body: body}
}

// Return creates return value;.
func (f *Factory) Return(value Expr) *ReturnStmt {
	return &ReturnStmt{Base: f.base(), Value: value}
}

// Func creates fn name(params) { body }.
func (f *Factory) Func(name string, params []Param, body ...Statement) *FuncDef {
	return &FuncDef{Base: f.base(), Name: name, Params: params, Body: body}
}

// Extern creates extern fn name(recv);.
func (f *Factory) Extern(name string, recv Receiver) *ExternFn {
	return &ExternFn{Base: f.base(), Name: name, Receiver: recv}
}

// --- Expressions ---

// Ident creates a name reference.
func (f *Factory) Ident(name string) *Ident {
	return &Ident{Base: f.base(), Name: name}
}

// Path creates a qualified path a::b::c.
func (f *Factory) Path(segments ...string) *Path {
	return &Path{Base: f.base(), Segments: segments}
}

// Int creates an integer literal.
func (f *Factory) Int(v string) *IntLit {
	return &IntLit{Base: f.base(), Value: v}
}

// String creates a string literal.
func (f *Factory) String(v string) *StringLit {
	return &StringLit{Base: f.base(), Value: v}
}

// Bool creates a boolean literal.
func (f *Factory) Bool(v bool) *BoolLit {
	return &BoolLit{Base: f.base(), Value: v}
}

// Unary creates op operand.
func (f *Factory) Unary(op string, operand Expr) *UnaryExpr {
	return &UnaryExpr{Base: f.base(), Op: op, Operand: operand}
}

// Binary creates left op right.
func (f *Factory) Binary(left Expr, op string, right Expr) *BinaryExpr {
	return &BinaryExpr{Base: f.base(), Left: left, Op: op, Right: right}
}

// Call creates fn(args...).
func (f *Factory) Call(fn Expr, args ...Expr) *CallExpr {
	return &CallExpr{Base: f.base(), Func: fn, Args: args}
}

// Method creates recv.method(args...).
func (f *Factory) Method(recv Expr, method string, args ...Expr) *MethodCall {
	return &MethodCall{Base: f.base(), Receiver: recv, Method: method, MethodSpan: f.span(), Args: args}
}

// Field creates obj.name.
func (f *Factory) Field(obj Expr, name string) *FieldExpr {
	return &FieldExpr{Base: f.base(), Object: obj, Field: name}
}

// Index creates obj[idx].
func (f *Factory) Index(obj, idx Expr) *IndexExpr {
	return &IndexExpr{Base: f.base(), Object: obj, Index: idx}
}

// Param creates an immutable parameter.
func (f *Factory) Param(name string) Param {
	return Param{Name: name, Span: f.span()}
}

// Closure creates |params| { body }.
func (f *Factory) Closure(params []Param, body ...Statement) *Closure {
	return &Closure{Base: f.base(), Construct: ConstructClosure, Params: params, Body: body}
}

// MoveClosure creates move |params| { body }.
func (f *Factory) MoveClosure(params []Param, body ...Statement) *Closure {
	c := f.Closure(params, body...)
	c.Move = true
	return c
}

// Proc creates proc(params) { body }.
func (f *Factory) Proc(params []Param, body ...Statement) *Closure {
	return &Closure{Base: f.base(), Construct: ConstructProc, Params: params, Body: body}
}
