// Package parser turns fixture sources into ast trees.
//
// The grammar is a small Rust-flavoured language: let bindings, fn items,
// extern method declarations, if/while, closures (proc, closure, |..| and
// move |..|) and the usual expression forms. The parser is a hand written
// recursive descent parser with one token of lookahead and stops at the
// first syntax error.
package parser

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/scanner"
	lex "modernc.org/scanner"
	"modernc.org/token"
)

// Parser parses one source file per call to Parse.
type Parser struct {
	sc   *scanner.Scanner
	file *token.File
	tok  scanner.Token // current token
	next scanner.Token // lookahead
	prev token.Pos     // end of the last consumed token
}

// bailout unwinds the parser after the first error.
type bailout struct{}

// Parse parses src and returns the program. name is used in positions.
// On failure the error is a modernc.org/scanner ErrList holding scan and
// syntax errors in source order.
func (p *Parser) Parse(name string, src []byte) (prog *ast.Program, err error) {
	file := scanner.NewFile(name, src)
	p.file = file
	p.sc = scanner.New(file, src)
	p.prev = token.NoPos

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			prog = nil
			err = p.errList()
		}
	}()

	p.tok = p.sc.Scan()
	p.next = p.sc.Scan()

	prog = &ast.Program{SourceFile: name, File: file, Source: src}
	for p.tok.Kind != scanner.EOF {
		if s := p.statement(); s != nil {
			prog.Statements = append(prog.Statements, s)
		}
	}
	if err := p.errList(); err != nil {
		return nil, err
	}
	return prog, nil
}

// Parse is a convenience wrapper around a fresh Parser.
func Parse(name string, src []byte) (*ast.Program, error) {
	return (&Parser{}).Parse(name, src)
}

// errList returns the scanner's error list sorted by offset. The lookahead
// token may have been scanned, and reported, past the syntax error.
func (p *Parser) errList() error {
	var list lex.ErrList
	if !errors.As(p.sc.Err(), &list) {
		return nil
	}
	list = append(lex.ErrList(nil), list...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Pos.Offset < list[j].Pos.Offset })
	return list.Err()
}

func (p *Parser) errorf(pos token.Pos, format string, args ...any) {
	p.sc.ErrorAt(pos, format, args...)
	panic(bailout{})
}

func (p *Parser) advance() scanner.Token {
	t := p.tok
	if t.Kind == scanner.Illegal {
		// The scanner already recorded the error.
		panic(bailout{})
	}
	p.prev = t.End
	p.tok = p.next
	p.next = p.sc.Scan()
	return t
}

func (p *Parser) at(k scanner.Kind) bool { return p.tok.Kind == k }

func (p *Parser) accept(k scanner.Kind) bool {
	if p.tok.Kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k scanner.Kind) scanner.Token {
	if p.tok.Kind != k {
		p.errorf(p.tok.Pos, "expected %s, found %s", k, describe(p.tok))
	}
	return p.advance()
}

func describe(t scanner.Token) string {
	switch t.Kind {
	case scanner.Ident, scanner.Int:
		return fmt.Sprintf("%s `%s`", t.Kind, t.Lit)
	case scanner.EOF:
		return "end of file"
	}
	return fmt.Sprintf("`%s`", t.Kind)
}

func (p *Parser) base(from token.Pos) ast.Base { return ast.Base{From: from, To: p.prev} }

func span(t scanner.Token) diag.Span { return diag.Span{Start: t.Pos, End: t.End} }

// endStmt consumes the terminating semicolon. It may be omitted before a
// closing brace or at end of file.
func (p *Parser) endStmt() {
	if p.accept(scanner.Semi) || p.at(scanner.RBrace) || p.at(scanner.EOF) {
		return
	}
	p.errorf(p.tok.Pos, "expected `;`, found %s", describe(p.tok))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() ast.Statement {
	switch p.tok.Kind {
	case scanner.Semi:
		p.advance()
		return nil
	case scanner.Let:
		return p.letStmt()
	case scanner.Fn:
		return p.funcDef()
	case scanner.Extern:
		return p.externFn()
	case scanner.If:
		return p.ifStmt()
	case scanner.While:
		return p.whileStmt()
	case scanner.Return:
		return p.returnStmt()
	case scanner.LBrace:
		from := p.tok.Pos
		body := p.block()
		return &ast.BlockStmt{Base: p.base(from), Body: body}
	}
	return p.simpleStmt()
}

func (p *Parser) letStmt() *ast.LetStmt {
	from := p.expect(scanner.Let).Pos
	s := &ast.LetStmt{Mutable: p.accept(scanner.Mut)}
	name := p.expect(scanner.Ident)
	s.Name, s.NameSpan = name.Lit, span(name)
	if p.accept(scanner.Colon) {
		p.skipType(scanner.Assign, scanner.Semi)
	}
	if p.accept(scanner.Assign) {
		s.Value = p.expr()
	}
	p.endStmt()
	s.Base = p.base(from)
	return s
}

func (p *Parser) funcDef() *ast.FuncDef {
	from := p.expect(scanner.Fn).Pos
	f := &ast.FuncDef{Name: p.expect(scanner.Ident).Lit}
	p.expect(scanner.LParen)
	f.Params = p.params(scanner.RParen)
	p.expect(scanner.RParen)
	p.returnType()
	f.Body = p.block()
	f.Base = p.base(from)
	return f
}

// externFn parses extern fn name(&mut self, a, b);.
func (p *Parser) externFn() *ast.ExternFn {
	from := p.expect(scanner.Extern).Pos
	p.expect(scanner.Fn)
	x := &ast.ExternFn{Name: p.expect(scanner.Ident).Lit}
	p.expect(scanner.LParen)
	switch {
	case p.at(scanner.Amp) && p.next.Kind == scanner.Self:
		p.advance()
		p.advance()
		x.Receiver = ast.RecvShared
	case p.at(scanner.Amp) && p.next.Kind == scanner.Mut:
		p.advance()
		p.advance()
		p.expect(scanner.Self)
		x.Receiver = ast.RecvMut
	case p.at(scanner.Self):
		p.advance()
		x.Receiver = ast.RecvOwned
	}
	if x.Receiver != ast.RecvNone && !p.at(scanner.RParen) {
		p.expect(scanner.Comma)
	}
	x.Params = p.params(scanner.RParen)
	p.expect(scanner.RParen)
	p.returnType()
	p.endStmt()
	x.Base = p.base(from)
	return x
}

func (p *Parser) ifStmt() *ast.IfStmt {
	from := p.expect(scanner.If).Pos
	s := &ast.IfStmt{Condition: p.expr()}
	s.Body = p.block()
	if p.accept(scanner.Else) {
		if p.at(scanner.If) {
			s.ElseBody = []ast.Statement{p.ifStmt()}
		} else {
			s.ElseBody = p.block()
		}
	}
	s.Base = p.base(from)
	return s
}

func (p *Parser) whileStmt() *ast.WhileStmt {
	from := p.expect(scanner.While).Pos
	s := &ast.WhileStmt{Condition: p.expr()}
	s.Body = p.block()
	s.Base = p.base(from)
	return s
}

func (p *Parser) returnStmt() *ast.ReturnStmt {
	from := p.expect(scanner.Return).Pos
	s := &ast.ReturnStmt{}
	if !p.at(scanner.Semi) && !p.at(scanner.RBrace) && !p.at(scanner.EOF) {
		s.Value = p.expr()
	}
	p.endStmt()
	s.Base = p.base(from)
	return s
}

// simpleStmt parses an expression statement or an assignment.
func (p *Parser) simpleStmt() ast.Statement {
	from := p.tok.Pos
	x := p.expr()
	if p.at(scanner.Assign) || p.at(scanner.OpAssign) {
		op := p.advance().Lit
		if !isPlace(x) {
			p.errorf(x.Pos(), "invalid left-hand side of assignment")
		}
		value := p.expr()
		p.endStmt()
		return &ast.AssignStmt{Base: p.base(from), Target: x, Op: op, Value: value}
	}
	p.endStmt()
	return &ast.ExprStmt{Base: p.base(from), Expression: x}
}

func isPlace(x ast.Expr) bool {
	switch e := x.(type) {
	case *ast.Ident, *ast.FieldExpr, *ast.IndexExpr:
		return true
	case *ast.UnaryExpr:
		return e.Op == "*"
	}
	return false
}

func (p *Parser) block() []ast.Statement {
	p.expect(scanner.LBrace)
	var body []ast.Statement
	for !p.at(scanner.RBrace) {
		if p.at(scanner.EOF) {
			p.errorf(p.tok.Pos, "unexpected end of file, expected `}`")
		}
		if s := p.statement(); s != nil {
			body = append(body, s)
		}
	}
	p.advance()
	return body
}

// params parses [mut] name [: type] lists up to (not including) end.
func (p *Parser) params(end scanner.Kind) []ast.Param {
	var out []ast.Param
	for !p.at(end) {
		from := p.tok.Pos
		mutable := p.accept(scanner.Mut)
		name := p.expect(scanner.Ident)
		if p.accept(scanner.Colon) {
			p.skipType(scanner.Comma, end)
		}
		out = append(out, ast.Param{
			Name:    name.Lit,
			Mutable: mutable,
			Span:    diag.Span{Start: from, End: name.End},
		})
		if !p.accept(scanner.Comma) {
			break
		}
	}
	return out
}

// returnType skips an optional -> Type.
func (p *Parser) returnType() {
	if p.at(scanner.Minus) && p.next.Kind == scanner.Gt {
		p.advance()
		p.advance()
		p.skipType(scanner.LBrace, scanner.Semi)
	}
}

// skipType consumes a type annotation up to the first of stop at bracket
// depth zero. Types carry no information the checker uses.
func (p *Parser) skipType(stop ...scanner.Kind) {
	depth := 0
	for {
		if p.at(scanner.EOF) {
			p.errorf(p.tok.Pos, "unexpected end of file in type")
		}
		if depth == 0 {
			for _, k := range stop {
				if p.at(k) {
					return
				}
			}
		}
		switch p.tok.Kind {
		case scanner.Lt, scanner.LParen, scanner.LBrack:
			depth++
		case scanner.Gt, scanner.RParen, scanner.RBrack:
			if depth == 0 {
				p.errorf(p.tok.Pos, "unbalanced %s in type", describe(p.tok))
			}
			depth--
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var binaryPrec = map[scanner.Kind]int{
	scanner.OrOr:    1,
	scanner.AndAnd:  2,
	scanner.Eq:      3,
	scanner.Ne:      3,
	scanner.Lt:      3,
	scanner.Le:      3,
	scanner.Gt:      3,
	scanner.Ge:      3,
	scanner.Plus:    4,
	scanner.Minus:   4,
	scanner.Star:    5,
	scanner.Slash:   5,
	scanner.Percent: 5,
}

func (p *Parser) expr() ast.Expr { return p.binary(1) }

func (p *Parser) binary(minPrec int) ast.Expr {
	left := p.unary()
	for {
		prec, ok := binaryPrec[p.tok.Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := p.advance().Lit
		right := p.binary(prec + 1)
		left = &ast.BinaryExpr{Base: ast.Base{From: left.Pos(), To: p.prev}, Left: left, Op: op, Right: right}
	}
}

func (p *Parser) unary() ast.Expr {
	from := p.tok.Pos
	switch p.tok.Kind {
	case scanner.Minus, scanner.Not, scanner.Star:
		op := p.advance().Lit
		operand := p.unary()
		return &ast.UnaryExpr{Base: p.base(from), Op: op, Operand: operand}
	case scanner.Amp:
		p.advance()
		op := "&"
		if p.accept(scanner.Mut) {
			op = "&mut"
		}
		operand := p.unary()
		return &ast.UnaryExpr{Base: p.base(from), Op: op, Operand: operand}
	case scanner.AndAnd:
		// && in prefix position is two borrows.
		p.advance()
		inner := &ast.UnaryExpr{Op: "&"}
		if p.accept(scanner.Mut) {
			inner.Op = "&mut"
		}
		inner.Operand = p.unary()
		inner.Base = ast.Base{From: from + 1, To: p.prev}
		return &ast.UnaryExpr{Base: p.base(from), Op: "&", Operand: inner}
	}
	return p.postfix(p.primary())
}

func (p *Parser) postfix(x ast.Expr) ast.Expr {
	from := x.Pos()
	for {
		switch p.tok.Kind {
		case scanner.LParen:
			p.advance()
			args := p.args()
			x = &ast.CallExpr{Base: p.base(from), Func: x, Args: args}
		case scanner.LBrack:
			p.advance()
			index := p.expr()
			p.expect(scanner.RBrack)
			x = &ast.IndexExpr{Base: p.base(from), Object: x, Index: index}
		case scanner.Dot:
			p.advance()
			var name scanner.Token
			if p.at(scanner.Int) {
				name = p.advance() // tuple field
			} else {
				name = p.expect(scanner.Ident)
			}
			if p.accept(scanner.LParen) {
				args := p.args()
				x = &ast.MethodCall{
					Base:       p.base(from),
					Receiver:   x,
					Method:     name.Lit,
					MethodSpan: span(name),
					Args:       args,
				}
				continue
			}
			x = &ast.FieldExpr{Base: p.base(from), Object: x, Field: name.Lit}
		default:
			return x
		}
	}
}

// args parses a call argument list after the opening parenthesis.
func (p *Parser) args() []ast.Expr {
	var out []ast.Expr
	for !p.at(scanner.RParen) {
		out = append(out, p.expr())
		if !p.accept(scanner.Comma) {
			break
		}
	}
	p.expect(scanner.RParen)
	return out
}

func (p *Parser) primary() ast.Expr {
	t := p.tok
	switch t.Kind {
	case scanner.Int:
		p.advance()
		return &ast.IntLit{Base: p.base(t.Pos), Value: t.Lit}
	case scanner.String:
		p.advance()
		return &ast.StringLit{Base: p.base(t.Pos), Value: t.Lit}
	case scanner.True, scanner.False:
		p.advance()
		return &ast.BoolLit{Base: p.base(t.Pos), Value: t.Kind == scanner.True}
	case scanner.Self:
		p.advance()
		return &ast.Ident{Base: p.base(t.Pos), Name: "self"}
	case scanner.Ident:
		p.advance()
		if !p.at(scanner.PathSep) {
			return &ast.Ident{Base: p.base(t.Pos), Name: t.Lit}
		}
		segs := []string{t.Lit}
		for p.accept(scanner.PathSep) {
			segs = append(segs, p.expect(scanner.Ident).Lit)
		}
		return &ast.Path{Base: p.base(t.Pos), Segments: segs}
	case scanner.LParen:
		p.advance()
		x := p.expr()
		p.expect(scanner.RParen)
		return x
	case scanner.Proc:
		p.advance()
		c := &ast.Closure{Construct: ast.ConstructProc}
		p.expect(scanner.LParen)
		c.Params = p.params(scanner.RParen)
		p.expect(scanner.RParen)
		c.Body = p.block()
		c.Base = p.base(t.Pos)
		return c
	case scanner.ClosureKw:
		p.advance()
		c := &ast.Closure{Construct: ast.ConstructClosure}
		if p.accept(scanner.LParen) {
			c.Params = p.params(scanner.RParen)
			p.expect(scanner.RParen)
		}
		c.Body = p.block()
		c.Base = p.base(t.Pos)
		return c
	case scanner.Move:
		p.advance()
		if !p.at(scanner.Pipe) && !p.at(scanner.OrOr) {
			p.errorf(p.tok.Pos, "expected closure after `move`, found %s", describe(p.tok))
		}
		c := p.pipeClosure(t.Pos)
		c.Move = true
		return c
	case scanner.Pipe, scanner.OrOr:
		return p.pipeClosure(t.Pos)
	}
	p.errorf(t.Pos, "expected expression, found %s", describe(t))
	return nil
}

// pipeClosure parses |params| body where body is a block or an expression.
func (p *Parser) pipeClosure(from token.Pos) *ast.Closure {
	c := &ast.Closure{Construct: ast.ConstructClosure}
	if !p.accept(scanner.OrOr) {
		p.expect(scanner.Pipe)
		c.Params = p.params(scanner.Pipe)
		p.expect(scanner.Pipe)
	}
	if p.at(scanner.LBrace) {
		c.Body = p.block()
	} else {
		bodyFrom := p.tok.Pos
		x := p.expr()
		c.Body = []ast.Statement{&ast.ExprStmt{Base: p.base(bodyFrom), Expression: x}}
	}
	c.Base = p.base(from)
	return c
}

// IsSyntaxError reports whether err came from Parse.
func IsSyntaxError(err error) bool {
	var list lex.ErrList
	return errors.As(err, &list)
}
