// Package scanner tokenizes capcheck fixture sources on top of
// modernc.org/scanner. It tracks string literal boundaries and escape
// sequences so that comment markers and operators inside strings are never
// mistaken for code. Tokens carry positions in a token.File shared with the
// parser and the syntax tree.
package scanner

import (
	"fmt"
	gotoken "go/token"
	"strings"
	"unicode/utf8"

	lex "modernc.org/scanner"
	"modernc.org/token"
)

// Kind is the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Illegal
	Comment
	Ident
	Int
	String

	// Keywords.
	Let
	Mut
	Fn
	Extern
	Proc
	ClosureKw
	Move
	If
	Else
	While
	Return
	True
	False
	Self

	// Punctuation and operators.
	LParen
	RParen
	LBrace
	RBrace
	LBrack
	RBrack
	Comma
	Semi
	Colon
	PathSep // ::
	Dot
	Assign   // =
	OpAssign // += -= *= /= %=
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	AndAnd
	OrOr
	Not
	Amp
	Pipe
)

var kindNames = map[Kind]string{
	EOF: "end of file", Illegal: "illegal token", Comment: "comment",
	Ident: "identifier", Int: "integer", String: "string",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBrack: "[", RBrack: "]",
	Comma: ",", Semi: ";", Colon: ":", PathSep: "::", Dot: ".",
	Assign: "=", OpAssign: "op=", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	Percent: "%", Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!", Amp: "&", Pipe: "|",
}

var keywords = map[string]Kind{
	"let":     Let,
	"mut":     Mut,
	"fn":      Fn,
	"extern":  Extern,
	"proc":    Proc,
	"closure": ClosureKw,
	"move":    Move,
	"if":      If,
	"else":    Else,
	"while":   While,
	"return":  Return,
	"true":    True,
	"false":   False,
	"self":    Self,
}

func init() {
	for word, k := range keywords {
		kindNames[k] = word
	}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical token.
type Token struct {
	Kind Kind
	Lit  string // source text; unquoted content for strings
	Pos  token.Pos
	End  token.Pos
}

// Scanner iterates over the tokens of one source file. The separator and
// token recognisers below drive a modernc.org/scanner Scanner, which keeps
// the token stream, the line table used for error positions and the error
// list.
type Scanner struct {
	file *token.File
	src  string
	lx   *lex.Scanner

	off   int    // offset of the next unread byte, in step with lx
	start int    // offset of the token being scanned
	lit   string // unquoted value of the last string literal

	// KeepComments makes Scan return Comment tokens instead of skipping them.
	KeepComments bool
}

// NewFile returns a token.File for src with its line table filled in.
func NewFile(name string, src []byte) *token.File {
	f := token.NewFile(name, len(src))
	f.SetLinesForContent(src)
	return f
}

// New creates a Scanner over src. file must have been created for src,
// usually with NewFile. src must not be modified while scanning.
func New(file *token.File, src []byte) *Scanner {
	s := &Scanner{file: file, src: string(src)}
	s.lx = lex.NewScanner(file.Name(), src, s.scanSep, s.scanSrc)
	return s
}

// Err returns the scan errors and any errors added with ErrorAt as a
// lex.ErrList, or nil.
func (s *Scanner) Err() error { return s.lx.Err() }

// ErrorAt records an error at pos in the scanner's error list.
func (s *Scanner) ErrorAt(pos token.Pos, format string, args ...any) {
	s.lx.AddErr(gotoken.Position(s.file.Position(pos)), format, args...)
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.lx.AddErr(s.lx.Position(off), format, args...)
}

func (s *Scanner) lookingAt(prefix string) bool {
	return strings.HasPrefix(s.src[s.off:], prefix)
}

// Scan returns the next token. At end of input it keeps returning EOF.
func (s *Scanner) Scan() Token {
	lt := s.lx.Scan()
	t := Token{Kind: Kind(lt.Ch), Lit: lt.Src(), Pos: s.file.Pos(s.start), End: s.file.Pos(s.off)}
	if t.Kind == String {
		t.Lit = s.lit
	}
	return t
}

// scanSep skips blanks, and comments unless they are kept, registering
// every line start with lx.
func (s *Scanner) scanSep() int {
	from := s.off
	for s.off < len(s.src) {
		switch ch := s.src[s.off]; {
		case ch == '\n':
			s.off++
			s.lx.AddLine(s.off)
		case ch == ' ' || ch == '\t' || ch == '\r':
			s.off++
		case !s.KeepComments && s.lookingAt("//"):
			s.skipLine()
		default:
			return s.off - from
		}
	}
	return s.off - from
}

// scanSrc recognises one token. A zero length ends the stream.
func (s *Scanner) scanSrc() (int, rune) {
	s.start = s.off
	k := s.token()
	return s.off - s.start, rune(k)
}

func (s *Scanner) token() Kind {
	if s.off >= len(s.src) {
		return EOF
	}
	if s.lookingAt("//") {
		s.skipLine()
		return Comment
	}

	ch := s.src[s.off]
	switch {
	case isLetter(ch):
		for s.off < len(s.src) && (isLetter(s.src[s.off]) || isDigit(s.src[s.off])) {
			s.off++
		}
		if k, ok := keywords[s.src[s.start:s.off]]; ok {
			return k
		}
		return Ident
	case isDigit(ch):
		// Suffixes such as 1i or 10u8 are part of the literal.
		for s.off < len(s.src) && (isDigit(s.src[s.off]) || isLetter(s.src[s.off])) {
			s.off++
		}
		return Int
	case ch == '"':
		return s.scanString()
	}

	if k, n := s.operator(); n > 0 {
		s.off += n
		return k
	}
	r, n := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += n
	s.errorf(s.start, "unexpected character %q", r)
	return Illegal
}

func (s *Scanner) skipLine() {
	for s.off < len(s.src) && s.src[s.off] != '\n' {
		s.off++
	}
}

// scanString scans a string literal. An unterminated literal stops before
// the newline so scanning resumes on the next line.
func (s *Scanner) scanString() Kind {
	var sb strings.Builder
	s.off++ // opening quote
	for s.off < len(s.src) {
		ch := s.src[s.off]
		switch {
		case ch == '"':
			s.off++
			s.lit = sb.String()
			return String
		case ch == '\n':
			s.errorf(s.start, "unterminated string literal")
			return Illegal
		case ch == '\\' && s.off+1 < len(s.src) && s.src[s.off+1] != '\n':
			sb.WriteByte(unescape(s.src[s.off+1]))
			s.off += 2
			continue
		}
		sb.WriteByte(ch)
		s.off++
	}
	s.errorf(s.start, "unterminated string literal")
	return Illegal
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	}
	return ch
}

// operator matches the longest operator at the current offset and returns
// its kind and length.
func (s *Scanner) operator() (Kind, int) {
	two := map[string]Kind{
		"::": PathSep, "==": Eq, "!=": Ne, "<=": Le, ">=": Ge, "&&": AndAnd, "||": OrOr,
		"+=": OpAssign, "-=": OpAssign, "*=": OpAssign, "/=": OpAssign, "%=": OpAssign,
	}
	if s.off+2 <= len(s.src) {
		if k, ok := two[s.src[s.off:s.off+2]]; ok {
			return k, 2
		}
	}
	switch s.src[s.off] {
	case '(':
		return LParen, 1
	case ')':
		return RParen, 1
	case '{':
		return LBrace, 1
	case '}':
		return RBrace, 1
	case '[':
		return LBrack, 1
	case ']':
		return RBrack, 1
	case ',':
		return Comma, 1
	case ';':
		return Semi, 1
	case ':':
		return Colon, 1
	case '.':
		return Dot, 1
	case '=':
		return Assign, 1
	case '+':
		return Plus, 1
	case '-':
		return Minus, 1
	case '*':
		return Star, 1
	case '/':
		return Slash, 1
	case '%':
		return Percent, 1
	case '<':
		return Lt, 1
	case '>':
		return Gt, 1
	case '!':
		return Not, 1
	case '&':
		return Amp, 1
	case '|':
		return Pipe, 1
	}
	return Illegal, 0
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }
