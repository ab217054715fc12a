// Package doc holds the long-form explanation of each diagnostic code and
// extracts documentation comments from fixture sources.
//
// The extraction rule is simple: consecutive // lines immediately before an
// extern fn declaration (no blank line gap) are attached as the doc comment
// for that method. //~ annotation lines are never documentation.
package doc

import (
	"os"
	"strings"

	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/scanner"
)

// Explanation documents one diagnostic code.
type Explanation struct {
	Kind    diag.Kind
	Summary string
	Body    string
	// Bad and Good are short fixture snippets.
	Bad  string
	Good string
}

var explanations = map[diag.Kind]Explanation{
	diag.CannotAssignImmutableCapture: {
		Summary: "a closure assigns a captured variable that was not declared mut",
		Body: `A closure body assigned to a variable of an enclosing scope, directly or
through one of its fields or elements, but the variable was declared with
plain let. Assigning a capture needs a mutable binding: declare it with
let mut, or move the assignment out of the closure.

A proc, or a move closure, captures by value. Assigning the copy is still
rejected when the original binding is immutable.`,
		Bad: `let x = 1;
proc() { x = 2; };`,
		Good: `let mut x = 1;
proc() { x = 2; };`,
	},
	diag.CannotBorrowImmutableCaptureAsMutable: {
		Summary: "a closure borrows a captured variable mutably but it was not declared mut",
		Body: `A closure body took a mutable borrow of a variable of an enclosing scope,
either explicitly with &mut or by calling a method that takes &mut self,
but the variable was declared with plain let. Declare it with let mut.

Which methods take &mut self comes from the built-in table, the
mutating_methods list in .capcheck.yaml and extern fn declarations.`,
		Bad: `let s = std::io::stdin();
proc() { s.read_to_end(); };`,
		Good: `let mut s = std::io::stdin();
proc() { s.read_to_end(); };`,
	},
	diag.UnresolvedName: {
		Summary: "a name is used but no variable of that name is in scope",
		Body: `The identifier does not refer to any let binding or parameter visible at
this point. Bindings are visible only after their declaration and only in
the block that declares them and blocks nested in it. fn items do not see
the variables of the code around them.`,
		Bad:  `let y = x + 1;`,
		Good: `let x = 1;
let y = x + 1;`,
	},
}

// Explain returns the explanation of the diagnostic with the given code
// (e.g. "E0001"). Codes are matched case-insensitively.
func Explain(code string) (Explanation, bool) {
	k, ok := diag.KindByCode(strings.ToUpper(code))
	if !ok {
		return Explanation{}, false
	}
	e, ok := explanations[k]
	e.Kind = k
	return e, ok
}

// All returns the explanation of every diagnostic kind, in code order.
func All() []Explanation {
	var out []Explanation
	for _, k := range diag.Kinds() {
		if e, ok := explanations[k]; ok {
			e.Kind = k
			out = append(out, e)
		}
	}
	return out
}

// MethodDoc describes a documented extern method declaration.
type MethodDoc struct {
	Name string
	Doc  string
	Line int // 1-based line number of the extern keyword
}

// ExtractFile reads a fixture file and extracts its method docs.
func ExtractFile(path string) ([]MethodDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(path, data)
}

// Extract returns the doc comments attached to extern fn declarations in
// src, in source order. Declarations without a doc comment are skipped.
func Extract(name string, src []byte) ([]MethodDoc, error) {
	file := scanner.NewFile(name, src)
	sc := scanner.New(file, src)
	sc.KeepComments = true

	var (
		out      []MethodDoc
		comments []string
		lastLine int // line of the last comment in comments
	)
	t := sc.Scan()
	for t.Kind != scanner.EOF {
		line := file.Position(t.Pos).Line
		switch {
		case t.Kind == scanner.Comment:
			text := strings.TrimPrefix(t.Lit, "//")
			if strings.HasPrefix(text, "~") {
				comments = nil
				break
			}
			if len(comments) > 0 && line != lastLine+1 {
				comments = nil
			}
			comments = append(comments, strings.TrimPrefix(text, " "))
			lastLine = line
		case t.Kind == scanner.Extern:
			doc := ""
			if len(comments) > 0 && line == lastLine+1 {
				doc = strings.Join(comments, "\n")
			}
			comments = nil
			if t = sc.Scan(); t.Kind != scanner.Fn {
				continue
			}
			if t = sc.Scan(); t.Kind == scanner.Ident && doc != "" {
				out = append(out, MethodDoc{Name: t.Lit, Doc: doc, Line: line})
			}
		default:
			comments = nil
		}
		t = sc.Scan()
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
