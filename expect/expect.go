// Package expect reads expected-diagnostic annotations from compile-fail
// fixtures and compares them with the diagnostics a check produced.
//
// An annotation is a line comment starting with //~:
//
//	x = 2; //~ ERROR: cannot assign ...        expected on this line
//	//~^ ERROR: cannot assign ...               one line up per caret
//	//~| ERROR: cannot borrow ...               same line as the previous one
//
// The message is matched as a substring of the diagnostic message.
package expect

import (
	"fmt"
	"strings"

	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/scanner"
	"modernc.org/token"
)

// Annotation is one expected diagnostic.
type Annotation struct {
	// Line is the line the diagnostic is expected on.
	Line int
	// Kind is the annotation level: ERROR, WARNING, NOTE or HELP.
	Kind string
	Msg  string
	// At is where the annotation comment itself is.
	At token.Position
}

func (a Annotation) String() string {
	return fmt.Sprintf("line %d: %s: %s", a.Line, a.Kind, a.Msg)
}

var kinds = []string{"ERROR", "WARNING", "NOTE", "HELP"}

// Parse returns the annotations in src in source order.
func Parse(name string, src []byte) ([]Annotation, error) {
	file := scanner.NewFile(name, src)
	sc := scanner.New(file, src)
	sc.KeepComments = true

	var out []Annotation
	prevLine := 0
	for {
		t := sc.Scan()
		if t.Kind == scanner.EOF {
			break
		}
		if t.Kind != scanner.Comment || !strings.HasPrefix(t.Lit, "//~") {
			continue
		}
		at := file.Position(t.Pos)
		a, err := parseOne(t.Lit[len("//~"):], at, prevLine)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at, err)
		}
		prevLine = a.Line
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseOne(rest string, at token.Position, prevLine int) (Annotation, error) {
	a := Annotation{Line: at.Line, At: at}
	switch {
	case strings.HasPrefix(rest, "|"):
		if prevLine == 0 {
			return a, fmt.Errorf("//~| with no previous annotation")
		}
		a.Line = prevLine
		rest = rest[1:]
	case strings.HasPrefix(rest, "^"):
		n := len(rest) - len(strings.TrimLeft(rest, "^"))
		a.Line = at.Line - n
		if a.Line < 1 {
			return a, fmt.Errorf("annotation points above the first line")
		}
		rest = rest[n:]
	}
	rest = strings.TrimSpace(rest)
	for _, k := range kinds {
		if strings.HasPrefix(rest, k) {
			a.Kind = k
			rest = strings.TrimPrefix(rest[len(k):], ":")
			break
		}
	}
	if a.Kind == "" {
		return a, fmt.Errorf("annotation needs a level (ERROR, WARNING, NOTE or HELP): %q", rest)
	}
	a.Msg = strings.TrimSpace(rest)
	return a, nil
}

// Report is the outcome of Match.
type Report struct {
	// Matched counts annotations satisfied by a diagnostic.
	Matched int
	// Unexpected holds diagnostics no annotation asked for.
	Unexpected diag.List
	// Missing holds ERROR annotations with no matching diagnostic.
	Missing []Annotation
}

// OK reports whether diagnostics and annotations agree.
func (r *Report) OK() bool { return len(r.Unexpected) == 0 && len(r.Missing) == 0 }

// Match pairs each ERROR annotation with one diagnostic on its line whose
// message contains the annotation text. file resolves diagnostic lines.
// Annotations of other levels are ignored.
func Match(file *token.File, diags diag.List, anns []Annotation) *Report {
	r := &Report{}
	used := make([]bool, len(diags))
	lines := make([]int, len(diags))
	for i, d := range diags {
		lines[i] = lineOf(file, d.Span.Start)
	}
	for _, a := range anns {
		if a.Kind != "ERROR" {
			continue
		}
		found := false
		for i, d := range diags {
			if used[i] || lines[i] != a.Line || !strings.Contains(d.Message(), a.Msg) {
				continue
			}
			used[i] = true
			found = true
			r.Matched++
			break
		}
		if !found {
			r.Missing = append(r.Missing, a)
		}
	}
	for i, d := range diags {
		if !used[i] {
			r.Unexpected = append(r.Unexpected, d)
		}
	}
	return r
}

func lineOf(file *token.File, p token.Pos) int {
	if file == nil || !p.IsValid() || int(p) < file.Base() || int(p) > file.Base()+file.Size() {
		return 0
	}
	return file.Position(p).Line
}

// Describe writes a human readable account of the mismatches of r.
func (r *Report) Describe(file *token.File) string {
	var sb strings.Builder
	for _, d := range r.Unexpected {
		fmt.Fprintf(&sb, "unexpected: line %d: %s\n", lineOf(file, d.Span.Start), d.Message())
	}
	for _, a := range r.Missing {
		fmt.Fprintf(&sb, "missing:    %s\n", a)
	}
	return sb.String()
}
