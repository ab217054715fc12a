// Package diag defines the diagnostics produced by the capture checker and
// the name resolution pass, together with the spans they point at.
//
// Diagnostics are plain values. They are built once by a check and never
// mutated afterwards; rendering them is left to a Renderer.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"modernc.org/token"
)

// Span is a half-open byte range [Start, End) inside a single token.File.
type Span struct {
	Start token.Pos
	End   token.Pos
}

// IsValid reports whether the span has a known start position.
func (s Span) IsValid() bool { return s.Start.IsValid() }

// Kind enumerates the violations a check can report.
type Kind int

const (
	// CannotAssignImmutableCapture is a direct assignment to an immutable
	// binding captured by a closure.
	CannotAssignImmutableCapture Kind = iota + 1
	// CannotBorrowImmutableCaptureAsMutable is a mutable borrow (explicit
	// &mut or a &mut self method call) of an immutable captured binding.
	CannotBorrowImmutableCaptureAsMutable
	// UnresolvedName is a variable reference that resolves to no binding.
	// It is reported by name resolution, never by the capture checker.
	UnresolvedName
)

var kindNames = [...]string{
	CannotAssignImmutableCapture:          "CannotAssignImmutableCapture",
	CannotBorrowImmutableCaptureAsMutable: "CannotBorrowImmutableCaptureAsMutable",
	UnresolvedName:                        "UnresolvedName",
}

var kindCodes = [...]string{
	CannotAssignImmutableCapture:          "E0001",
	CannotBorrowImmutableCaptureAsMutable: "E0002",
	UnresolvedName:                        "E0100",
}

func (k Kind) String() string {
	if k <= 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Code returns the stable error code of the kind (e.g. "E0001").
func (k Kind) Code() string {
	if k <= 0 || int(k) >= len(kindCodes) {
		return ""
	}
	return kindCodes[k]
}

// Kinds returns every known kind in code order.
func Kinds() []Kind {
	return []Kind{CannotAssignImmutableCapture, CannotBorrowImmutableCaptureAsMutable, UnresolvedName}
}

// KindByCode looks up a kind by its code or its name.
func KindByCode(code string) (Kind, bool) {
	for _, k := range Kinds() {
		if strings.EqualFold(k.Code(), code) || k.String() == code {
			return k, true
		}
	}
	return 0, false
}

// Diagnostic is a single user-facing error.
type Diagnostic struct {
	Kind Kind
	// Name is the declared name of the offending variable.
	Name string
	// Span covers the offending access (assignment target, borrow, call).
	Span Span
	// Decl covers the original declaration of the binding. Invalid for
	// UnresolvedName.
	Decl Span
	// Construct names the capturing construct ("proc", "closure").
	Construct string
	// Closure covers the whole capturing construct.
	Closure Span
}

// Message returns the one-line description of the violation.
func (d Diagnostic) Message() string {
	construct := d.Construct
	if construct == "" {
		construct = "closure"
	}
	switch d.Kind {
	case CannotAssignImmutableCapture:
		return fmt.Sprintf("cannot assign to immutable captured outer variable in a %s `%s`", construct, d.Name)
	case CannotBorrowImmutableCaptureAsMutable:
		return fmt.Sprintf("cannot borrow immutable captured outer variable in a %s `%s` as mutable", construct, d.Name)
	case UnresolvedName:
		return fmt.Sprintf("unresolved name `%s`", d.Name)
	}
	return fmt.Sprintf("%s `%s`", d.Kind, d.Name)
}

// Error implements error so a single diagnostic can travel as one.
func (d Diagnostic) Error() string {
	return d.Kind.Code() + ": " + d.Message()
}

// List is an ordered collection of diagnostics. A non-empty List is also an
// error, which lets checks return their findings through the usual error
// path while internal faults remain distinguishable with errors.As.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) { *l = append(*l, d) }

// Len, Less and Swap implement sort.Interface.
func (l List) Len() int      { return len(l) }
func (l List) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l List) Less(i, j int) bool {
	a, b := l[i], l[j]
	if a.Span.Start != b.Span.Start {
		return a.Span.Start < b.Span.Start
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Span.End < b.Span.End
}

// Sort orders the list by source position, then kind.
func (l List) Sort() { sort.Stable(l) }

// Dedup removes entries with the same kind, name and span. The list must
// be sorted.
func (l *List) Dedup() {
	if len(*l) < 2 {
		return
	}
	out := (*l)[:1]
	for _, d := range (*l)[1:] {
		prev := out[len(out)-1]
		if d.Kind == prev.Kind && d.Name == prev.Name && d.Span == prev.Span {
			continue
		}
		out = append(out, d)
	}
	*l = out
}

// Err returns nil for an empty list and the list itself otherwise.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

