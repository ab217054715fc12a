// Package borrowck decides whether the captures of a closure respect the
// declared mutability of the captured bindings.
//
// Mutable bindings may be used in any way. An immutable binding may only be
// read: each distinct assignment produces a CannotAssignImmutableCapture
// diagnostic and each distinct mutable borrow a
// CannotBorrowImmutableCaptureAsMutable diagnostic.
//
// A capture set that does not agree with the environment (unknown binding,
// binding not visible from the closure, empty or inconsistent record) means
// an upstream pass is broken. Check then returns an error wrapping
// ErrInternal instead of diagnostics.
package borrowck

import (
	"errors"
	"fmt"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/capture"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
)

// ErrInternal marks checker faults caused by malformed input.
var ErrInternal = errors.New("internal capture checker fault")

// Bindings is the view of the binding environment the checker reads.
type Bindings interface {
	Binding(id env.BindingID) (env.Binding, bool)
	Visible(id env.BindingID, at env.Point) bool
}

type occurrence struct {
	kind diag.Kind
	span diag.Span
}

// Check returns one diagnostic per distinct illegal access in set, sorted
// by position. It never modifies set.
func Check(set *capture.Set, e Bindings) (diag.List, error) {
	construct, closureSpan := "closure", diag.Span{}
	if set.Closure != nil {
		construct = set.Closure.Construct.String()
		closureSpan = ast.SpanOf(set.Closure)
	}

	var out diag.List
	for _, r := range set.Records() {
		b, err := validate(r, set.At, e)
		if err != nil {
			return nil, err
		}
		if b.Mut == env.Mutable {
			continue
		}
		seen := make(map[occurrence]bool)
		for _, u := range r.Uses {
			var kind diag.Kind
			switch u.Mode {
			case capture.Assign:
				kind = diag.CannotAssignImmutableCapture
			case capture.MutableBorrow:
				kind = diag.CannotBorrowImmutableCaptureAsMutable
			default:
				continue
			}
			o := occurrence{kind: kind, span: u.Span}
			if seen[o] {
				continue
			}
			seen[o] = true
			out.Add(diag.Diagnostic{
				Kind:      kind,
				Name:      b.Name,
				Span:      u.Span,
				Decl:      b.Span,
				Construct: construct,
				Closure:   closureSpan,
			})
		}
	}
	out.Sort()
	return out, nil
}

// validate checks r against the environment and returns its binding.
func validate(r *capture.Record, at env.Point, e Bindings) (env.Binding, error) {
	b, ok := e.Binding(r.Binding)
	if !ok {
		return b, fmt.Errorf("%w: capture of `%s` references unknown binding %d", ErrInternal, r.Name, r.Binding)
	}
	if !e.Visible(r.Binding, at) {
		return b, fmt.Errorf("%w: binding %d (`%s`) is not visible from the closure at %s", ErrInternal, r.Binding, b.Name, at)
	}
	if r.Name != "" && r.Name != b.Name {
		return b, fmt.Errorf("%w: capture record names `%s` but binding %d is `%s`", ErrInternal, r.Name, r.Binding, b.Name)
	}
	if r.Modes == 0 || len(r.Uses) == 0 {
		return b, fmt.Errorf("%w: empty capture record for `%s`", ErrInternal, b.Name)
	}
	var union capture.Mode
	for _, u := range r.Uses {
		switch u.Mode {
		case capture.Read, capture.Assign, capture.MutableBorrow:
		default:
			return b, fmt.Errorf("%w: use of `%s` has invalid mode %s", ErrInternal, b.Name, u.Mode)
		}
		union |= u.Mode
	}
	if union != r.Modes {
		return b, fmt.Errorf("%w: capture record for `%s` has modes %s but uses %s", ErrInternal, b.Name, r.Modes, union)
	}
	return b, nil
}

