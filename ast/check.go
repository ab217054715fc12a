package ast

import (
	"errors"
	"fmt"

	"github.com/rubiojr/capcheck/diag"
)

// Check validates an AST without modifying it.
//
// A check reports user errors by returning a diag.List. Any other error is
// an internal fault and aborts the chain.
type Check interface {
	Name() string
	Check(prog *Program) error
}

// CheckFunc adapts a named function to the Check interface.
type CheckFunc struct {
	N string
	F func(*Program) error
}

func (c CheckFunc) Name() string              { return c.N }
func (c CheckFunc) Check(prog *Program) error { return c.F(prog) }

// CheckChain runs checks in order, gathering their diagnostics.
type CheckChain []Check

// Run executes each check in sequence. It returns nil if all pass, a sorted
// diag.List holding the diagnostics of every check, or the first internal
// error wrapped with the failing check's name.
func (cc CheckChain) Run(prog *Program) error {
	var all diag.List
	for _, c := range cc {
		err := c.Check(prog)
		if err == nil {
			continue
		}
		var l diag.List
		if errors.As(err, &l) {
			all = append(all, l...)
			continue
		}
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	all.Sort()
	return all.Err()
}
