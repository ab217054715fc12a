// Package compiler drives the front end and the checks: it parses fixture
// sources and runs name resolution and the capture mutability check over
// the resulting tree.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/capture"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
	"github.com/rubiojr/capcheck/methods"
	"github.com/rubiojr/capcheck/parser"
)

// Compiler orchestrates the check pipeline.
type Compiler struct {
	// Sigs are the method signatures used to classify method calls.
	// Nil means methods.Defaults().
	Sigs *methods.Table
	// Jobs is the number of closures checked in parallel.
	Jobs int
	// Discover overrides capture discovery (see DiscoverFunc).
	Discover DiscoverFunc
	// Trace, if set, receives a line per check step.
	Trace io.Writer
}

// Result holds the outcome of checking one program.
type Result struct {
	Program *ast.Program
	// Env is the frozen binding environment built by the capture check.
	Env *env.Env
	// Captures holds one capture set per closure, in source order.
	Captures []*capture.Set
	// Diagnostics of every check, sorted by position.
	Diagnostics diag.List
}

// OK reports whether the program produced no diagnostics.
func (r *Result) OK() bool { return len(r.Diagnostics) == 0 }

// Renderer returns a diagnostic renderer for the checked source.
func (r *Result) Renderer(color bool) *diag.Renderer {
	return &diag.Renderer{File: r.Program.File, Source: r.Program.Source, Color: color}
}

// ParseSource parses src. name is used in positions.
func (c *Compiler) ParseSource(name string, src []byte) (*ast.Program, error) {
	prog, err := parser.Parse(name, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return prog, nil
}

// ParseFile reads and parses the file at path.
func (c *Compiler) ParseFile(path string) (*ast.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.ParseSource(path, src)
}

// Check runs the name resolution and capture checks over prog. User errors
// are returned in Result.Diagnostics; the error is non-nil only for
// internal faults (see borrowck.ErrInternal), and then Result is nil.
// Check does not modify prog and may be called repeatedly.
func (c *Compiler) Check(prog *ast.Program) (*Result, error) {
	cc := &CaptureCheck{Sigs: c.Sigs, Jobs: c.Jobs, Discover: c.Discover, Trace: c.Trace}
	chain := ast.CheckChain{UnresolvedNameCheck(), cc}

	res := &Result{Program: prog}
	if err := chain.Run(prog); err != nil {
		var l diag.List
		if !errors.As(err, &l) {
			return nil, err
		}
		res.Diagnostics = l
	}
	res.Env = cc.Env()
	res.Captures = cc.Sets()
	if c.Trace != nil {
		fmt.Fprintf(c.Trace, "%s: %d closures, %d bindings, %d errors\n",
			prog.SourceFile, len(res.Captures), res.Env.Len(), len(res.Diagnostics))
	}
	return res, nil
}

// CheckFile parses and checks the file at path.
func (c *Compiler) CheckFile(path string) (*Result, error) {
	prog, err := c.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return c.Check(prog)
}

// CheckSource parses and checks src.
func (c *Compiler) CheckSource(name string, src []byte) (*Result, error) {
	prog, err := c.ParseSource(name, src)
	if err != nil {
		return nil, err
	}
	return c.Check(prog)
}
