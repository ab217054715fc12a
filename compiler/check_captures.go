package compiler

import (
	"fmt"
	"io"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/borrowck"
	"github.com/rubiojr/capcheck/capture"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/env"
	"github.com/rubiojr/capcheck/methods"
)

// DiscoverFunc computes the capture set of a closure. capture.Analyze is
// the default; pipelines that already know the captures can supply their
// own.
type DiscoverFunc func(c *ast.Closure, e capture.Lookup, at env.Point, sigs capture.Signatures) *capture.Set

// CaptureCheck implements ast.Check. It builds the binding environment in
// one top-down walk, then checks every closure (nested ones included) as
// an independent job on a pool of Jobs goroutines over the frozen
// environment.
type CaptureCheck struct {
	// Sigs are the known method signatures. Nil means methods.Defaults().
	// extern fn declarations in the checked program are added to a copy.
	Sigs *methods.Table
	// Jobs is the number of worker goroutines; values below 1 mean 1.
	Jobs     int
	Discover DiscoverFunc
	// Trace, if set, receives one line per checked closure.
	Trace io.Writer

	env  *env.Env
	sets []*capture.Set
}

type closureJob struct {
	closure *ast.Closure
	at      env.Point
}

type jobResult struct {
	set   *capture.Set
	diags diag.List
	err   error
}

func (cc *CaptureCheck) Name() string { return "capture-mutability" }

// Check runs the check. Capture sets of the last run are kept for Sets.
func (cc *CaptureCheck) Check(prog *ast.Program) error {
	sigs := cc.Sigs
	if sigs == nil {
		sigs = methods.Defaults()
	} else {
		sigs = sigs.Clone()
	}
	sigs.AddExterns(prog)
	discover := cc.Discover
	if discover == nil {
		discover = capture.Analyze
	}

	var jobs []closureJob
	b := newBinder()
	b.closure = func(c *ast.Closure, at env.Point) {
		jobs = append(jobs, closureJob{closure: c, at: at})
	}
	if err := b.bind(prog); err != nil {
		return err
	}
	b.env.Freeze()
	cc.env = b.env

	results := runJobs(len(jobs), cc.Jobs, func(i int) jobResult {
		j := jobs[i]
		set := discover(j.closure, b.env, j.at, sigs)
		diags, err := borrowck.Check(set, b.env)
		return jobResult{set: set, diags: diags, err: err}
	})

	cc.sets = make([]*capture.Set, 0, len(results))
	var all diag.List
	for i, r := range results {
		if r.err != nil {
			return fmt.Errorf("closure at %s: %w", positionOf(prog, jobs[i].closure), r.err)
		}
		cc.sets = append(cc.sets, r.set)
		all = append(all, r.diags...)
		if cc.Trace != nil {
			fmt.Fprintf(cc.Trace, "%s: %s at %s captures %d, %d errors\n",
				cc.Name(), jobs[i].closure.Construct, positionOf(prog, jobs[i].closure), r.set.Len(), len(r.diags))
		}
	}
	all.Sort()
	all.Dedup()
	return all.Err()
}

// Env returns the frozen environment of the last run.
func (cc *CaptureCheck) Env() *env.Env { return cc.env }

// Sets returns the capture sets of the last run, in closure source order.
func (cc *CaptureCheck) Sets() []*capture.Set { return cc.sets }

func positionOf(prog *ast.Program, n ast.Node) string {
	if prog.File == nil {
		return fmt.Sprintf("pos %d", n.Pos())
	}
	return prog.File.Position(n.Pos()).String()
}
