// Package rats runs compile-fail fixtures: each fixture is checked and the
// diagnostics it produces are compared with its //~ annotations.
package rats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rubiojr/capcheck/compiler"
	"github.com/rubiojr/capcheck/expect"
)

// Ext is the fixture file extension.
const Ext = ".cap"

// Result is the outcome of one fixture.
type Result struct {
	File string
	// Expected counts ERROR annotations.
	Expected int
	Report   *expect.Report
	// Err is set when the fixture could not be checked at all.
	Err error
	// Detail explains a failure.
	Detail string
}

// Passed reports whether the fixture produced exactly the expected
// diagnostics.
func (r *Result) Passed() bool { return r.Err == nil && r.Report != nil && r.Report.OK() }

// Runner checks fixtures with a shared compiler.
type Runner struct {
	Compiler *compiler.Compiler
	// Jobs is the number of fixtures checked in parallel.
	Jobs int
}

// RunFile checks one fixture.
func (r *Runner) RunFile(path string) *Result {
	res := &Result{File: path}
	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		return res
	}
	anns, err := expect.Parse(path, src)
	if err != nil {
		res.Err = fmt.Errorf("annotations: %w", err)
		return res
	}
	for _, a := range anns {
		if a.Kind == "ERROR" {
			res.Expected++
		}
	}
	comp := r.Compiler
	if comp == nil {
		comp = &compiler.Compiler{}
	}
	out, err := comp.CheckSource(path, src)
	if err != nil {
		res.Err = err
		return res
	}
	res.Report = expect.Match(out.Program.File, out.Diagnostics, anns)
	if !res.Report.OK() {
		res.Detail = res.Report.Describe(out.Program.File)
	}
	return res
}

// Run checks files on up to Jobs goroutines. each is called once per file
// in the order of files, as soon as that file and all before it are done.
func (r *Runner) Run(files []string, each func(*Result)) []*Result {
	results := make([]*Result, len(files))
	jobs := r.Jobs
	if jobs < 1 {
		jobs = 1
	}

	if jobs == 1 {
		for i, f := range files {
			results[i] = r.RunFile(f)
			if each != nil {
				each(results[i])
			}
		}
		return results
	}

	done := make([]chan struct{}, len(files))
	for i := range done {
		done[i] = make(chan struct{})
	}
	work := make(chan int, len(files))
	for i := range files {
		work <- i
	}
	close(work)
	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = r.RunFile(files[i])
				close(done[i])
			}
		}()
	}
	for i := range files {
		<-done[i]
		if each != nil {
			each(results[i])
		}
	}
	wg.Wait()
	return results
}

// Collect expands targets into fixture paths. Directories contribute their
// Ext files (non-recursive, sorted); files are taken as given.
func Collect(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", target, err)
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", target, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
				files = append(files, filepath.Join(target, e.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s fixture files found", Ext)
	}
	return files, nil
}

// Summary counts passed and failed results.
func Summary(results []*Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
