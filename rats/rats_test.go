package rats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rubiojr/capcheck/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFailFixtures(t *testing.T) {
	files, err := Collect([]string{"../testdata/compile-fail"})
	require.NoError(t, err)
	require.Len(t, files, 5)

	results := (&Runner{Compiler: &compiler.Compiler{}, Jobs: 4}).Run(files, nil)
	for _, r := range results {
		assert.True(t, r.Passed(), "%s: %v\n%s", r.File, r.Err, r.Detail)
		assert.Positive(t, r.Expected, r.File)
	}
	passed, failed := Summary(results)
	assert.Equal(t, 5, passed)
	assert.Zero(t, failed)
}

func TestRunPassFixtures(t *testing.T) {
	files, err := Collect([]string{"../testdata/run-pass"})
	require.NoError(t, err)
	results := (&Runner{}).Run(files, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed(), results[0].Detail)
	assert.Zero(t, results[0].Expected)
}

func TestMismatchIsReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wrong.cap")
	src := "fn main() {\n    let x = 1;\n    closure { x = 2; };\n    //~^ ERROR: cannot borrow\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	r := (&Runner{}).RunFile(path)
	require.NoError(t, r.Err)
	assert.False(t, r.Passed())
	assert.Equal(t, 1, r.Expected)
	assert.Contains(t, r.Detail, "unexpected: line 3: cannot assign")
	assert.Contains(t, r.Detail, "missing:    line 3: ERROR: cannot borrow")
}

func TestBrokenFixtures(t *testing.T) {
	dir := t.TempDir()
	syntax := filepath.Join(dir, "syntax.cap")
	require.NoError(t, os.WriteFile(syntax, []byte("let = 1;\n"), 0o644))
	ann := filepath.Join(dir, "ann.cap")
	require.NoError(t, os.WriteFile(ann, []byte("//~| ERROR: orphan\n"), 0o644))

	r := (&Runner{}).RunFile(syntax)
	assert.Error(t, r.Err)
	assert.False(t, r.Passed())

	r = (&Runner{}).RunFile(ann)
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "annotations:")

	r = (&Runner{}).RunFile(filepath.Join(dir, "missing.cap"))
	assert.ErrorIs(t, r.Err, os.ErrNotExist)
}

func TestRunKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.cap", "b.cap", "c.cap", "d.cap", "e.cap", "f.cap"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("fn main() { let x = 1; closure { x; }; }\n"), 0o644))
		files = append(files, path)
	}
	var seen []string
	results := (&Runner{Jobs: 3}).Run(files, func(r *Result) { seen = append(seen, r.File) })
	assert.Equal(t, files, seen)
	for i, r := range results {
		assert.Equal(t, files[i], r.File)
		assert.True(t, r.Passed())
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cap"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cap"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.cap"), 0o755))

	files, err := Collect([]string{dir, "../testdata/run-pass/mutable.cap"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cap"),
		filepath.Join(dir, "b.cap"),
		"../testdata/run-pass/mutable.cap",
	}, files)

	_, err = Collect([]string{filepath.Join(dir, "nope")})
	assert.ErrorContains(t, err, "cannot access")

	empty := t.TempDir()
	_, err = Collect([]string{empty})
	assert.ErrorContains(t, err, "no .cap fixture files found")
}
