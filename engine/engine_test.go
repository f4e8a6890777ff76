package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganney/vite-plugin-specifier/specifier"
)

func writeOut(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readOut(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func run(t *testing.T, opts Options, manifest []string) (*Records, *Report) {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	records, rep, err := e.Run(context.Background(), manifest)
	require.NoError(t, err)
	return records, rep
}

func TestNoMatcherIsPureNoOp(t *testing.T) {
	dir := t.TempDir()
	src := "import { a } from './foo.js';\nexport { a };\n"
	writeOut(t, dir, map[string]string{"index.js": src, "foo.js": "export const a = 1;\n"})

	records, rep := run(t, Options{OutDir: dir}, []string{"index.js", "foo.js"})

	require.Equal(t, 2, records.Len())
	assert.False(t, rep.Failed())
	for _, rec := range records.All() {
		onDisk := readOut(t, dir, filepath.Base(rec.Filename))
		assert.Equal(t, onDisk, rec.Code, "output must byte-equal input")
	}
}

func TestRoundTripExtensionRename(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.js": "import { a } from './foo.js';\n",
		"foo.js":   "export const a = 1;\n",
	})

	_, rep := run(t, Options{
		OutDir: dir,
		ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Target(specifier.ExtMJS)},
	}, []string{"index.js", "foo.js"})

	assert.False(t, rep.Failed())
	assert.Equal(t, 2, rep.Renamed)

	assert.False(t, exists(dir, "index.js"))
	assert.False(t, exists(dir, "foo.js"))
	assert.Contains(t, readOut(t, dir, "index.mjs"), "'./foo.mjs'")
	assert.Contains(t, readOut(t, dir, "foo.mjs"), "export const a")
}

func TestRenameIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{"index.js": "import { a } from './foo.js';\n", "foo.js": "export const a = 1;\n"})

	opts := Options{OutDir: dir, ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Target(specifier.ExtMJS)}}
	run(t, opts, []string{"index.js", "foo.js"})
	first := readOut(t, dir, "index.mjs")

	// Second run over the already-renamed output: no source suffixes remain.
	_, rep := run(t, opts, []string{"index.mjs", "foo.mjs"})
	assert.Zero(t, rep.Renamed)
	assert.False(t, rep.Failed())
	assert.Equal(t, first, readOut(t, dir, "index.mjs"))
}

func TestDeclarationRenameTracksSibling(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.d.ts": "export * from './foo.js';\n",
		"foo.d.ts":   "export declare const a: number;\n",
	})

	// Declaration files are discovered by scanning, not the manifest.
	_, rep := run(t, Options{
		OutDir: dir,
		ExtMap: specifier.ExtMap{specifier.ExtDTS: specifier.Target(specifier.ExtDMTS)},
	}, nil)

	assert.False(t, rep.Failed())
	assert.False(t, exists(dir, "index.d.ts"))
	assert.Contains(t, readOut(t, dir, "index.d.mts"), "'./foo.mjs'")
	assert.True(t, exists(dir, "foo.d.mts"))
}

func TestDualEmission(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.js":   "import { a } from './foo.js';\n",
		"foo.js":     "export const a = 1;\n",
		"index.d.ts": "export * from './foo.js';\n",
	})

	_, rep := run(t, Options{
		OutDir: dir,
		ExtMap: specifier.ExtMap{
			specifier.ExtJS:  specifier.Target(specifier.ExtMJS),
			specifier.ExtDTS: specifier.Dual,
		},
	}, []string{"index.js", "foo.js"})

	assert.False(t, rep.Failed())

	// Exactly two sibling declaration variants; the single source is gone.
	assert.False(t, exists(dir, "index.d.ts"))
	assert.Contains(t, readOut(t, dir, "index.d.mts"), "'./foo.mjs'")
	assert.Contains(t, readOut(t, dir, "index.d.cts"), "'./foo.cjs'")
}

func TestDualEmissionCJSPrimary(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"foo.js":     "export const a = 1;\n",
		"index.d.ts": "export * from './foo.js';\n",
	})

	_, rep := run(t, Options{
		OutDir: dir,
		ExtMap: specifier.ExtMap{
			specifier.ExtJS:  specifier.Target(specifier.ExtCJS),
			specifier.ExtDTS: specifier.Dual,
		},
	}, []string{"foo.js"})

	assert.False(t, rep.Failed())
	assert.Contains(t, readOut(t, dir, "index.d.cts"), "'./foo.cjs'")
	assert.Contains(t, readOut(t, dir, "index.d.mts"), "'./foo.mjs'")
}

func TestLiteralMapExactPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.js": "import { a } from './foo.js';\nimport { b } from './foo.jsx';\n",
	})

	_, rep := run(t, Options{
		OutDir: dir,
		Map:    specifier.LiteralMap{"./foo.js": "./baz.mjs"},
		Write:  true,
	}, []string{"index.js"})

	assert.False(t, rep.Failed())
	got := readOut(t, dir, "index.js")
	assert.Contains(t, got, "'./baz.mjs'")
	// Value equality, not pattern matching: ./foo.jsx is untouched.
	assert.Contains(t, got, "'./foo.jsx'")
}

func TestLiteralMapAloneDoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	original := "import { a } from './foo.js';\n"
	writeOut(t, dir, map[string]string{"index.js": original})

	records, rep := run(t, Options{
		OutDir: dir,
		Map:    specifier.LiteralMap{"./foo.js": "./bar.js"},
	}, []string{"index.js"})

	assert.False(t, rep.Failed())
	// The record carries the substitution, but without Write or a
	// WriteFunc the file on disk is untouched.
	assert.Contains(t, records.Get(filepath.Join(dir, "index.js")).Code, "'./bar.js'")
	assert.Equal(t, original, readOut(t, dir, "index.js"))
}

func TestLiteralMapAfterRenameUsesNewPath(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.js": "import { a } from './foo.js';\nimport pkg from 'legacy-pkg';\n",
		"foo.js":   "export const a = 1;\n",
	})

	_, rep := run(t, Options{
		OutDir: dir,
		ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Target(specifier.ExtMJS)},
		Map:    specifier.LiteralMap{"legacy-pkg": "modern-pkg"},
		Write:  true,
	}, []string{"index.js", "foo.js"})

	assert.False(t, rep.Failed())
	assert.False(t, exists(dir, "index.js"))
	got := readOut(t, dir, "index.mjs")
	assert.Contains(t, got, "'./foo.mjs'")
	assert.Contains(t, got, "'modern-pkg'")
}

func TestPartialFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	broken := "import { from ;;; ???\n"
	writeOut(t, dir, map[string]string{
		"good.js":   "import { a } from './foo.js';\n",
		"broken.js": broken,
		"foo.js":    "export const a = 1;\n",
	})

	records, rep := run(t, Options{
		OutDir: dir,
		Map:    specifier.LiteralMap{"./foo.js": "./bar.js"},
		Write:  true,
	}, []string{"good.js", "broken.js", "foo.js"})

	require.True(t, rep.Failed())
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, StageRewrite, rep.Failures[0].Stage)

	assert.Error(t, records.Get(filepath.Join(dir, "broken.js")).Err)
	// The failing file keeps its original on-disk content.
	assert.Equal(t, broken, readOut(t, dir, "broken.js"))
	// Every other candidate still gets correct output.
	assert.Contains(t, readOut(t, dir, "good.js"), "'./bar.js'")
}

func TestCustomWriterInvokedOnceWithAllRecords(t *testing.T) {
	dir := t.TempDir()
	original := "import { a } from './foo.js';\n"
	writeOut(t, dir, map[string]string{
		"index.js":  original,
		"broken.js": "import { from ;;; ???\n",
		"foo.js":    "export const a = 1;\n",
	})

	calls := 0
	var got *Records
	_, rep := run(t, Options{
		OutDir: dir,
		Map:    specifier.LiteralMap{"./foo.js": "./baz.mjs"},
		WriteFunc: func(ctx context.Context, records *Records) error {
			calls++
			got = records
			return nil
		},
	}, []string{"index.js", "broken.js", "foo.js"})

	assert.Equal(t, 1, calls)
	require.NotNil(t, got)
	// One record per candidate, error entries included.
	assert.Equal(t, 3, got.Len())
	assert.Error(t, got.Get(filepath.Join(dir, "broken.js")).Err)
	assert.True(t, rep.Failed())

	// No default filesystem write happened.
	assert.Equal(t, original, readOut(t, dir, "index.js"))
}

func TestCustomWriterErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{"index.js": "export {};\n"})

	e, err := New(Options{
		OutDir: dir,
		WriteFunc: func(ctx context.Context, records *Records) error {
			return os.ErrPermission
		},
	})
	require.NoError(t, err)

	_, _, err = e.Run(context.Background(), []string{"index.js"})
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestConfigurationErrorsAreEager(t *testing.T) {
	_, err := New(Options{ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Dual}})
	assert.ErrorIs(t, err, specifier.ErrBadExtMap)

	_, err = New(Options{ExtMap: specifier.ExtMap{specifier.ExtDTS: specifier.Dual}})
	assert.ErrorIs(t, err, specifier.ErrBadExtMap)

	_, err = New(Options{Handler: specifier.RegexMap{{Pattern: `([`, Template: "x"}}})
	assert.ErrorIs(t, err, specifier.ErrBadPattern)
}

func TestHandlerTakesPrecedenceOverExtMapRules(t *testing.T) {
	dir := t.TempDir()
	writeOut(t, dir, map[string]string{
		"index.js": "import { a } from './foo.js';\n",
		"foo.js":   "export const a = 1;\n",
	})

	_, rep := run(t, Options{
		OutDir:  dir,
		Handler: specifier.RegexMap{{Pattern: `^(\.\.?/.*)\.js$`, Template: "${1}.custom.mjs"}},
		ExtMap:  specifier.ExtMap{specifier.ExtJS: specifier.Target(specifier.ExtMJS)},
	}, []string{"index.js", "foo.js"})

	assert.False(t, rep.Failed())
	// The handler rewrote specifiers; the extension map still renamed files.
	assert.Contains(t, readOut(t, dir, "index.mjs"), "'./foo.custom.mjs'")
}

func TestDefaultOutDir(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "dist", e.opts.OutDir)
}
