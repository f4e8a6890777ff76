// Package engine orchestrates the rewrite of module specifiers across a
// bundler's output: a generic matcher pass over every candidate file, an
// optional extension-driven rename (including dual declaration emission), an
// optional exact-match literal pass, and a final write decision. Per-file
// failures are contained in records; only configuration errors abort a run.
package engine

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/morganney/vite-plugin-specifier/rewriter"
	"github.com/morganney/vite-plugin-specifier/scanner"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// WriterFunc is the custom persistence callback: invoked exactly once per
// run with every record, error entries included. Its error propagates to the
// caller; no default write happens for these records.
type WriterFunc func(ctx context.Context, records *Records) error

// Options is the host-agnostic configuration surface.
type Options struct {
	// OutDir is the bundler output directory. Empty falls back to "dist".
	OutDir string
	// Handler is the user-supplied updater for the first pass. When set it
	// takes precedence over rules compiled from ExtMap.
	Handler specifier.Updater
	// ExtMap drives specifier rules (when Handler is absent) and the rename
	// pass, including dual declaration emission.
	ExtMap specifier.ExtMap
	// Map is the exact-match literal substitution table of the second
	// rewrite pass. The pass only updates in-memory records; set Write
	// or WriteFunc to persist the result.
	Map specifier.LiteralMap
	// Write enables the default persistence of every non-error record.
	// Ignored when WriteFunc is set.
	Write bool
	// WriteFunc replaces default persistence with a single callback.
	WriteFunc WriterFunc
	// Ignore excludes paths from declaration discovery. Optional.
	Ignore *ignore.GitIgnore
	// Logger defaults to a package logger when nil.
	Logger *log.Logger
}

// Engine runs the rewrite passes for one build invocation. Create with New;
// the zero value is not usable.
type Engine struct {
	opts    Options
	matcher specifier.HandlerFunc
	literal specifier.HandlerFunc
	log     *log.Logger
}

// New validates the configuration eagerly: a malformed extension map or
// regex pattern fails here, before any file is touched.
func New(opts Options) (*Engine, error) {
	if opts.OutDir == "" {
		opts.OutDir = "dist"
	}
	if err := opts.ExtMap.Validate(); err != nil {
		return nil, err
	}

	matcher := specifier.HandlerFunc(specifier.NoChange)
	if opts.Handler != nil {
		fn, err := opts.Handler.Normalize()
		if err != nil {
			return nil, err
		}
		matcher = fn
	} else if len(opts.ExtMap) > 0 {
		rules, err := opts.ExtMap.Compile()
		if err != nil {
			return nil, err
		}
		fn, err := rules.Normalize()
		if err != nil {
			return nil, err
		}
		matcher = fn
	}

	literal, err := opts.Map.Normalize()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.With("component", "engine")
	}

	return &Engine{opts: opts, matcher: matcher, literal: literal, log: logger}, nil
}

// Run drives all passes over the union of manifest-reported files and
// independently discovered declaration files, then applies the write policy.
// The returned records hold the terminal per-file state; the report
// aggregates failures. Only a writer callback error is returned.
func (e *Engine) Run(ctx context.Context, manifest []string) (*Records, *Report, error) {
	candidates, err := scanner.Collect(e.opts.OutDir, manifest, e.opts.Ignore)
	if err != nil {
		return nil, nil, err
	}

	rep := &Report{}
	records := e.rewriteAll(ctx, candidates, rep)

	if len(e.opts.ExtMap) > 0 {
		e.applyExtMap(ctx, records, rep)
	}
	if len(e.opts.Map) > 0 {
		e.applyLiteralMap(ctx, records, rep)
	}

	if err := e.flush(ctx, records, rep); err != nil {
		return records, rep, err
	}
	return records, rep, nil
}

// rewriteAll is the first pass: one rewrite-service call per candidate, in
// discovery order. A failed call becomes a record with Err set; the batch
// never aborts on a single file.
func (e *Engine) rewriteAll(ctx context.Context, candidates []scanner.Candidate, rep *Report) *Records {
	records := newRecords()
	for _, c := range candidates {
		code, err := rewriter.UpdateFile(ctx, c.Path, e.matcher)
		rec := &Record{Filename: c.Path}
		if err != nil {
			rec.Err = err
			rep.fail(c.Path, StageRewrite, err)
			e.log.Warn("rewrite failed", "file", c.Path, "err", err)
		} else {
			rec.Code = code
			rep.Rewritten++
			e.log.Debug("rewritten", "file", c.Path, "dialect", c.Dialect)
		}
		records.add(rec)
	}
	return records
}

// flush resolves the write policy: default persistence, a single custom
// callback, or nothing. It runs only after every record reached its terminal
// state.
func (e *Engine) flush(ctx context.Context, records *Records, rep *Report) error {
	if e.opts.WriteFunc != nil {
		return e.opts.WriteFunc(ctx, records)
	}
	if !e.opts.Write {
		return nil
	}
	for _, rec := range records.All() {
		if rec.Err != nil {
			continue
		}
		if err := os.WriteFile(rec.Filename, []byte(rec.Code), 0644); err != nil {
			rec.Err = err
			rep.fail(rec.Filename, StageWrite, err)
			e.log.Warn("write failed", "file", rec.Filename, "err", err)
		}
	}
	return nil
}
