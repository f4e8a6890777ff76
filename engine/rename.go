package engine

import (
	"context"
	"os"
	"strings"

	"github.com/morganney/vite-plugin-specifier/rewriter"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// applyExtMap is the rename pass. For every non-error record whose suffix
// has a mapping it renames the file on disk, with two special declaration
// behaviors: a narrow inner rewrite so the declaration's specifiers track
// the sibling script rename, and dual emission producing one declaration
// variant per module system. Write and delete failures are contained per
// record and the pass continues.
func (e *Engine) applyExtMap(ctx context.Context, records *Records, rep *Report) {
	for _, rec := range records.All() {
		if rec.Err != nil {
			continue
		}
		ext, target, ok := e.opts.ExtMap.Lookup(rec.Filename)
		if !ok {
			continue
		}
		if target == specifier.Dual {
			e.emitDual(ctx, rec, records, rep)
			continue
		}
		if specifier.Target(ext) == target {
			continue
		}
		e.renameOne(ctx, rec, records, ext, target, rep)
	}
}

// renameOne renames a single record to its mapped suffix. Declaration
// targets first retarget the record's relative script specifiers at the
// target module system; script targets write the already-rewritten code
// as-is. The original file is removed only after the new one is written.
func (e *Engine) renameOne(ctx context.Context, rec *Record, records *Records, ext specifier.Ext, target specifier.Target, rep *Report) {
	code := rec.Code
	if script, ok := specifier.ScriptFor(target); ok {
		updated, err := rewriter.UpdateSource(ctx, []byte(code), specifier.ScriptRules(script), declOptions())
		if err != nil {
			rec.Err = err
			rep.fail(rec.Filename, StageRewrite, err)
			e.log.Warn("declaration rewrite failed", "file", rec.Filename, "err", err)
			return
		}
		code = updated
	}

	oldPath := rec.Filename
	newPath := strings.TrimSuffix(oldPath, string(ext)) + string(target)
	if err := os.WriteFile(newPath, []byte(code), 0644); err != nil {
		rec.Err = err
		rep.fail(oldPath, StageWrite, err)
		e.log.Warn("rename write failed", "file", newPath, "err", err)
		return
	}
	if err := os.Remove(oldPath); err != nil {
		// Both old and new now exist; reported, not rolled back.
		rep.fail(oldPath, StageWrite, err)
		e.log.Warn("remove failed after rename", "file", oldPath, "err", err)
	}

	rec.Code = code
	records.rename(rec, newPath)
	rep.Renamed++
	e.log.Debug("renamed", "from", oldPath, "to", newPath)
}

// emitDual writes the two module-system variants of one declaration file.
// The primary system comes from the script extension map; the primary
// variant reuses the already-rewritten record code, the secondary retargets
// the relative script suffixes at the other system. The single source
// declaration is removed once both variants exist.
func (e *Engine) emitDual(ctx context.Context, rec *Record, records *Records, rep *Report) {
	primary, secondary, err := e.opts.ExtMap.DualTargets()
	if err != nil {
		// Validate rejects this at New time; a record-level guard anyway.
		rec.Err = err
		rep.fail(rec.Filename, StageRewrite, err)
		return
	}

	oldPath := rec.Filename
	base := strings.TrimSuffix(oldPath, string(specifier.ExtDTS))
	primaryPath := base + string(primary.Decl)
	secondaryPath := base + string(secondary.Decl)

	secondaryCode, err := rewriter.UpdateSource(ctx, []byte(rec.Code), specifier.CrossRules(primary.Script, secondary.Script), declOptions())
	if err != nil {
		rec.Err = err
		rep.fail(oldPath, StageRewrite, err)
		e.log.Warn("dual rewrite failed", "file", oldPath, "err", err)
		return
	}

	if err := os.WriteFile(primaryPath, []byte(rec.Code), 0644); err != nil {
		rec.Err = err
		rep.fail(oldPath, StageWrite, err)
		e.log.Warn("dual write failed", "file", primaryPath, "err", err)
		return
	}
	if err := os.WriteFile(secondaryPath, []byte(secondaryCode), 0644); err != nil {
		rec.Err = err
		rep.fail(oldPath, StageWrite, err)
		e.log.Warn("dual write failed", "file", secondaryPath, "err", err)
		return
	}
	if err := os.Remove(oldPath); err != nil {
		rep.fail(oldPath, StageWrite, err)
		e.log.Warn("remove failed after dual emission", "file", oldPath, "err", err)
	}

	// The record follows the primary variant; the secondary is a pure
	// side output.
	records.rename(rec, primaryPath)
	rep.Renamed++
	e.log.Debug("dual emitted", "from", oldPath, "primary", primaryPath, "secondary", secondaryPath)
}

func declOptions() rewriter.Options {
	return rewriter.Options{Dialect: specifier.DialectDTS, IsDeclaration: true}
}
