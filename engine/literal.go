package engine

import (
	"context"

	"github.com/morganney/vite-plugin-specifier/rewriter"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// applyLiteralMap is the second, independent rewrite pass: exact-match
// substitution over code the first pass already rewrote. Records renamed by
// the extension pass are re-rewritten under their new filename, so the write
// policy persists to the retargeted path. A failure skips the file and the
// loop continues.
func (e *Engine) applyLiteralMap(ctx context.Context, records *Records, rep *Report) {
	for _, rec := range records.All() {
		if rec.Err != nil {
			continue
		}
		dialect, isDecl := specifier.Classify(rec.Filename)
		code, err := rewriter.UpdateSource(ctx, []byte(rec.Code), e.opts.Map, rewriter.Options{
			Dialect:       dialect,
			IsDeclaration: isDecl,
		})
		if err != nil {
			rec.Err = err
			rep.fail(rec.Filename, StageRemap, err)
			e.log.Warn("literal remap failed", "file", rec.Filename, "err", err)
			continue
		}
		rec.Code = code
	}
}
