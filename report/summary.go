// Package report renders the aggregate outcome of a rewrite run for humans:
// counts on success, one line per failed file otherwise.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/morganney/vite-plugin-specifier/engine"
)

// Summary writes a run report to w. Color is applied only when enabled
// (callers gate it on IsTerminal). Failure lines are truncated to the
// terminal width so wide paths do not wrap mid-diagnostic.
func Summary(w io.Writer, rep *engine.Report, color bool, width int) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + Reset
	}

	fmt.Fprintf(w, "%s %d rewritten, %d renamed\n",
		paint(BoldGreen, "specifier:"), rep.Rewritten, rep.Renamed)

	if !rep.Failed() {
		return
	}

	fmt.Fprintf(w, "%s %d file(s) failed:\n", paint(BoldRed, "specifier:"), len(rep.Failures))
	for _, f := range rep.Failures {
		tag := "[" + string(f.Stage) + "]"
		rest := fmt.Sprintf(" %s: %v", f.Filename, f.Err)
		// Truncation counts visible runes, so color escapes and multibyte
		// paths do not eat into the terminal width.
		if width > 0 && 2+len([]rune(tag))+len([]rune(rest)) > width {
			keep := width - 3 - len([]rune(tag))
			if keep < 1 {
				keep = 1
			}
			rest = string([]rune(rest)[:keep]) + "…"
		}
		fmt.Fprintln(w, "  "+paint(Yellow, tag)+rest)
	}
}

// Plain renders a summary with no color and no width constraint, for logs
// and tests.
func Plain(rep *engine.Report) string {
	var b strings.Builder
	Summary(&b, rep, false, 0)
	return b.String()
}
