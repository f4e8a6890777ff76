// Package specifier defines the data model for rewriting module specifiers
// in bundler output: the recognized extension vocabulary, the extension map,
// and the updater shapes that all collapse into one matching contract.
package specifier

import (
	"errors"
	"fmt"
	"strings"
)

// Ext is one of the recognized source-file suffixes. The set is closed:
// anything else in a configuration is rejected up front.
type Ext string

const (
	ExtJS  Ext = ".js"  // module-system-neutral script
	ExtMJS Ext = ".mjs" // explicit ESM script
	ExtCJS Ext = ".cjs" // explicit CJS script
	ExtJSX Ext = ".jsx"
	ExtTSX Ext = ".tsx"
	ExtDTS Ext = ".d.ts" // type declaration, no runtime code

	// Module-system-qualified declaration suffixes. Valid only as rename
	// targets, never as extension-map keys.
	ExtDMTS Ext = ".d.mts"
	ExtDCTS Ext = ".d.cts"
)

// Target is the right-hand side of an extension-map entry: either a concrete
// Ext or the Dual sentinel.
type Target string

// Dual asks for two sibling declaration outputs (one per module system)
// instead of an in-place rename. Only meaningful on the ExtDTS key.
const Dual Target = "dual"

var ErrBadExtMap = errors.New("invalid extension map")

// scriptExts lists the rename-source script suffixes in canonical order.
// Rule compilation and iteration follow this order so runs are deterministic.
var scriptExts = []Ext{ExtJS, ExtMJS, ExtCJS, ExtJSX, ExtTSX}

// declExts lists every declaration suffix, plain and qualified.
var declExts = []Ext{ExtDMTS, ExtDCTS, ExtDTS}

// ExtOf reports the recognized suffix of filename. Declaration suffixes are
// checked first so "foo.d.ts" classifies as ExtDTS, not ExtJS-adjacent.
func ExtOf(filename string) (Ext, bool) {
	for _, e := range declExts {
		if strings.HasSuffix(filename, string(e)) {
			return e, true
		}
	}
	for _, e := range scriptExts {
		if strings.HasSuffix(filename, string(e)) {
			return e, true
		}
	}
	return "", false
}

// IsDeclaration reports whether filename is a type-declaration file,
// independent of any module-system infix.
func IsDeclaration(filename string) bool {
	for _, e := range declExts {
		if strings.HasSuffix(filename, string(e)) {
			return true
		}
	}
	return false
}

// IsScript reports whether filename carries one of the script suffixes
// eligible for rewriting.
func IsScript(filename string) bool {
	if IsDeclaration(filename) {
		return false
	}
	_, ok := ExtOf(filename)
	return ok
}

// Dialect selects the grammar the rewrite service must parse with.
type Dialect int

const (
	DialectJS  Dialect = iota // generic, also .mjs/.cjs and unknowns
	DialectJSX                // explicit JSX
	DialectTS                 // plain TypeScript
	DialectTSX                // explicit TSX
	DialectDTS                // typed: declaration files
)

func (d Dialect) String() string {
	switch d {
	case DialectJSX:
		return "jsx"
	case DialectTS:
		return "ts"
	case DialectTSX:
		return "tsx"
	case DialectDTS:
		return "dts"
	default:
		return "js"
	}
}

// Classify maps a filename to the parser dialect and the declaration flag.
// A mismatched dialect makes the downstream parse fail, so suffix inspection
// here is the single source of truth.
func Classify(filename string) (Dialect, bool) {
	if IsDeclaration(filename) {
		return DialectDTS, true
	}
	switch {
	case strings.HasSuffix(filename, ".tsx"):
		return DialectTSX, false
	case strings.HasSuffix(filename, ".jsx"):
		return DialectJSX, false
	case strings.HasSuffix(filename, ".ts"), strings.HasSuffix(filename, ".mts"), strings.HasSuffix(filename, ".cts"):
		return DialectTS, false
	default:
		return DialectJS, false
	}
}

// ExtMap maps a source suffix to its rename target. Unmapped suffixes are
// left untouched by every pass.
type ExtMap map[Ext]Target

// Validate rejects malformed maps before any file is touched: unknown keys,
// dual on a non-declaration key, declaration targets on script keys, and a
// dual entry with no script entry to infer the primary module system from.
func (m ExtMap) Validate() error {
	for k, v := range m {
		switch k {
		case ExtJS, ExtMJS, ExtCJS, ExtJSX, ExtTSX:
			if v == Dual {
				return fmt.Errorf("%w: %q maps to dual, only %q may", ErrBadExtMap, k, ExtDTS)
			}
			switch Ext(v) {
			case ExtJS, ExtMJS, ExtCJS, ExtJSX, ExtTSX:
			default:
				return fmt.Errorf("%w: %q maps to %q, want a script suffix", ErrBadExtMap, k, v)
			}
		case ExtDTS:
			switch v {
			case Dual:
				if _, ok := m.primary(); !ok {
					return fmt.Errorf("%w: %q maps to dual but no script entry targets %q or %q", ErrBadExtMap, ExtDTS, ExtMJS, ExtCJS)
				}
			case Target(ExtDMTS), Target(ExtDCTS):
			default:
				return fmt.Errorf("%w: %q maps to %q, want %q, %q or dual", ErrBadExtMap, ExtDTS, v, ExtDMTS, ExtDCTS)
			}
		default:
			return fmt.Errorf("%w: unknown key %q", ErrBadExtMap, k)
		}
	}
	return nil
}

// Lookup returns the target for filename's recognized suffix.
func (m ExtMap) Lookup(filename string) (Ext, Target, bool) {
	ext, ok := ExtOf(filename)
	if !ok {
		return "", "", false
	}
	t, ok := m[ext]
	return ext, t, ok
}

// Rename applies the map to a single filename, leaving it unchanged when no
// entry matches. Dual entries have no single rename; callers handle them
// before asking.
func (m ExtMap) Rename(filename string) string {
	ext, t, ok := m.Lookup(filename)
	if !ok || t == Dual {
		return filename
	}
	return strings.TrimSuffix(filename, string(ext)) + string(t)
}

// primary reports the module system the script map targets: true for ESM.
func (m ExtMap) primary() (esm bool, ok bool) {
	for _, k := range scriptExts {
		switch Ext(m[k]) {
		case ExtMJS:
			return true, true
		case ExtCJS:
			return false, true
		}
	}
	return false, false
}

// DualTargets resolves the primary and secondary declaration suffixes for a
// dual entry, plus the script suffix each variant's specifiers must use.
// Validate guarantees the primary is inferable.
func (m ExtMap) DualTargets() (primary, secondary DeclVariant, err error) {
	esm, ok := m.primary()
	if !ok {
		return DeclVariant{}, DeclVariant{}, fmt.Errorf("%w: dual with no script entry", ErrBadExtMap)
	}
	mts := DeclVariant{Decl: ExtDMTS, Script: ExtMJS}
	cts := DeclVariant{Decl: ExtDCTS, Script: ExtCJS}
	if esm {
		return mts, cts, nil
	}
	return cts, mts, nil
}

// DeclVariant pairs a qualified declaration suffix with the script suffix
// its relative specifiers must point at.
type DeclVariant struct {
	Decl   Ext
	Script Ext
}

// ScriptFor returns the script suffix paired with a qualified declaration
// target (.d.mts -> .mjs, .d.cts -> .cjs).
func ScriptFor(decl Target) (Ext, bool) {
	switch Ext(decl) {
	case ExtDMTS:
		return ExtMJS, true
	case ExtDCTS:
		return ExtCJS, true
	}
	return "", false
}
