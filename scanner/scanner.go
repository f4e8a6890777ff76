// Package scanner discovers the candidate files of one build invocation:
// bundle-reported scripts unioned with declaration files found by walking
// the output directory, since bundler manifests do not reliably report
// declarations.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/morganney/vite-plugin-specifier/specifier"
)

// Candidate is one file selected for rewriting, tagged with the parser
// dialect and the declaration flag derived from its name.
type Candidate struct {
	Path          string
	Dialect       specifier.Dialect
	IsDeclaration bool
}

// IgnoredDirs are never descended into while scanning output trees.
var IgnoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".cache":       true,
}

// LoadIgnore compiles exclusion patterns for a scan root. A .specifierignore
// takes precedence; otherwise a .gitignore is honored if present. Returns
// nil when neither exists, which disables pattern exclusion.
func LoadIgnore(root string) *ignore.GitIgnore {
	for _, name := range []string{".specifierignore", ".gitignore"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			if ign, err := ignore.CompileIgnoreFile(path); err == nil {
				return ign
			}
		}
	}
	return nil
}

// ScanDeclarations walks root recursively and returns every .d.ts file, in
// walk order. Qualified declarations (.d.mts/.d.cts) are prior outputs of a
// rename and are left alone, which is what makes re-runs no-ops.
func ScanDeclarations(root string, ign *ignore.GitIgnore) ([]string, error) {
	return scan(root, ign, func(path string) bool {
		ext, ok := specifier.ExtOf(path)
		return ok && ext == specifier.ExtDTS
	})
}

// ScanModules returns every script and plain-declaration file under root.
// Used when no bundle manifest is available and the whole output tree is
// the candidate set.
func ScanModules(root string, ign *ignore.GitIgnore) ([]string, error) {
	return scan(root, ign, func(path string) bool {
		if specifier.IsScript(path) {
			return true
		}
		ext, ok := specifier.ExtOf(path)
		return ok && ext == specifier.ExtDTS
	})
}

func scan(root string, ign *ignore.GitIgnore, keep func(string) bool) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if IgnoredDirs[info.Name()] {
				return filepath.SkipDir
			}
			if ign != nil && relPath != "." && ign.MatchesPath(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if ign != nil && ign.MatchesPath(relPath) {
			return nil
		}
		if keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Collect builds the de-duplicated candidate list for one run: manifest
// filenames filtered to rewritable extensions, then independently discovered
// declaration files. Every candidate path is absolute, so manifest entries
// and scan results de-duplicate regardless of how they were spelled. Order
// is manifest order followed by scan order; first occurrence wins.
func Collect(outDir string, manifest []string, ign *ignore.GitIgnore) ([]Candidate, error) {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []Candidate

	add := func(path string) {
		clean := filepath.Clean(path)
		if seen[clean] {
			return
		}
		seen[clean] = true
		dialect, isDecl := specifier.Classify(clean)
		candidates = append(candidates, Candidate{Path: clean, Dialect: dialect, IsDeclaration: isDecl})
	}

	for _, name := range manifest {
		path, err := resolveEntry(outDir, absOut, name)
		if err != nil {
			return nil, err
		}
		if !specifier.IsScript(path) && !specifier.IsDeclaration(path) {
			continue
		}
		add(path)
	}

	decls, err := ScanDeclarations(absOut, ign)
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		add(d)
	}

	return candidates, nil
}

// resolveEntry absolutizes one manifest entry. Bundler metafiles report
// outputs relative to the working directory and repeat the output directory
// prefix; bare names are taken relative to outDir.
func resolveEntry(outDir, absOut, name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	prefix := filepath.Clean(outDir)
	if clean == prefix || strings.HasPrefix(clean, prefix+string(filepath.Separator)) {
		return filepath.Abs(clean)
	}
	return filepath.Join(absOut, clean), nil
}
