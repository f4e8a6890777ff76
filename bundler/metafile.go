// Package bundler adapts a host bundler to the rewrite engine: the esbuild
// metafile is the bundle manifest, and an esbuild plugin drives the engine
// at either supported lifecycle point.
package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Metafile is the esbuild metafile JSON structure.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"` // "cjs" or "esm"
}

// MetafileImport is an import edge in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is an emitted file in the metafile.
type MetafileOutput struct {
	Bytes      int              `json:"bytes"`
	Imports    []MetafileImport `json:"imports"`
	Exports    []string         `json:"exports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
}

// ParseMetafile decodes a metafile payload.
func ParseMetafile(data []byte) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}
	return &m, nil
}

// LoadMetafile reads and decodes a metafile from disk.
func LoadMetafile(path string) (*Metafile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMetafile(data)
}

// OutputFiles returns the emitted filenames in sorted order, so manifest
// processing is deterministic across runs.
func (m *Metafile) OutputFiles() []string {
	files := make([]string, 0, len(m.Outputs))
	for path := range m.Outputs {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}
