package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

const sampleMetafile = `{
  "inputs": {
    "src/index.ts": {"bytes": 120, "imports": [{"path": "src/util.ts", "kind": "import-statement"}]}
  },
  "outputs": {
    "dist/util.js": {"bytes": 40, "imports": [], "exports": ["id"]},
    "dist/index.js": {"bytes": 90, "imports": [{"path": "dist/util.js", "kind": "import-statement"}], "exports": [], "entryPoint": "src/index.ts"}
  }
}`

func TestParseMetafile(t *testing.T) {
	m, err := ParseMetafile([]byte(sampleMetafile))
	require.NoError(t, err)
	assert.Len(t, m.Inputs, 1)
	assert.Len(t, m.Outputs, 2)
	assert.Equal(t, "src/index.ts", m.Outputs["dist/index.js"].EntryPoint)

	_, err = ParseMetafile([]byte("{not json"))
	assert.Error(t, err)
}

func TestOutputFilesSorted(t *testing.T) {
	m, err := ParseMetafile([]byte(sampleMetafile))
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/index.js", "dist/util.js"}, m.OutputFiles())
}

func TestLoadMetafile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleMetafile), 0644))

	m, err := LoadMetafile(path)
	require.NoError(t, err)
	assert.Len(t, m.Outputs, 2)

	_, err = LoadMetafile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestPluginRejectsBadConfig(t *testing.T) {
	_, err := Plugin(Config{Options: engine.Options{
		ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Dual},
	}})
	assert.ErrorIs(t, err, specifier.ErrBadExtMap)

	_, err = Plugin(Config{Hook: Hook("bogus")})
	assert.Error(t, err)
}

func TestTransformHookRewritesOnLoad(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte("import { a } from './foo.js';\nconsole.log(a);\n"), 0644))

	p, err := Plugin(Config{
		Hook: HookTransform,
		Options: engine.Options{
			ExtMap: specifier.ExtMap{specifier.ExtJS: specifier.Target(specifier.ExtMJS)},
		},
	})
	require.NoError(t, err)

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      false,
		Write:       false,
		Plugins:     []api.Plugin{p},
	})
	require.Empty(t, result.Errors)
	require.Len(t, result.OutputFiles, 1)
	assert.True(t, strings.Contains(string(result.OutputFiles[0].Contents), "./foo.mjs"))
}
