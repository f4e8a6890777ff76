package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/rewriter"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// Hook names the lifecycle point the plugin attaches to.
type Hook string

const (
	// HookTransform rewrites each module's source as the bundler loads it.
	HookTransform Hook = "transform"
	// HookPostWrite runs the full engine once the bundle is on disk,
	// using the metafile as the manifest. This is the default: extension
	// renaming and dual emission need finished output files.
	HookPostWrite Hook = "post-write"
)

// Config wires engine options to an esbuild build.
type Config struct {
	engine.Options
	Hook Hook
}

// moduleFilter matches every loadable module the transform hook cares about.
const moduleFilter = `\.(js|jsx|ts|tsx|mjs|cjs|mts|cts)$`

// Plugin builds an esbuild plugin for the configured lifecycle point.
// Configuration problems surface here, before the build starts.
func Plugin(cfg Config) (api.Plugin, error) {
	if cfg.Hook == "" {
		cfg.Hook = HookPostWrite
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.With("component", "bundler")
	}

	// Engine construction validates the ExtMap and compiles patterns
	// eagerly for both hooks.
	eng, err := engine.New(cfg.Options)
	if err != nil {
		return api.Plugin{}, err
	}

	switch cfg.Hook {
	case HookTransform:
		return transformPlugin(cfg, logger)
	case HookPostWrite:
		return postWritePlugin(eng, logger), nil
	default:
		return api.Plugin{}, fmt.Errorf("unknown hook %q", cfg.Hook)
	}
}

// transformPlugin rewrites specifiers in-memory while modules load. Renaming
// is out of scope at this point; only the matcher pass applies. A file that
// fails to rewrite passes through unchanged, matching the engine's
// containment policy.
func transformPlugin(cfg Config, logger *log.Logger) (api.Plugin, error) {
	matcher := specifier.Updater(specifier.HandlerFunc(specifier.NoChange))
	if cfg.Handler != nil {
		matcher = cfg.Handler
	} else if len(cfg.ExtMap) > 0 {
		rules, err := cfg.ExtMap.Compile()
		if err != nil {
			return api.Plugin{}, err
		}
		matcher = rules
	}
	fn, err := matcher.Normalize()
	if err != nil {
		return api.Plugin{}, err
	}
	literal, err := cfg.Map.Normalize()
	if err != nil {
		return api.Plugin{}, err
	}

	combined := specifier.HandlerFunc(func(o specifier.Occurrence) (string, bool) {
		if v, ok := fn(o); ok {
			return v, true
		}
		return literal(o)
	})

	return api.Plugin{
		Name: "specifier",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: moduleFilter}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				dialect, isDecl := specifier.Classify(args.Path)
				code, err := rewriter.UpdateSource(context.Background(), src, combined, rewriter.Options{
					Dialect:       dialect,
					IsDeclaration: isDecl,
				})
				if err != nil {
					// Let esbuild parse the original; it reports its own errors.
					logger.Warn("transform rewrite failed", "file", args.Path, "err", err)
					return api.OnLoadResult{}, nil
				}
				return api.OnLoadResult{Contents: &code, Loader: loaderFor(dialect)}, nil
			})
		},
	}, nil
}

// postWritePlugin runs the engine from OnEnd with the metafile as manifest.
// The build must enable Metafile and Write for this hook to see output
// files.
func postWritePlugin(eng *engine.Engine, logger *log.Logger) api.Plugin {
	return api.Plugin{
		Name: "specifier",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				if result.Metafile == "" {
					return api.OnEndResult{}, fmt.Errorf("specifier: post-write hook needs Metafile: true")
				}
				meta, err := ParseMetafile([]byte(result.Metafile))
				if err != nil {
					return api.OnEndResult{}, err
				}

				// Metafile paths are relative to the working directory,
				// not the output directory.
				manifest := make([]string, 0, len(meta.Outputs))
				for _, f := range meta.OutputFiles() {
					abs, err := filepath.Abs(f)
					if err != nil {
						return api.OnEndResult{}, err
					}
					manifest = append(manifest, abs)
				}

				_, rep, err := eng.Run(context.Background(), manifest)
				if err != nil {
					return api.OnEndResult{}, err
				}
				for _, f := range rep.Failures {
					logger.Warn("specifier failure", "stage", f.Stage, "file", f.Filename, "err", f.Err)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func loaderFor(d specifier.Dialect) api.Loader {
	switch d {
	case specifier.DialectTS, specifier.DialectDTS:
		return api.LoaderTS
	case specifier.DialectTSX:
		return api.LoaderTSX
	case specifier.DialectJSX:
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}
