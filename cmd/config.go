package cmd

import (
	"github.com/charmbracelet/log"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/viper"

	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/scanner"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// optionsFrom maps the resolved configuration (flags, config file, env) to
// engine options. Validation happens in engine.New, not here.
func optionsFrom(v *viper.Viper) engine.Options {
	opts := engine.Options{
		OutDir: v.GetString("outDir"),
		Write:  v.GetBool("write"),
		Logger: log.With("component", "cli"),
	}
	if opts.OutDir == "" {
		opts.OutDir = "dist"
	}

	if m := v.GetStringMapString("extMap"); len(m) > 0 {
		em := make(specifier.ExtMap, len(m))
		for k, t := range m {
			em[specifier.Ext(k)] = specifier.Target(t)
		}
		opts.ExtMap = em
	}
	if m := v.GetStringMapString("map"); len(m) > 0 {
		opts.Map = specifier.LiteralMap(m)
	}

	// Explicit exclude patterns in the config win over ignore files
	// found in the output directory.
	if lines := v.GetStringSlice("exclude"); len(lines) > 0 {
		opts.Ignore = ignore.CompileIgnoreLines(lines...)
	} else {
		opts.Ignore = scanner.LoadIgnore(opts.OutDir)
	}
	return opts
}
