// Package cmd implements the specifier command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/morganney/vite-plugin-specifier/bundler"
	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/report"
	"github.com/morganney/vite-plugin-specifier/scanner"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "specifier [out-dir]",
	Short: "Rewrite module specifiers and file extensions in bundler output",
	Long: `specifier rewrites import and export specifiers in bundled JavaScript
and TypeScript output, renames file extensions (for example .js to .mjs),
and can emit dual .d.mts/.d.cts declaration files from a single .d.ts.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRewrite,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .specifier.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringP("out-dir", "o", "dist", "bundler output directory")
	rootCmd.PersistentFlags().StringToString("ext-map", nil, "extension targets, e.g. --ext-map .js=.mjs or .js=dual")
	rootCmd.PersistentFlags().StringToString("map", nil, "exact specifier replacements, e.g. --map ./a.js=./b.mjs")
	rootCmd.PersistentFlags().String("manifest", "", "esbuild metafile listing the output files to rewrite")
	rootCmd.PersistentFlags().Bool("write", true, "persist rewritten files")

	viper.BindPFlag("outDir", rootCmd.PersistentFlags().Lookup("out-dir"))
	viper.BindPFlag("extMap", rootCmd.PersistentFlags().Lookup("ext-map"))
	viper.BindPFlag("map", rootCmd.PersistentFlags().Lookup("map"))
	viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	viper.BindPFlag("write", rootCmd.PersistentFlags().Lookup("write"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".specifier")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("SPECIFIER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug("loaded config", "file", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Error("cannot read config", "file", cfgFile, "err", err)
		os.Exit(1)
	}

	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func runRewrite(cmd *cobra.Command, args []string) error {
	opts := optionsFrom(viper.GetViper())
	// A positional directory overrides the flag and config file.
	if len(args) > 0 {
		opts.OutDir = args[0]
	}
	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	manifest, err := loadManifest(viper.GetString("manifest"), opts)
	if err != nil {
		return err
	}

	_, rep, err := eng.Run(cmd.Context(), manifest)
	if err != nil {
		return err
	}

	report.Summary(cmd.OutOrStdout(), rep, report.IsTerminal(), report.TerminalWidth())
	if rep.Failed() {
		return fmt.Errorf("%d file(s) failed", len(rep.Failures))
	}
	return nil
}

// loadManifest resolves the candidate file list: the metafile when one is
// configured, the whole output tree otherwise.
func loadManifest(metafile string, opts engine.Options) ([]string, error) {
	if metafile != "" {
		meta, err := bundler.LoadMetafile(metafile)
		if err != nil {
			return nil, err
		}
		return meta.OutputFiles(), nil
	}
	return scanner.ScanModules(opts.OutDir, opts.Ignore)
}
