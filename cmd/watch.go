package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/morganney/vite-plugin-specifier/bundler"
	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/watch"
)

var (
	watchDetach bool
	watchStop   bool
	watchStatus bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the output directory and rewrite after each rebuild",
	Long: `watch keeps the rewrite rules applied while a bundler runs in watch
mode: every time the output directory settles after a burst of writes, the
configured passes run again. Use --detach to keep it running in the
background and --stop to terminate a detached watcher.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&watchDetach, "detach", "d", false, "run in the background")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop a detached watcher")
	watchCmd.Flags().BoolVar(&watchStatus, "status", false, "report whether a detached watcher is running")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts := optionsFrom(viper.GetViper())

	if watchStop {
		if err := watch.Stop(opts.OutDir); err != nil {
			return fmt.Errorf("stop watcher: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "watcher stopped")
		return nil
	}
	if watchStatus {
		if watch.IsRunning(opts.OutDir) {
			pid, _ := watch.ReadPID(opts.OutDir)
			fmt.Fprintf(cmd.OutOrStdout(), "watcher running (pid %d)\n", pid)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "watcher not running")
		}
		return nil
	}
	if watchDetach {
		return detach(cmd, opts)
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	var manifest watch.Manifest
	if metafile := viper.GetString("manifest"); metafile != "" {
		manifest = func() ([]string, error) {
			meta, err := bundler.LoadMetafile(metafile)
			if err != nil {
				return nil, err
			}
			return meta.OutputFiles(), nil
		}
	}

	d, err := watch.New(watch.Config{
		OutDir:   opts.OutDir,
		Engine:   eng,
		Manifest: manifest,
		Logger:   opts.Logger,
	})
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	d.Stop()
	return watch.RemovePID(opts.OutDir)
}

// detach re-executes the watch command without --detach as a session leader
// and records its pid next to the output.
func detach(cmd *cobra.Command, opts engine.Options) error {
	if watch.IsRunning(opts.OutDir) {
		pid, _ := watch.ReadPID(opts.OutDir)
		return fmt.Errorf("watcher already running (pid %d)", pid)
	}

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a == "--detach" || a == "-d" {
			continue
		}
		args = append(args, a)
	}

	child := exec.Command(os.Args[0], args...)
	child.Stdout = nil
	child.Stderr = nil
	setSysProcAttr(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watch.WritePID(opts.OutDir, child.Process.Pid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "watcher started (pid %d)\n", child.Process.Pid)
	return nil
}
