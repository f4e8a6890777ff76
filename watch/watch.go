// Package watch re-runs the rewrite engine whenever the bundler touches its
// output directory. Filesystem events arrive in bursts while a bundle is
// being written, so runs are debounced behind a quiet window.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/morganney/vite-plugin-specifier/engine"
	"github.com/morganney/vite-plugin-specifier/scanner"
	"github.com/morganney/vite-plugin-specifier/specifier"
)

// DefaultQuiet is how long the output directory must stay still before a
// run starts.
const DefaultQuiet = 300 * time.Millisecond

// Manifest produces the candidate filenames for one run, typically from a
// bundler metafile that is itself rewritten on every build.
type Manifest func() ([]string, error)

// Config describes one watch session.
type Config struct {
	// OutDir is the directory to watch and rewrite.
	OutDir string
	// Engine performs the runs. Required.
	Engine *engine.Engine
	// Manifest supplies candidate files per run. Nil scans the whole
	// output tree instead.
	Manifest Manifest
	// Quiet overrides the debounce window. Zero means DefaultQuiet.
	Quiet time.Duration
	// Logger defaults to a package logger when nil.
	Logger *log.Logger
}

// Daemon owns the watcher lifecycle. Create with New, then Start and
// eventually Stop.
type Daemon struct {
	outDir   string
	eng      *engine.Engine
	manifest Manifest
	quiet    time.Duration
	log      *log.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once

	mu   sync.Mutex
	runs int
}

// New validates the configuration and prepares a daemon. The watcher is not
// created until Start.
func New(cfg Config) (*Daemon, error) {
	if cfg.OutDir == "" {
		cfg.OutDir = "dist"
	}
	if cfg.Quiet <= 0 {
		cfg.Quiet = DefaultQuiet
	}
	if cfg.Logger == nil {
		cfg.Logger = log.With("component", "watch")
	}
	if cfg.Manifest == nil {
		outDir := cfg.OutDir
		cfg.Manifest = func() ([]string, error) {
			return scanner.ScanModules(outDir, scanner.LoadIgnore(outDir))
		}
	}
	return &Daemon{
		outDir:   cfg.OutDir,
		eng:      cfg.Engine,
		manifest: cfg.Manifest,
		quiet:    cfg.Quiet,
		log:      cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the output directory and every subdirectory beneath
// it, then spawns the event loop.
func (d *Daemon) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	d.watcher = watcher

	err = filepath.Walk(d.outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if scanner.IgnoredDirs[info.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return err
	}

	d.log.Info("watching", "dir", d.outDir, "quiet", d.quiet)
	d.wg.Add(1)
	go d.loop()
	return nil
}

// Stop shuts the event loop down and waits for an in-flight run to finish.
// Safe to call more than once.
func (d *Daemon) Stop() {
	d.stop.Do(func() {
		close(d.done)
		if d.watcher != nil {
			d.watcher.Close()
		}
	})
	d.wg.Wait()
}

// Runs reports how many engine runs have completed.
func (d *Daemon) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

func (d *Daemon) loop() {
	defer d.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !d.handle(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(d.quiet)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.quiet)
			}
			fire = timer.C
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("watch error", "err", err)
		case <-fire:
			fire = nil
			d.run()
			// Events caused by the run itself are discarded here. Any
			// straggler that arrives later triggers a redundant run,
			// which rewrites a settled tree to itself.
			d.drain()
		}
	}
}

// handle pre-processes one event: new directories join the watch set, and
// only module-file changes schedule a run.
func (d *Daemon) handle(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !scanner.IgnoredDirs[info.Name()] {
				if err := d.watcher.Add(ev.Name); err != nil {
					d.log.Warn("cannot watch new dir", "dir", ev.Name, "err", err)
				}
			}
			return false
		}
	}
	return specifier.IsScript(ev.Name) || specifier.IsDeclaration(ev.Name)
}

func (d *Daemon) run() {
	manifest, err := d.manifest()
	if err != nil {
		d.log.Error("manifest load failed", "err", err)
		return
	}

	_, rep, err := d.eng.Run(context.Background(), manifest)
	if err != nil {
		d.log.Error("run failed", "err", err)
		return
	}
	for _, f := range rep.Failures {
		d.log.Warn("specifier failure", "stage", f.Stage, "file", f.Filename, "err", f.Err)
	}
	d.log.Info("run complete", "rewritten", rep.Rewritten, "renamed", rep.Renamed, "failed", len(rep.Failures))

	d.mu.Lock()
	d.runs++
	d.mu.Unlock()
}

func (d *Daemon) drain() {
	for {
		select {
		case _, ok := <-d.watcher.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
