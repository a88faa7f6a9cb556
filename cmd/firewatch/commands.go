package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xmhha/firewatch/pkg/config"
	"github.com/0xmhha/firewatch/pkg/display"
	"github.com/0xmhha/firewatch/pkg/firewatch"
	"github.com/0xmhha/firewatch/pkg/journal"
	"github.com/0xmhha/firewatch/pkg/logger"
	"github.com/0xmhha/firewatch/pkg/notifier"
	"github.com/0xmhha/firewatch/pkg/scene"
)

// errNoFiles is returned when watch has nothing to register.
var errNoFiles = errors.New("no files to watch")

// watchCommand registers files and reports every reload.
type watchCommand struct {
	configPath string
	mode       string
	fps        int
	dir        string
	exts       []string
	files      []string
	out        io.Writer
}

// parseWatchCommand parses watch flags and positional file arguments.
func parseWatchCommand(configPath string, args []string) (*watchCommand, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	mode := fs.String("mode", "", "dispatch mode (deferred, immediate)")
	fps := fs.Int("fps", 0, "frames per second of the deferred frame loop")
	dir := fs.String("dir", "", "scene directory scanned when no files are given")
	ext := fs.String("ext", "", "scene extensions (comma-separated)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *mode != "" {
		if _, err := firewatch.ParseMode(*mode); err != nil {
			return nil, err
		}
	}
	if *fps < 0 {
		return nil, fmt.Errorf("invalid -fps %d: must be >= 0 (0 uses the configured interval)", *fps)
	}

	return &watchCommand{
		configPath: configPath,
		mode:       strings.ToLower(*mode),
		fps:        *fps,
		dir:        *dir,
		exts:       splitList(*ext),
		files:      fs.Args(),
		out:        os.Stdout,
	}, nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// applyFlags overrides configuration values with command-line flags.
func (c *watchCommand) applyFlags(cfg *config.Config) {
	if c.mode != "" {
		cfg.Watch.Mode = c.mode
	}
	if c.fps > 0 {
		cfg.Watch.FrameInterval = time.Second / time.Duration(c.fps)
	}
	if c.dir != "" {
		cfg.Scenes.Dir = c.dir
	}
	if len(c.exts) > 0 {
		cfg.Scenes.Extensions = c.exts
	}
}

// Execute runs the watch command until ctx is cancelled.
func (c *watchCommand) Execute(ctx context.Context) error {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	files := c.files
	if len(files) == 0 {
		files, err = scene.Discover(cfg.Scenes.Dir, cfg.Scenes.Extensions)
		if err != nil {
			return fmt.Errorf("failed to discover scenes: %w", err)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %s has no files matching %v", errNoFiles, cfg.Scenes.Dir, cfg.Scenes.Extensions)
	}

	j, err := journal.New(journal.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			log.Error("failed to close journal", "error", err)
		}
	}()

	var reg *prometheus.Registry
	if cfg.Metrics.Addr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		stopMetrics, err := serveMetrics(cfg.Metrics.Addr, reg, log)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	opts := firewatch.Options{
		Logger: log,
		Notifier: notifier.Config{
			Backend:    cfg.Watch.Backend,
			BufferSize: cfg.Watch.BufferSize,
		},
		DisableReload: !cfg.Watch.Reload,
	}
	if reg != nil {
		opts.Registerer = reg
	}
	svc := firewatch.New(opts)
	defer func() {
		if err := svc.Shutdown(); err != nil {
			log.Error("failed to stop file watcher", "error", err)
		}
	}()

	rep := &reporter{out: c.out, journal: j, log: log}

	mode, _ := firewatch.ParseMode(cfg.Watch.Mode)
	rep.printf("Watching %d file(s) in %s mode - press Ctrl+C to stop\n", len(files), mode)
	if !cfg.Watch.Reload {
		rep.printf("Reloading is disabled, files are loaded once\n")
	}

	if mode == firewatch.Immediate {
		err = c.runImmediate(ctx, svc, files, rep)
	} else {
		err = c.runDeferred(ctx, svc, files, cfg.Watch.FrameInterval, rep, log)
	}
	if err != nil {
		return err
	}

	rep.printf("Stopping, %d reload(s) seen\n", rep.count())
	return nil
}

// runImmediate registers every file in Immediate mode and waits.
func (c *watchCommand) runImmediate(ctx context.Context, svc *firewatch.Service, files []string, rep *reporter) error {
	h := firewatch.HandlerFunc(func(path string, _ uint64) {
		info, err := os.Stat(path)
		if err != nil {
			rep.reloaded(path, 0, 0, err)
			return
		}
		rep.reloaded(path, 0, info.Size(), nil)
	})

	for i, path := range files {
		if err := svc.Register(path, uint64(i), h, firewatch.Immediate); err != nil {
			if errors.Is(err, firewatch.ErrResourceInit) {
				return err
			}
			rep.log.Warn("file not registered", "path", path, "error", err)
		}
	}

	<-ctx.Done()
	return nil
}

// runDeferred loads every file as a scene and drives the frame loop.
func (c *watchCommand) runDeferred(
	ctx context.Context,
	svc *firewatch.Service,
	files []string,
	interval time.Duration,
	rep *reporter,
	log logger.Logger,
) error {
	loader := scene.NewLoader(svc, scene.Config{
		OnReload: func(s scene.Scene, err error) {
			rep.reloaded(s.Path, s.Version, int64(len(s.Source)), err)
		},
	}, log)

	for _, path := range files {
		if _, err := loader.Add(path); err != nil {
			if errors.Is(err, firewatch.ErrResourceInit) {
				return err
			}
			log.Warn("scene not added", "path", path, "error", err)
		}
	}

	return loader.Run(ctx, interval, nil)
}

// reporter prints reloads and records them in the journal. Immediate
// handlers call it from the event loop goroutine.
type reporter struct {
	mu      sync.Mutex
	out     io.Writer
	journal journal.Journal
	log     logger.Logger
	reloads int
}

func (r *reporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *reporter) reloaded(path string, version int, size int64, loadErr error) {
	if err := r.journal.Record(path, size, loadErr); err != nil {
		r.log.Error("failed to record reload", "path", path, "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reloads++
	stamp := time.Now().Format("15:04:05")
	switch {
	case loadErr != nil:
		fmt.Fprintf(r.out, "%s  %-40s  error: %v\n", stamp, path, loadErr)
	case version > 0:
		fmt.Fprintf(r.out, "%s  %-40s  v%d  %s\n", stamp, path, version, humanize.Bytes(uint64(size)))
	default:
		fmt.Fprintf(r.out, "%s  %-40s  %s\n", stamp, path, humanize.Bytes(uint64(size)))
	}
}

func (r *reporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// serveMetrics exposes reg on addr under /metrics. The returned function
// stops the server.
func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("failed to stop metrics server", "error", err)
		}
	}, nil
}

// historyCommand prints the reload journal.
type historyCommand struct {
	configPath string
	format     string
	compact    bool
	summary    bool
	clear      bool
	out        io.Writer
}

// parseHistoryCommand parses history flags. A leading "clear" argument
// selects the clear subcommand.
func parseHistoryCommand(configPath string, args []string) (*historyCommand, error) {
	cmd := &historyCommand{configPath: configPath, out: os.Stdout}
	if len(args) > 0 && args[0] == "clear" {
		cmd.clear = true
		args = args[1:]
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	format := fs.String("format", "table", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	summary := fs.Bool("summary", false, "show totals instead of per-file history")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if _, err := display.ParseFormat(*format); err != nil {
		return nil, err
	}

	cmd.format = *format
	cmd.compact = *compact
	cmd.summary = *summary
	return cmd, nil
}

// Execute runs the history command.
func (c *historyCommand) Execute() error {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  "error",
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	j, err := journal.New(journal.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			log.Error("failed to close journal", "error", err)
		}
	}()

	if c.clear {
		if err := j.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintln(c.out, "Reload history cleared.")
		return nil
	}

	entries, err := j.List()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	format, _ := display.ParseFormat(c.format)
	formatter := display.New(display.Config{
		Format:  format,
		Compact: c.compact,
	})

	if c.summary {
		return formatter.FormatSummary(c.out, display.Summarize(entries))
	}
	return formatter.FormatHistory(c.out, entries)
}
