// Package main provides the firewatch CLI application.
//
// Firewatch watches files for changes and reloads them while a program is
// running. The CLI registers files or a directory of scenes, logs every
// reload, and keeps a reload history in a local journal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// version is set during build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("firewatch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return showUsage(out)
		}
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "firewatch %s\n", version)
		return nil
	}

	args = fs.Args()
	if len(args) == 0 {
		return showUsage(out)
	}

	command, rest := args[0], args[1:]

	switch command {
	case "watch":
		cmd, err := parseWatchCommand(*configPath, rest)
		if err != nil {
			return err
		}
		cmd.out = out
		return cmd.Execute(ctx)
	case "history":
		cmd, err := parseHistoryCommand(*configPath, rest)
		if err != nil {
			return err
		}
		cmd.out = out
		return cmd.Execute()
	case "config":
		cmd := &configCommand{configPath: *configPath, out: out, in: os.Stdin}
		return cmd.Execute(rest)
	case "help":
		return showUsage(out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage displays usage information.
func showUsage(w io.Writer) error {
	usage := `Firewatch - hot-reload file watcher

Usage:
  firewatch [flags] <command> [command flags]

Commands:
  watch       Watch files or a scene directory and reload on change
  history     Show the reload history (history clear empties it)
  config      Configuration management (show, path, validate, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Watch Command Flags:
  -mode       Dispatch mode (deferred, immediate)
  -fps        Frames per second of the deferred frame loop
  -dir        Scene directory scanned when no files are given
  -ext        Scene extensions (comma-separated, e.g. .frag,.glsl)

History Command Flags:
  -format     Output format (table, json, simple)
  -compact    Compact output
  -summary    Show totals instead of per-file history

Examples:
  # Watch every scene in ./scenes and apply changes once per frame
  firewatch watch

  # Watch two config files and reload as soon as they change
  firewatch watch -mode immediate config/app.yaml config/db.yaml

  # Watch GLSL sources in another directory at 30 frames per second
  firewatch watch -dir ~/shaders -ext .glsl -fps 30

  # Show reload history as JSON
  firewatch history -format json

  # Forget all recorded reloads
  firewatch history clear

Environment:
  FIREWATCH_NO_RELOAD   Load files once and do not watch them

Version: %s
`

	fmt.Fprintf(w, usage, version)
	return nil
}
