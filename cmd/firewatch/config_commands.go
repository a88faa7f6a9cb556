package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/firewatch/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
	out        io.Writer
	in         io.Reader
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "show":
		return c.runShow(rest)
	case "path":
		return c.runPath()
	case "validate":
		return c.runValidate(rest)
	case "reset":
		return c.runReset(rest)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}

// runShow prints the effective configuration after file and environment
// overrides.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	format := fs.String("format", "yaml", "output format (yaml, json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var encode func(*config.Config) ([]byte, error)
	switch *format {
	case "yaml":
		encode = func(cfg *config.Config) ([]byte, error) { return yaml.Marshal(cfg) }
	case "json":
		encode = func(cfg *config.Config) ([]byte, error) { return json.MarshalIndent(cfg, "", "  ") }
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", *format)
	}

	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	data, err := encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Comments would break JSON consumers.
	if *format == "yaml" {
		fmt.Fprintf(c.out, "# Source: %s\n\n", c.source())
	}
	fmt.Fprintln(c.out, strings.TrimRight(string(data), "\n"))
	return nil
}

// runPath lists the files Load looks at, marking the ones that exist.
func (c *configCommand) runPath() error {
	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	for i, p := range config.SearchPaths() {
		state := "not found"
		if _, err := os.Stat(p); err == nil {
			state = "found"
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, state)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", c.source())
	return nil
}

// runValidate loads a configuration file and reports the watch settings it
// produces. The file defaults to the active configuration.
func (c *configCommand) runValidate(args []string) error {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := c.configPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return err
	}

	backend := cfg.Watch.Backend
	if backend == "" {
		backend = "platform default"
	}
	reload := "on"
	if !cfg.Watch.Reload {
		reload = "off"
	}

	fmt.Fprintf(c.out, "Configuration OK: %s\n", config.NewLoader(path).Path())
	fmt.Fprintf(c.out, "  mode %s, backend %s, reload %s, frame interval %v\n",
		cfg.Watch.Mode, backend, reload, cfg.Watch.FrameInterval)
	fmt.Fprintf(c.out, "  scenes %s %v, journal %s\n",
		cfg.Scenes.Dir, cfg.Scenes.Extensions, cfg.Storage.DBPath)
	return nil
}

// runReset writes the default configuration, asking before it replaces an
// existing file.
func (c *configCommand) runReset(args []string) error {
	fs := flag.NewFlagSet("config reset", flag.ContinueOnError)
	force := fs.Bool("force", false, "skip confirmation prompt")
	output := fs.String("output", config.DefaultConfigPath(), "output path for config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*output); err == nil && !*force && !c.confirm("Overwrite "+*output+"?") {
		fmt.Fprintln(c.out, "Reset cancelled.")
		return nil
	}

	if err := config.Save(config.Default(), *output); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Configuration reset to defaults at: %s\n", *output)
	return nil
}

// confirm asks a yes/no question on c.in. Anything but y or yes, including
// end of input, is a no.
func (c *configCommand) confirm(question string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(c.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// source names the active configuration file.
func (c *configCommand) source() string {
	if p := config.NewLoader(c.configPath).Path(); p != "" {
		return p
	}
	return "defaults (no config file found)"
}

func (c *configCommand) showHelp() error {
	fmt.Fprint(c.out, `Config - Configuration management

Usage:
  firewatch config <subcommand> [flags]

Subcommands:
  show              Display the effective configuration
  path              Show configuration file search paths
  validate [file]   Check a configuration file
  reset             Write the default configuration

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Reset Flags:
  -force    Skip confirmation prompt
  -output   Output path for config file

Examples:
  # Show the configuration as JSON
  firewatch config show -format json

  # Check a file before deploying it
  firewatch config validate ./firewatch.yaml

  # Reset without confirmation
  firewatch config reset -force
`)
	return nil
}
