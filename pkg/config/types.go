// Package config provides configuration management for firewatch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Scene dir: %s\n", cfg.Scenes.Dir)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Watch.Backend is empty, inotify or fsnotify
// - Watch.Mode is deferred or immediate
// - Watch.FrameInterval must be > 0
// - Watch.BufferSize must be > 0
// - Storage.DBPath must not be empty.
type Config struct {
	// File watching settings
	Watch WatchConfig `yaml:"watch"`

	// Scene discovery settings
	Scenes SceneConfig `yaml:"scenes"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Metrics settings
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Notification backend (empty picks the platform default)
	Backend string `yaml:"backend"`

	// Dispatch mode (deferred, immediate)
	Mode string `yaml:"mode"`

	// Watch files for changes after the initial load
	Reload bool `yaml:"reload"`

	// How often the frame loop applies deferred reloads
	FrameInterval time.Duration `yaml:"frame_interval"`

	// Capacity of the notification batch channel
	BufferSize int `yaml:"buffer_size"`
}

// SceneConfig contains scene discovery settings.
type SceneConfig struct {
	// Directory scanned when no files are given on the command line
	Dir string `yaml:"dir"`

	// File extensions to pick up (all files when empty)
	Extensions []string `yaml:"extensions"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to the BoltDB reload journal
	DBPath string `yaml:"db_path"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	// Listen address for /metrics (disabled when empty)
	Addr string `yaml:"addr"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json, auto)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	validBackends := map[string]bool{
		"":         true,
		"inotify":  true,
		"fsnotify": true,
	}
	if !validBackends[c.Watch.Backend] {
		return ErrInvalidBackend
	}

	validModes := map[string]bool{
		"deferred":  true,
		"immediate": true,
	}
	if !validModes[c.Watch.Mode] {
		return ErrInvalidMode
	}

	if c.Watch.FrameInterval <= 0 {
		return ErrInvalidFrameInterval
	}
	if c.Watch.BufferSize <= 0 {
		return ErrInvalidBufferSize
	}

	if c.Storage.DBPath == "" {
		return ErrEmptyDBPath
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Backend:       "",
			Mode:          "deferred",
			Reload:        true,
			FrameInterval: 16 * time.Millisecond,
			BufferSize:    16,
		},
		Scenes: SceneConfig{
			Dir:        "./scenes",
			Extensions: []string{".frag", ".glsl"},
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "auto",
		},
	}
}
