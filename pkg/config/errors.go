package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidBackend is returned when the notification backend is not recognized.
	ErrInvalidBackend = errors.New("invalid watch backend: must be empty, inotify, or fsnotify")

	// ErrInvalidMode is returned when the dispatch mode is not recognized.
	ErrInvalidMode = errors.New("invalid watch mode: must be deferred or immediate")

	// ErrInvalidFrameInterval is returned when the frame interval is <= 0.
	ErrInvalidFrameInterval = errors.New("invalid frame interval: must be > 0")

	// ErrInvalidBufferSize is returned when the buffer size is <= 0.
	ErrInvalidBufferSize = errors.New("invalid buffer size: must be > 0")

	// ErrEmptyDBPath is returned when no journal path is configured.
	ErrEmptyDBPath = errors.New("storage db_path cannot be empty")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
