package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrEntryNotFound is returned when a path has no recorded history.
	ErrEntryNotFound = errors.New("no reload history for path")

	// ErrEmptyPath is returned when a path is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyDBPath is returned when no database path is configured.
	ErrEmptyDBPath = errors.New("database path cannot be empty")
)
