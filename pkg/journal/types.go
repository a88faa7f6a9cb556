// Package journal keeps a persistent history of file reloads.
//
// Every time a watched file is reloaded the CLI records it here, so that
// `firewatch history` can show which files changed, how often, and whether
// the last load succeeded.
//
// Example usage:
//
//	j, err := journal.New(journal.Config{
//	    DBPath: "~/.config/firewatch/journal.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	if err := j.Record("shaders/main.frag", 2048, nil); err != nil {
//	    log.Fatal(err)
//	}
package journal

import "time"

// Entry is the reload history of one file.
type Entry struct {
	// Path is the file path as it was registered.
	Path string `json:"path"`

	// Reloads counts every recorded load, including failed ones.
	Reloads int `json:"reloads"`

	// Failures counts loads that ended in an error.
	Failures int `json:"failures"`

	// FirstSeen is the time of the first recorded load.
	FirstSeen time.Time `json:"first_seen"`

	// LastReload is the time of the most recent load.
	LastReload time.Time `json:"last_reload"`

	// LastSize is the file size in bytes after the last successful load.
	LastSize int64 `json:"last_size"`

	// LastError is the error text of the most recent load, empty on success.
	LastError string `json:"last_error,omitempty"`
}

// Journal records and queries reload history.
type Journal interface {
	// Record adds one load of path. size is ignored when loadErr is set.
	Record(path string, size int64, loadErr error) error

	// Get returns the history of path, or ErrEntryNotFound.
	Get(path string) (*Entry, error)

	// List returns every entry, most recently reloaded first.
	List() ([]*Entry, error)

	// Clear removes every entry.
	Clear() error

	// Close closes the database.
	Close() error
}

// Config contains journal configuration.
type Config struct {
	// DBPath is the BoltDB file path. A leading ~ is expanded.
	DBPath string

	// Timeout is how long to wait for the database file lock (default: 1 second).
	Timeout time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}
