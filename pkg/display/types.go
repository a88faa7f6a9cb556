// Package display provides output formatting for reload history.
//
// It supports multiple output formats (table, JSON, simple text)
// for the entries kept by the journal package.
package display

import (
	"fmt"
	"io"
	"time"

	"github.com/0xmhha/firewatch/pkg/journal"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays history in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays history as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays history as one line per file.
	FormatSimple Format = "simple"
)

// ParseFormat validates a format name. An empty name selects FormatTable.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatSimple:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Formatter formats and displays reload history.
type Formatter interface {
	// FormatHistory writes one record per journal entry, in the order given.
	FormatHistory(w io.Writer, entries []*journal.Entry) error

	// FormatSummary writes totals across all entries.
	FormatSummary(w io.Writer, summary Summary) error
}

// Summary aggregates reload history across files.
type Summary struct {
	Files      int       `json:"files"`
	Reloads    int       `json:"reloads"`
	Failures   int       `json:"failures"`
	Failing    int       `json:"failing"`
	LastReload time.Time `json:"last_reload"`
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps adds absolute times next to relative ones.
	// Default: false.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// Now is the reference time for relative timestamps.
	// Default: time.Now.
	Now func() time.Time
}
