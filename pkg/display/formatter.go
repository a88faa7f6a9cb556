package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/0xmhha/firewatch/pkg/journal"
)

const timestampLayout = "2006-01-02 15:04:05"

// New creates a new formatter based on configuration.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// Summarize computes totals over entries.
func Summarize(entries []*journal.Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Files++
		s.Reloads += e.Reloads
		s.Failures += e.Failures
		if e.LastError != "" {
			s.Failing++
		}
		if e.LastReload.After(s.LastReload) {
			s.LastReload = e.LastReload
		}
	}
	return s
}

// relative renders t relative to the configured clock, e.g. "3 minutes ago".
func relative(cfg Config, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	rel := humanize.RelTime(t, cfg.Now(), "ago", "from now")
	if cfg.ShowTimestamps {
		return fmt.Sprintf("%s (%s)", rel, t.Format(timestampLayout))
	}
	return rel
}

// size renders a byte count, e.g. "2.0 kB".
func size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// status describes the outcome of the last load.
func status(e *journal.Entry) string {
	if e.LastError == "" {
		return "ok"
	}
	return "error: " + e.LastError
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}
