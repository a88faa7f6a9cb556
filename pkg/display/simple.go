package display

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/0xmhha/firewatch/pkg/journal"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s: %s reloads, %s, last %s, %s\n",
			e.Path,
			humanize.Comma(int64(e.Reloads)),
			size(e.LastSize),
			relative(f.config, e.LastReload),
			status(e)); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Files: %d | Reloads: %s | Failures: %s | Failing now: %d | Last: %s\n",
		s.Files,
		humanize.Comma(int64(s.Reloads)),
		humanize.Comma(int64(s.Failures)),
		s.Failing,
		relative(f.config, s.LastReload))
	return err
}
