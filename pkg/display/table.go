package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/0xmhha/firewatch/pkg/journal"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	if err := writeHeader(w, "Reload History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"File", "Reloads", "Failures", "Size", "Last Reload", "Status"}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.Path,
			humanize.Comma(int64(e.Reloads)),
			humanize.Comma(int64(e.Failures)),
			size(e.LastSize),
			relative(f.config, e.LastReload),
			status(e),
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, s Summary) error {
	if err := writeHeader(w, "Reload Summary", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Files", humanize.Comma(int64(s.Files))},
		{"Reloads", humanize.Comma(int64(s.Reloads))},
		{"Failures", humanize.Comma(int64(s.Failures))},
		{"Failing Now", humanize.Comma(int64(s.Failing))},
		{"Last Reload", relative(f.config, s.LastReload)},
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No reloads recorded")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row. The last cell is not padded.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		fmt.Fprintf(&b, "%-*s", widths[i], cell)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
