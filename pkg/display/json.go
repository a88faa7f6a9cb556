package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/firewatch/pkg/journal"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return f.encoder(w).Encode(entries)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, summary Summary) error {
	return f.encoder(w).Encode(summary)
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
