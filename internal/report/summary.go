package report

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "summary.header", "%s: %d trials per scenario, seed %d")
	message.SetString(lang, "summary.value", "  %s = %.2f")
	message.SetString(lang, "summary.field", "  %s [%s] = %.2f")
	message.SetString(lang, "summary.text", "  %s = %s")
}

// Localizer is the minimal message-printer contract required by the summary.
type Localizer interface {
	Fprintf(w io.Writer, key message.Reference, args ...any) (int, error)
}

// NewPrinter returns a printer for tag, falling back to English.
func NewPrinter(tag language.Tag) *message.Printer {
	if tag == language.Und {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Header describes the run a summary belongs to.
type Header struct {
	Title  string
	Trials int
	Seed   uint64
}

// WriteSummary writes one localized line per leaf value under root.
func WriteSummary(w io.Writer, loc Localizer, header Header, root *Node) error {
	return WriteEntries(w, loc, header, Flatten(root))
}

// WriteEntries writes the header and one localized line per entry.
func WriteEntries(w io.Writer, loc Localizer, header Header, entries []Entry) error {
	if loc == nil {
		loc = NewPrinter(language.English)
	}
	if _, err := loc.Fprintf(w, "summary.header", header.Title, header.Trials, header.Seed); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, entry := range entries {
		var err error
		switch {
		case entry.Text != "":
			_, err = loc.Fprintf(w, "summary.text", entry.Path, entry.Text)
		case entry.Label != "":
			_, err = loc.Fprintf(w, "summary.field", entry.Path, entry.Label, entry.Value)
		default:
			_, err = loc.Fprintf(w, "summary.value", entry.Path, entry.Value)
		}
		if err != nil {
			return fmt.Errorf("write summary line: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("write summary line: %w", err)
		}
	}
	return nil
}
