// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter picks between JSON and a text rendering for command results.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a formatter. w is the default destination for Print
// and may be nil when callers always pass a writer to Emit.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, writer: w}
}

// Format returns the output format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Emit writes v to w as indented JSON, or calls text with w. A nil text
// falls back to the default text rendering of v.
func (f *Formatter) Emit(w io.Writer, v any, text func(io.Writer)) error {
	if f.IsJSON() {
		return writeJSON(w, v)
	}
	if text == nil {
		return writeText(w, v)
	}
	text(w)
	return nil
}

// Print writes v to the formatter's writer.
func (f *Formatter) Print(v any) error {
	return f.Emit(f.writer, v, nil)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText renders tables as tables and everything else on one line.
func writeText(w io.Writer, v any) error {
	if t, ok := v.(*Table); ok {
		return t.Render(w)
	}
	_, err := fmt.Fprintln(w, v)
	return err
}

// DetectFormat resolves FormatAuto: text on a terminal, JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f, ok := w.(*os.File); ok {
		if term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
			return FormatText
		}
	}
	return FormatJSON
}

// ParseFormat parses a format name. Unknown values select FormatAuto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		return FormatAuto
	}
}
