// Package output renders command results for terminals, scripts, and
// agents.
//
// Mode auto picks styled text when standard output is a color terminal
// and markdown when piped, so scripted callers get stable, parseable
// output without asking for it.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes formatted command output.
type Renderer struct {
	out       io.Writer
	errOut    io.Writer
	mode      Mode
	effective Mode
	term      *termenv.Output
}

// NewRenderer creates a renderer for the given writers and mode. ModeAuto
// (or any unknown mode) resolves to text on a color terminal and markdown
// otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	term := termenv.NewOutput(out)

	effective := mode
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		if term.ColorProfile() != termenv.Ascii {
			effective = ModeText
		} else {
			effective = ModeMarkdown
		}
	}

	return &Renderer{out: out, errOut: errOut, mode: mode, effective: effective, term: term}
}

// EffectiveMode returns the resolved mode after auto-detection.
func (r *Renderer) EffectiveMode() Mode {
	return r.effective
}

// Writer returns the underlying output writer, for encoders that need it.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the underlying error writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Println writes a plain line.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header prints a section heading: bold in text mode, hash-prefixed in
// markdown mode.
func (r *Renderer) Header(level int, text string) {
	if r.effective == ModeText {
		_, _ = fmt.Fprintln(r.out, r.term.String(text).Bold().String())
		return
	}
	_, _ = fmt.Fprintln(r.out, FormatHeader(level, text))
}

// Success prints a confirmation line.
func (r *Renderer) Success(text string) {
	line := "✓ " + text
	if r.effective == ModeText {
		_, _ = fmt.Fprintln(r.out, r.term.String(line).Foreground(r.term.Color("2")).String())
		return
	}
	_, _ = fmt.Fprintln(r.out, line)
}

// StatusLine prints one per-item progress line. Recognized statuses are
// success, failed, and skipped; anything else renders neutrally.
func (r *Renderer) StatusLine(name, status, detail string) {
	symbol, color := "•", "6"
	switch status {
	case "success":
		symbol, color = "✓", "2"
	case "failed":
		symbol, color = "✗", "1"
	case "skipped":
		symbol, color = "-", "3"
	}

	line := symbol + " " + name
	if detail != "" {
		line += "  " + detail
	}
	if r.effective == ModeText {
		_, _ = fmt.Fprintln(r.out, r.term.String(line).Foreground(r.term.Color(color)).String())
		return
	}
	_, _ = fmt.Fprintln(r.out, line)
}

// Table renders tabular data: rounded boxes in text mode, pipe tables in
// markdown mode.
func (r *Renderer) Table(header []string, rows [][]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.AppendHeader(toRow(header))
	for _, row := range rows {
		tw.AppendRow(toRow(row))
	}

	if r.effective == ModeText {
		tw.SetStyle(table.StyleRounded)
		tw.Render()
		return
	}
	tw.RenderMarkdown()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown key-value bullet.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
