// Package output renders command results as text tables, JSON or colored
// status lines depending on the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Renderer writes command output.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool

	success *color.Color
	warning *color.Color
	failure *color.Color
	muted   *color.Color
	header  *color.Color
}

// NewRenderer creates a renderer. Auto mode resolves to text on a terminal
// and JSON otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Renderer{
		out:     out,
		errOut:  errOut,
		mode:    mode,
		isTTY:   isTerminal(out),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		muted:   color.New(color.Faint),
		header:  color.New(color.Bold, color.FgCyan),
	}
	if !r.isTTY {
		for _, c := range []*color.Color{r.success, r.warning, r.failure, r.muted, r.header} {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// EffectiveMode resolves auto mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeJSON
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section title.
func (r *Renderer) Header(text string) {
	_, _ = r.header.Fprintln(r.out, text)
}

// Success writes a green status line.
func (r *Renderer) Success(format string, a ...any) {
	_, _ = r.success.Fprintf(r.out, "✓ "+format+"\n", a...)
}

// Warning writes a yellow status line to the error writer.
func (r *Renderer) Warning(format string, a ...any) {
	_, _ = r.warning.Fprintf(r.errOut, "! "+format+"\n", a...)
}

// Error writes a red status line to the error writer.
func (r *Renderer) Error(format string, a ...any) {
	_, _ = r.failure.Fprintf(r.errOut, "✗ "+format+"\n", a...)
}

// Muted writes a dim line.
func (r *Renderer) Muted(format string, a ...any) {
	_, _ = r.muted.Fprintf(r.out, format+"\n", a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rows under headers.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}
	t.Render()
}
