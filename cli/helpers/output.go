package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Output writes command results in the selected mode.
type Output struct {
	w     io.Writer
	mode  Mode
	title lipgloss.Style
	label lipgloss.Style
	muted lipgloss.Style
}

// NewOutput builds a writer for mode; styles are dropped when color is false.
func NewOutput(w io.Writer, mode Mode, color bool) *Output {
	o := &Output{
		w:     w,
		mode:  mode,
		title: lipgloss.NewStyle(),
		label: lipgloss.NewStyle(),
		muted: lipgloss.NewStyle(),
	}
	if color {
		o.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
		o.label = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
		o.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	}
	return o
}

func (o *Output) Mode() Mode { return o.mode }

func (o *Output) Writer() io.Writer { return o.w }

// JSON writes v indented.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Title writes a heading line.
func (o *Output) Title(format string, args ...any) {
	fmt.Fprintln(o.w, o.title.Render(fmt.Sprintf(format, args...)))
}

// Field writes an aligned "label: value" line.
func (o *Output) Field(label string, value any) {
	fmt.Fprintf(o.w, "  %s %v\n", o.label.Render(fmt.Sprintf("%-14s", label+":")), value)
}

// Muted writes secondary text.
func (o *Output) Muted(format string, args ...any) {
	fmt.Fprintln(o.w, o.muted.Render(fmt.Sprintf(format, args...)))
}

// Text writes s followed by a newline.
func (o *Output) Text(s string) {
	fmt.Fprintln(o.w, s)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
