// Package report renders the course records of a run for people to read.
// Nothing here feeds back into the loop.
package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/seatsniper/seatsniper/internal/domain"
)

const headerText = "----- CURRENT ENROLLMENT STATUS -----"

// Render returns one "name [id] | STATUS" line per record, in record order
func Render(records []domain.CourseRecord) string {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Seconds renders a whole-second count with the right plural
func Seconds(n int) string {
	if n == 1 {
		return "1 second"
	}
	return strconv.Itoa(n) + " seconds"
}

// Renderer renders styled reports for a terminal
type Renderer struct {
	lg *lipgloss.Renderer

	bold   lipgloss.Style
	gray   lipgloss.Style
	green  lipgloss.Style
	yellow lipgloss.Style
	red    lipgloss.Style
	purple lipgloss.Style
}

// NewRenderer creates a Renderer for w. With color false every style
// degrades to plain text.
func NewRenderer(w io.Writer, color bool) *Renderer {
	lg := lipgloss.NewRenderer(w)
	if !color {
		lg.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		lg:     lg,
		bold:   lg.NewStyle().Bold(true),
		gray:   lg.NewStyle().Bold(true).Foreground(lipgloss.Color("8")),
		green:  lg.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		yellow: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		red:    lg.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		purple: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
	}
}

// Status renders an outcome label with its colour
func (r *Renderer) Status(o domain.Outcome) string {
	switch o.Kind {
	case domain.OutcomeUnavailable, domain.OutcomeNotFoundInResults:
		return r.gray.Render(o.Label())
	case domain.OutcomeEnrolled:
		return r.green.Render(o.Label())
	case domain.OutcomeWaitlisted:
		return r.yellow.Render("WAIT-LISTED:") + " Position #" + strconv.FormatUint(uint64(o.Position), 10)
	case domain.OutcomeFailed:
		return r.red.Render("FAILED:") + " " + o.Reason
	default:
		return o.Label()
	}
}

// Report renders the full status block with header and footer rules
func (r *Renderer) Report(records []domain.CourseRecord) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(r.bold.Render(headerText))
	b.WriteString("\n\n")

	for _, rec := range records {
		b.WriteString(rec.Name())
		b.WriteString(" [")
		b.WriteString(string(rec.ID))
		b.WriteString("] | ")
		b.WriteString(r.Status(rec.Status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(r.bold.Render(strings.Repeat("-", len(headerText))))
	b.WriteString("\n")
	return b.String()
}

// Emphasis renders text in bold
func (r *Renderer) Emphasis(s string) string {
	return r.bold.Render(s)
}

// Warning renders text in red
func (r *Renderer) Warning(s string) string {
	return r.red.Render(s)
}

// Highlight renders text in the countdown colour
func (r *Renderer) Highlight(s string) string {
	return r.purple.Render(s)
}
