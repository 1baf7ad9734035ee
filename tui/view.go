package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	enrolledStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	waitlistedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	countdownStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("141"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" seatsniper │ Round: %d │ %s │ Elapsed: %s%s │ Pending: %d/%d ",
		m.round, m.stateLabel(), formatDuration(m.elapsed()), m.limitLabel(), m.pending, len(m.records))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var section string
	switch m.activeTab {
	case tabEvents:
		section = m.renderEvents()
	default:
		section = m.renderCourses()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(section))
	b.WriteString("\n")

	if m.counting {
		b.WriteString(countdownStyle.Render(fmt.Sprintf("  Waiting for %s before next attempt...", report.Seconds(m.countdown))))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString(m.renderOutcome())
		b.WriteString("\n")
	}

	b.WriteString(statusBarStyle.Width(m.width).Render(m.helpLine()))
	return b.String()
}

func (m Model) stateLabel() string {
	if m.result != nil {
		return "finished"
	}
	if m.round == 0 {
		return "starting"
	}
	return m.state.String()
}

func (m Model) limitLabel() string {
	if !m.cfg.Bounded() {
		return ""
	}
	return " / " + formatDuration(m.cfg.MaxDuration())
}

func (m Model) helpLine() string {
	switch {
	case m.result != nil:
		return " q: exit │ tab: switch view"
	case m.quitting:
		return " stopping after the current step..."
	default:
		return " q: stop run │ tab: switch view"
	}
}

func (m Model) renderTabs() string {
	tabs := []string{"Courses", "Events"}
	var parts []string

	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderCourses() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("COURSES"))
	b.WriteString("\n")

	if len(m.records) == 0 {
		b.WriteString(dimmedStyle.Render("  No courses"))
		return b.String()
	}

	for _, rec := range m.records {
		line := fmt.Sprintf("  %-10s %-32s ", rec.ID, truncate(rec.Name(), 32))
		b.WriteString(line)
		b.WriteString(statusStyle(rec.Status).Render(rec.Status.Label()))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderEvents() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("EVENTS"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString(dimmedStyle.Render("  No course updates yet"))
		return b.String()
	}

	// newest first, limited to what fits
	limit := len(m.events)
	if m.height > 8 && limit > m.height-8 {
		limit = m.height - 8
	}
	for i := len(m.events) - 1; i >= len(m.events)-limit; i-- {
		ev := m.events[i]
		line := fmt.Sprintf("  #%-3d %-10s ", ev.Round, ev.Record.ID)
		b.WriteString(line)
		b.WriteString(statusStyle(ev.Record.Status).Render(ev.Record.Status.Label()))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderOutcome() string {
	res := m.result
	summary := fmt.Sprintf("  %d round(s) in %s", res.Rounds, res.Elapsed().Round(time.Second))

	switch res.Outcome.Kind {
	case domain.RunSuccess:
		return enrolledStyle.Render("  Success! You were enrolled/waitlisted in all courses.") + "\n" + summary
	case domain.RunTimeout:
		return waitlistedStyle.Render("  Max time exceeded.") + "\n" + summary
	default:
		return failedStyle.Render("  Run aborted: "+res.Outcome.Reason) + "\n" + summary
	}
}

func statusStyle(o domain.Outcome) lipgloss.Style {
	switch o.Kind {
	case domain.OutcomeEnrolled:
		return enrolledStyle
	case domain.OutcomeWaitlisted:
		return waitlistedStyle
	case domain.OutcomeFailed:
		return failedStyle
	default:
		return dimmedStyle
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
