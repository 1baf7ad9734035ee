package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/seatsniper/seatsniper/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.result != nil {
				return m, tea.Quit
			}
			// the run reports back through FinishedMsg before we exit
			if !m.quitting && m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			if m.cancel == nil {
				return m, tea.Quit
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "c":
			m.activeTab = tabCourses
		case "e":
			m.activeTab = tabEvents
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		if m.result != nil {
			return m, nil
		}
		return m, tickCmd()

	case RunStartedMsg:
		m.runID = msg.Info.RunID
		m.cfg = msg.Info.Config
		m.started = msg.Info.StartedAt
		m.records = make([]domain.CourseRecord, len(msg.Info.Courses))
		for i, id := range msg.Info.Courses {
			m.records[i] = domain.CourseRecord{ID: id}
		}
		m.pending = len(m.records)

	case StateMsg:
		m.round = msg.Round
		m.state = msg.State

	case CourseMsg:
		m.setRecord(msg.Record)
		m.events = append(m.events, EventView{Round: msg.Round, Record: msg.Record})
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}

	case RoundMsg:
		m.records = append([]domain.CourseRecord(nil), msg.Snapshot.Records...)
		m.pending = len(msg.Snapshot.Pending)

	case CountdownMsg:
		m.counting = true
		m.countdown = msg.Remaining

	case CountdownDoneMsg:
		m.counting = false
		m.countdown = 0

	case FinishedMsg:
		res := msg.Result
		m.result = &res
		m.records = append([]domain.CourseRecord(nil), res.Records...)
		m.pending = len(res.Pending)
		m.round = res.Rounds
		m.counting = false
		if m.quitting {
			return m, tea.Quit
		}
	}

	return m, nil
}

// setRecord replaces the record with the same id, keeping table order
func (m *Model) setRecord(rec domain.CourseRecord) {
	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = rec
			return
		}
	}
	m.records = append(m.records, rec)
}
