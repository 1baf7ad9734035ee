package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

const (
	tabCourses = iota
	tabEvents
	tabCount
)

// maxEvents caps the events tab history
const maxEvents = 50

// Model is the TUI application model
type Model struct {
	// Data
	runID   string
	cfg     domain.LoopConfig
	records []domain.CourseRecord
	pending int
	events  []EventView
	result  *engine.Result

	// Loop progress
	round     int
	state     engine.State
	started   time.Time
	countdown int
	counting  bool

	// UI state
	width     int
	height    int
	activeTab int
	quitting  bool
	cancel    func()

	// Refresh
	now func() time.Time
}

// EventView is one course outcome shown on the events tab
type EventView struct {
	Round  int
	Record domain.CourseRecord
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Courses []domain.CourseID
	Loop    domain.LoopConfig
	// Cancel stops the run; it is called when the user quits
	Cancel func()
	Now    func() time.Time
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	records := make([]domain.CourseRecord, len(cfg.Courses))
	for i, id := range cfg.Courses {
		records[i] = domain.CourseRecord{ID: id}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return Model{
		cfg:       cfg.Loop,
		records:   records,
		pending:   len(records),
		cancel:    cfg.Cancel,
		now:       now,
		activeTab: tabCourses,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Finished reports whether the run has ended
func (m Model) Finished() bool {
	return m.result != nil
}

// elapsed returns the run time so far, frozen once the run ends
func (m Model) elapsed() time.Duration {
	if m.result != nil {
		return m.result.Elapsed()
	}
	if m.started.IsZero() {
		return 0
	}
	return m.now().Sub(m.started)
}
