package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// RunStartedMsg is sent when the engine starts a run
type RunStartedMsg struct{ Info engine.RunInfo }

// StateMsg is sent on every loop state change
type StateMsg struct {
	Round int
	State engine.State
}

// CourseMsg carries one course outcome
type CourseMsg struct {
	Round  int
	Record domain.CourseRecord
}

// RoundMsg carries the snapshot taken after a round
type RoundMsg struct{ Snapshot engine.Snapshot }

// CountdownMsg is sent once per cooldown second
type CountdownMsg struct{ Remaining int }

// CountdownDoneMsg ends a cooldown
type CountdownDoneMsg struct{}

// FinishedMsg carries the run result
type FinishedMsg struct{ Result engine.Result }

// Bridge forwards engine events and cooldown ticks to a bubbletea program.
// It implements engine.Observer and cooldown.Display.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge creates a bridge that delivers messages with send, normally
// (*tea.Program).Send
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

func (b *Bridge) RunStarted(info engine.RunInfo) { b.send(RunStartedMsg{Info: info}) }

func (b *Bridge) StateChanged(round int, state engine.State) {
	b.send(StateMsg{Round: round, State: state})
}

func (b *Bridge) CourseUpdated(round int, rec domain.CourseRecord) {
	b.send(CourseMsg{Round: round, Record: rec})
}

func (b *Bridge) RoundFinished(snap engine.Snapshot) { b.send(RoundMsg{Snapshot: snap}) }
func (b *Bridge) RunFinished(res engine.Result)      { b.send(FinishedMsg{Result: res}) }
func (b *Bridge) Countdown(remaining int)            { b.send(CountdownMsg{Remaining: remaining}) }
func (b *Bridge) Done()                              { b.send(CountdownDoneMsg{}) }
