package engine

import (
	"time"

	"github.com/seatsniper/seatsniper/internal/domain"
)

// RunInfo describes a run as it starts
type RunInfo struct {
	RunID     string
	Config    domain.LoopConfig
	Courses   []domain.CourseID
	StartedAt time.Time
}

// Snapshot is a read-only copy of the run state after a round
type Snapshot struct {
	RunID         string                `json:"run_id"`
	Round         int                   `json:"round"`
	State         State                 `json:"state"`
	Records       []domain.CourseRecord `json:"records"`
	Pending       []domain.CourseID     `json:"pending"`
	StartedAt     time.Time             `json:"started_at"`
	Elapsed       time.Duration         `json:"elapsed"`
	RoundDuration time.Duration         `json:"round_duration"`
}

// Result is the final state of a run
type Result struct {
	RunID      string                `json:"run_id"`
	Outcome    domain.RunOutcome     `json:"outcome"`
	Rounds     int                   `json:"rounds"`
	Records    []domain.CourseRecord `json:"records"`
	Pending    []domain.CourseID     `json:"pending"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Elapsed returns the wall time of the run
func (r Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Observer receives run events. All arguments are copies; observers cannot
// change the run. Calls happen on the engine goroutine, so implementations
// must not block for long.
type Observer interface {
	RunStarted(info RunInfo)
	StateChanged(round int, state State)
	CourseUpdated(round int, rec domain.CourseRecord)
	RoundFinished(snap Snapshot)
	RunFinished(res Result)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo)                     {}
func (NopObserver) StateChanged(int, State)                {}
func (NopObserver) CourseUpdated(int, domain.CourseRecord) {}
func (NopObserver) RoundFinished(Snapshot)                 {}
func (NopObserver) RunFinished(Result)                     {}

// Observers fans events out to every observer in order
type Observers []Observer

func (o Observers) RunStarted(info RunInfo) {
	for _, obs := range o {
		obs.RunStarted(info)
	}
}

func (o Observers) StateChanged(round int, state State) {
	for _, obs := range o {
		obs.StateChanged(round, state)
	}
}

func (o Observers) CourseUpdated(round int, rec domain.CourseRecord) {
	for _, obs := range o {
		obs.CourseUpdated(round, rec)
	}
}

func (o Observers) RoundFinished(snap Snapshot) {
	for _, obs := range o {
		obs.RoundFinished(snap)
	}
}

func (o Observers) RunFinished(res Result) {
	for _, obs := range o {
		obs.RunFinished(res)
	}
}
