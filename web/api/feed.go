package api

import (
	"sync"
	"time"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// Event types published to streaming clients
const (
	EventRunStarted = "run_started"
	EventState      = "state"
	EventCourse     = "course"
	EventRound      = "round"
	EventFinished   = "finished"
)

// StatusResponse is the API response for overall status
type StatusResponse struct {
	RunID     string             `json:"run_id,omitempty"`
	Round     int                `json:"round"`
	State     string             `json:"state"`
	StartedAt *time.Time         `json:"started_at,omitempty"`
	Elapsed   string             `json:"elapsed"`
	Total     int                `json:"total"`
	Pending   int                `json:"pending"`
	Finished  bool               `json:"finished"`
	Outcome   *domain.RunOutcome `json:"outcome,omitempty"`
	Stalled   bool               `json:"stalled"`
	Metrics   interface{}        `json:"metrics,omitempty"`
}

// CourseResponse is the API response for a course
type CourseResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Kind     string `json:"kind"`
	Position uint   `json:"position,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Pending  bool   `json:"pending"`
}

// CourseEvent is the payload of a course event
type CourseEvent struct {
	Round  int            `json:"round"`
	Course CourseResponse `json:"course"`
}

// Feed keeps the latest view of a run and publishes every change. It is an
// engine.Observer.
type Feed struct {
	engine.NopObserver

	publish func(SSEEvent)
	now     func() time.Time

	mu       sync.RWMutex
	runID    string
	round    int
	state    engine.State
	started  time.Time
	records  []domain.CourseRecord
	pending  map[domain.CourseID]bool
	result   *engine.Result
	hasState bool
}

// NewFeed creates a feed that hands events to publish
func NewFeed(publish func(SSEEvent)) *Feed {
	if publish == nil {
		publish = func(SSEEvent) {}
	}
	return &Feed{publish: publish, now: time.Now, pending: map[domain.CourseID]bool{}}
}

func (f *Feed) RunStarted(info engine.RunInfo) {
	f.mu.Lock()
	f.runID = info.RunID
	f.round = 0
	f.started = info.StartedAt
	f.result = nil
	f.hasState = false
	f.records = make([]domain.CourseRecord, len(info.Courses))
	f.pending = make(map[domain.CourseID]bool, len(info.Courses))
	for i, id := range info.Courses {
		f.records[i] = domain.CourseRecord{ID: id}
		f.pending[id] = true
	}
	f.mu.Unlock()

	f.publish(SSEEvent{Type: EventRunStarted, Data: f.Status()})
}

func (f *Feed) StateChanged(round int, state engine.State) {
	f.mu.Lock()
	f.round = round
	f.state = state
	f.hasState = true
	f.mu.Unlock()

	f.publish(SSEEvent{Type: EventState, Data: map[string]interface{}{"round": round, "state": state.String()}})
}

func (f *Feed) CourseUpdated(round int, rec domain.CourseRecord) {
	f.mu.Lock()
	f.setRecord(rec)
	f.mu.Unlock()

	f.publish(SSEEvent{Type: EventCourse, Data: CourseEvent{Round: round, Course: courseToResponse(rec, !rec.Status.Terminal())}})
}

func (f *Feed) RoundFinished(snap engine.Snapshot) {
	f.mu.Lock()
	f.round = snap.Round
	f.records = append([]domain.CourseRecord(nil), snap.Records...)
	f.pending = pendingSet(snap.Pending)
	f.mu.Unlock()

	f.publish(SSEEvent{Type: EventRound, Data: f.Status()})
}

func (f *Feed) RunFinished(res engine.Result) {
	f.mu.Lock()
	f.result = &res
	f.round = res.Rounds
	f.records = append([]domain.CourseRecord(nil), res.Records...)
	f.pending = pendingSet(res.Pending)
	f.mu.Unlock()

	f.publish(SSEEvent{Type: EventFinished, Data: f.Status()})
}

// Status returns the current run status
func (f *Feed) Status() StatusResponse {
	f.mu.RLock()
	defer f.mu.RUnlock()

	status := StatusResponse{
		RunID:   f.runID,
		Round:   f.round,
		State:   "idle",
		Total:   len(f.records),
		Pending: len(f.pending),
	}
	if f.hasState {
		status.State = f.state.String()
	}
	if !f.started.IsZero() {
		started := f.started
		status.StartedAt = &started
		status.Elapsed = f.now().Sub(started).Round(time.Second).String()
	}
	if f.result != nil {
		outcome := f.result.Outcome
		status.Finished = true
		status.Outcome = &outcome
		status.State = engine.StateTerminated.String()
		status.Elapsed = f.result.Elapsed().Round(time.Second).String()
	}
	return status
}

// Courses returns every course in run order
func (f *Feed) Courses() []CourseResponse {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]CourseResponse, len(f.records))
	for i, rec := range f.records {
		out[i] = courseToResponse(rec, f.pending[rec.ID])
	}
	return out
}

func (f *Feed) setRecord(rec domain.CourseRecord) {
	for i := range f.records {
		if f.records[i].ID == rec.ID {
			f.records[i] = rec
			return
		}
	}
	f.records = append(f.records, rec)
}

func pendingSet(ids []domain.CourseID) map[domain.CourseID]bool {
	set := make(map[domain.CourseID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func courseToResponse(rec domain.CourseRecord, pending bool) CourseResponse {
	return CourseResponse{
		ID:       string(rec.ID),
		Name:     rec.Name(),
		Status:   rec.Status.Label(),
		Kind:     rec.Status.Kind.String(),
		Position: rec.Status.Position,
		Reason:   rec.Status.Reason,
		Pending:  pending,
	}
}
