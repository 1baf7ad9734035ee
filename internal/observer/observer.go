// Package observer collects run metrics and watches for an operator's
// request to stop.
package observer

import (
	"sync"
	"time"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// Observer monitors a run and collects metrics. It is an engine.Observer.
type Observer struct {
	engine.NopObserver

	stallThreshold time.Duration

	rounds       int
	roundTotal   time.Duration
	outcomes     map[domain.OutcomeKind]int
	lastProgress time.Time
	finished     bool
	mu           sync.RWMutex
}

// Metrics holds aggregated metrics
type Metrics struct {
	Rounds           int            `json:"rounds"`
	AvgRoundDuration time.Duration  `json:"avg_round_duration"`
	Outcomes         map[string]int `json:"outcomes"`
	Resolved         int            `json:"resolved"`
}

// New creates a new Observer. A run with no finished round for longer than
// stallThreshold counts as stalled.
func New(stallThreshold time.Duration) *Observer {
	return &Observer{
		stallThreshold: stallThreshold,
		outcomes:       make(map[domain.OutcomeKind]int),
	}
}

func (o *Observer) RunStarted(info engine.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rounds = 0
	o.roundTotal = 0
	o.outcomes = make(map[domain.OutcomeKind]int)
	o.lastProgress = info.StartedAt
	o.finished = false
}

func (o *Observer) CourseUpdated(_ int, rec domain.CourseRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[rec.Status.Kind]++
}

func (o *Observer) RoundFinished(snap engine.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rounds++
	o.roundTotal += snap.RoundDuration
	o.lastProgress = snap.StartedAt.Add(snap.Elapsed)
}

func (o *Observer) RunFinished(res engine.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = true
	o.lastProgress = res.FinishedAt
}

// IsStalled returns true if a running loop has not finished a round within
// the stall threshold
func (o *Observer) IsStalled(now time.Time) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.finished || o.lastProgress.IsZero() || o.stallThreshold <= 0 {
		return false
	}
	return now.Sub(o.lastProgress) > o.stallThreshold
}

// GetMetrics returns aggregated metrics
func (o *Observer) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	metrics := Metrics{
		Rounds:   o.rounds,
		Outcomes: make(map[string]int, len(o.outcomes)),
	}
	for kind, n := range o.outcomes {
		metrics.Outcomes[kind.String()] = n
		if (domain.Outcome{Kind: kind}).Terminal() {
			metrics.Resolved += n
		}
	}
	if o.rounds > 0 {
		metrics.AvgRoundDuration = o.roundTotal / time.Duration(o.rounds)
	}
	return metrics
}
