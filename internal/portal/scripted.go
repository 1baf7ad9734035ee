package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// Stats counts the calls a Scripted portal has served
type Stats struct {
	Searches int
	Submits  int
	Leaves   int
}

// Scripted plays a Scenario back as an engine.Portal. Each course advances
// one step per search; the staged step decides the submit result.
type Scripted struct {
	sc *Scenario

	mu     sync.Mutex
	calls  map[domain.CourseID]int
	staged map[domain.CourseID]Step
	order  []domain.CourseID
	stats  Stats
}

var _ engine.Portal = (*Scripted)(nil)

// NewScripted creates a portal for sc
func NewScripted(sc *Scenario) *Scripted {
	return &Scripted{
		sc:     sc,
		calls:  make(map[domain.CourseID]int),
		staged: make(map[domain.CourseID]Step),
	}
}

// Name returns the scenario name
func (p *Scripted) Name() string {
	return p.sc.Name
}

// Appointment returns the enrollment appointment text the portal shows
func (p *Scripted) Appointment(ctx context.Context) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	if p.sc.Appointment == "" {
		return "", errors.New("scenario has no appointment")
	}
	return p.sc.Appointment, nil
}

func (p *Scripted) SearchAndStage(ctx context.Context, id domain.CourseID) (engine.SearchResult, error) {
	if err := p.wait(ctx); err != nil {
		return engine.SearchResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Searches++

	cs, ok := p.sc.Courses[string(id)]
	if !ok {
		return engine.SearchResult{}, nil
	}

	step := cs.step(p.calls[id])
	p.calls[id]++

	switch {
	case step.Error == SessionError:
		return engine.SearchResult{}, fmt.Errorf("search %s: %w", id, engine.ErrSessionLost)
	case step.Error != "":
		return engine.SearchResult{}, fmt.Errorf("search %s: %s", id, step.Error)
	case !step.IsFound():
		return engine.SearchResult{}, nil
	}

	if _, dup := p.staged[id]; !dup {
		p.order = append(p.order, id)
	}
	p.staged[id] = step
	return engine.SearchResult{Found: true, DisplayName: cs.Name}, nil
}

func (p *Scripted) SubmitAndCollectResults(ctx context.Context) (map[domain.CourseID]string, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Submits++

	results := make(map[domain.CourseID]string, len(p.staged))
	for _, id := range p.order {
		step := p.staged[id]
		if step.Missing {
			continue
		}
		results[id] = step.ResultText()
	}
	return results, nil
}

func (p *Scripted) LeaveCheckoutContext(ctx context.Context) error {
	if err := p.wait(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Leaves++
	p.staged = make(map[domain.CourseID]Step)
	p.order = nil
	return nil
}

// Stats returns a copy of the call counters
func (p *Scripted) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// wait sleeps for the scenario latency or until ctx is done
func (p *Scripted) wait(ctx context.Context) error {
	d := p.sc.LatencyDuration()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
