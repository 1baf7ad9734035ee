// Package cooldown implements the jittered, interruptible wait between rounds.
package cooldown

import (
	"context"
	"math/rand/v2"
	"time"
)

// DefaultMaxJitter is the upper bound (exclusive) of the random delay added
// to every cooldown
const DefaultMaxJitter = 5 * time.Second

// Display receives the live countdown. Countdown is called once per whole
// second with the seconds left; Done is called exactly once when the wait ends
// for any reason.
type Display interface {
	Countdown(remaining int)
	Done()
}

// NopDisplay discards countdown updates
type NopDisplay struct{}

func (NopDisplay) Countdown(int) {}
func (NopDisplay) Done()         {}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [0, max)
type JitterFunc func(max time.Duration) time.Duration

// Scheduler computes and runs cooldowns
type Scheduler struct {
	maxJitter time.Duration
	display   Display
	sleep     SleepFunc
	jitter    JitterFunc
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithSleep replaces the real sleep, mainly for tests
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithJitter replaces the random source
func WithJitter(fn JitterFunc) Option {
	return func(s *Scheduler) { s.jitter = fn }
}

// WithMaxJitter changes the jitter bound
func WithMaxJitter(d time.Duration) Option {
	return func(s *Scheduler) { s.maxJitter = d }
}

// New creates a Scheduler reporting to display (nil means no display)
func New(display Display, opts ...Option) *Scheduler {
	s := &Scheduler{
		maxJitter: DefaultMaxJitter,
		display:   display,
		sleep:     sleepWithContext,
		jitter:    randomJitter,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.display == nil {
		s.display = NopDisplay{}
	}
	return s
}

// SetDisplay swaps the countdown display between runs
func (s *Scheduler) SetDisplay(d Display) {
	if d == nil {
		d = NopDisplay{}
	}
	s.display = d
}

// Duration returns base seconds plus jitter in [0, maxJitter)
func (s *Scheduler) Duration(baseSeconds int) time.Duration {
	base := time.Duration(baseSeconds) * time.Second
	if s.maxJitter <= 0 {
		return base
	}
	return base + s.jitter(s.maxJitter)
}

// Wait runs one cooldown of baseSeconds plus jitter, counting down in
// one-second steps. It returns how long it actually waited and whether the
// wait ran to completion; a cancelled ctx ends the wait early with false.
func (s *Scheduler) Wait(ctx context.Context, baseSeconds int) (time.Duration, bool) {
	total := s.Duration(baseSeconds)
	defer s.display.Done()

	remaining := total
	for remaining > 0 {
		secs := int((remaining + time.Second - 1) / time.Second)
		s.display.Countdown(secs)

		// the first step absorbs the sub-second remainder
		step := remaining - time.Duration(secs-1)*time.Second
		if err := s.sleep(ctx, step); err != nil {
			return total - remaining, false
		}
		remaining -= step
	}
	return total, ctx.Err() == nil
}

func randomJitter(max time.Duration) time.Duration {
	ms := max.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(ms)) * time.Millisecond
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
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
