// Package engine runs the enrollment retry loop: rounds of search and
// enroll against a Portal, separated by jittered cooldowns, until every
// course reaches a terminal outcome, the deadline passes or the run is
// interrupted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatsniper/seatsniper/internal/cooldown"
	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/roster"
)

const interruptedReason = "interrupted"

// Engine is the loop controller. One Engine drives one Portal session; Run
// must not be called concurrently.
type Engine struct {
	portal   Portal
	cfg      domain.LoopConfig
	cooldown *cooldown.Scheduler
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
	newRunID func() string
}

// Option configures an Engine
type Option func(*Engine)

// WithObservers registers run observers, called in order
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) {
		e.observer = Observers(obs)
	}
}

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCooldown sets the cooldown scheduler
func WithCooldown(s *cooldown.Scheduler) Option {
	return func(e *Engine) { e.cooldown = s }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRunID replaces the run id generator
func WithRunID(fn func() string) Option {
	return func(e *Engine) { e.newRunID = fn }
}

// New creates an Engine for the given portal and loop bounds
func New(portal Portal, cfg domain.LoopConfig, opts ...Option) (*Engine, error) {
	if portal == nil {
		return nil, errors.New("engine: nil portal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		portal:   portal,
		cfg:      cfg,
		observer: NopObserver{},
		logger:   zerolog.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cooldown == nil {
		e.cooldown = cooldown.New(nil)
	}
	return e, nil
}

// run is the state owned by a single Run call
type run struct {
	id      string
	roster  *roster.Roster
	started time.Time
	round   int
	state   State
}

// Run pursues courses until the pending set is empty (Success), the max
// duration has passed before a round starts (Timeout), or ctx is cancelled or
// the portal session is lost (Aborted). A max duration of zero never times
// out. The only error returned is for an unusable course list; every other
// ending is reported through Result.Outcome.
func (e *Engine) Run(ctx context.Context, courses []domain.CourseID) (Result, error) {
	r, err := roster.New(courses)
	if err != nil {
		return Result{}, err
	}

	st := &run{
		id:      e.newRunID(),
		roster:  r,
		started: e.now(),
	}
	log := e.logger.With().Str("run", st.id).Logger()

	e.observer.RunStarted(RunInfo{
		RunID:     st.id,
		Config:    e.cfg,
		Courses:   r.Pending(),
		StartedAt: st.started,
	})
	log.Info().
		Int("courses", r.Len()).
		Int("interval_s", e.cfg.IntervalSeconds).
		Int("max_duration_s", e.cfg.MaxDurationSeconds).
		Msg("enrollment loop started")

	for {
		if e.cfg.Bounded() && e.now().Sub(st.started) > e.cfg.MaxDuration() {
			log.Warn().Int("rounds", st.round).Msg("max time exceeded")
			return e.finish(st, domain.Timeout()), nil
		}
		if ctx.Err() != nil {
			return e.finish(st, interrupted(ctx)), nil
		}

		st.round++
		roundStart := e.now()
		log.Debug().Int("round", st.round).Int("pending", r.PendingCount()).Msg("round started")

		if err := e.attempt(ctx, st, log); err != nil {
			// the report for this round goes out before the run ends
			e.report(st, roundStart)
			return e.finish(st, e.abortOutcome(ctx, err)), nil
		}

		e.report(st, roundStart)

		if err := e.portal.LeaveCheckoutContext(ctx); err != nil {
			if e.fatal(ctx, err) {
				return e.finish(st, e.abortOutcome(ctx, err)), nil
			}
			log.Warn().Err(err).Int("round", st.round).Msg("leaving checkout failed")
		}

		if r.PendingCount() == 0 {
			log.Info().Int("rounds", st.round).Msg("all courses resolved")
			return e.finish(st, domain.Success()), nil
		}

		e.setState(st, StateCoolingDown)
		if _, completed := e.cooldown.Wait(ctx, e.cfg.IntervalSeconds); !completed {
			// an interrupted cooldown just ends early; the deadline check
			// at the top of the loop runs before the cancellation check
			log.Info().Int("round", st.round).Msg("cooldown interrupted")
		}
	}
}

// attempt runs the search phase then the enroll phase of one round
func (e *Engine) attempt(ctx context.Context, st *run, log zerolog.Logger) error {
	e.setState(st, StateSearching)
	if err := e.searchPhase(ctx, st, log); err != nil {
		return err
	}

	e.setState(st, StateAttempting)
	return e.enrollPhase(ctx, st, log)
}

func (e *Engine) report(st *run, roundStart time.Time) {
	e.setState(st, StateReporting)
	now := e.now()
	e.observer.RoundFinished(Snapshot{
		RunID:         st.id,
		Round:         st.round,
		State:         st.state,
		Records:       st.roster.Records(),
		Pending:       st.roster.Pending(),
		StartedAt:     st.started,
		Elapsed:       now.Sub(st.started),
		RoundDuration: now.Sub(roundStart),
	})
}

func (e *Engine) finish(st *run, outcome domain.RunOutcome) Result {
	e.setState(st, StateTerminated)
	res := Result{
		RunID:      st.id,
		Outcome:    outcome,
		Rounds:     st.round,
		Records:    st.roster.Records(),
		Pending:    st.roster.Pending(),
		StartedAt:  st.started,
		FinishedAt: e.now(),
	}
	e.logger.Info().
		Str("run", st.id).
		Str("outcome", outcome.String()).
		Int("rounds", st.round).
		Dur("elapsed", res.Elapsed()).
		Msg("enrollment loop finished")
	e.observer.RunFinished(res)
	return res
}

func (e *Engine) setState(st *run, s State) {
	st.state = s
	e.observer.StateChanged(st.round, s)
}

// fatal reports whether a portal error must end the run rather than being
// degraded into a course outcome
func (e *Engine) fatal(ctx context.Context, err error) bool {
	return errors.Is(err, ErrSessionLost) || ctx.Err() != nil
}

func (e *Engine) abortOutcome(ctx context.Context, err error) domain.RunOutcome {
	if ctx.Err() != nil {
		return interrupted(ctx)
	}
	return domain.Aborted(err.Error())
}

// interrupted turns a done context into an Aborted outcome. A cancel cause
// other than plain cancellation becomes the reason.
func interrupted(ctx context.Context) domain.RunOutcome {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return domain.Aborted(interruptedReason)
	}
	return domain.Aborted(cause.Error())
}
