package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsniper/seatsniper/internal/cooldown"
	"github.com/seatsniper/seatsniper/internal/domain"
)

// fakeClock is advanced by portal calls and cooldown sleeps
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

type courseScript struct {
	name    string
	found   []bool
	results []string // "" means no result block
	err     error
}

// fakePortal plays back a per-course script indexed by round
type fakePortal struct {
	clock   *fakeClock
	latency time.Duration
	courses map[domain.CourseID]*courseScript

	round     map[domain.CourseID]int
	staged    []domain.CourseID
	searches  []domain.CourseID
	submits   int
	leaves    int
	submitErr error
	leaveErr  error
	onSubmit  func()
}

func newFakePortal(clock *fakeClock) *fakePortal {
	return &fakePortal{
		clock:   clock,
		latency: time.Second,
		courses: map[domain.CourseID]*courseScript{},
		round:   map[domain.CourseID]int{},
	}
}

func at[T any](s []T, i int) T {
	if i < len(s) {
		return s[i]
	}
	return s[len(s)-1]
}

func (p *fakePortal) SearchAndStage(ctx context.Context, id domain.CourseID) (SearchResult, error) {
	p.clock.Advance(p.latency)
	p.searches = append(p.searches, id)
	cs, ok := p.courses[id]
	if !ok {
		return SearchResult{}, nil
	}
	if cs.err != nil {
		return SearchResult{}, cs.err
	}
	if !at(cs.found, p.round[id]) {
		p.round[id]++
		return SearchResult{}, nil
	}
	p.staged = append(p.staged, id)
	return SearchResult{Found: true, DisplayName: cs.name}, nil
}

func (p *fakePortal) SubmitAndCollectResults(ctx context.Context) (map[domain.CourseID]string, error) {
	p.clock.Advance(p.latency)
	p.submits++
	if p.onSubmit != nil {
		p.onSubmit()
	}
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	out := map[domain.CourseID]string{}
	for _, id := range p.staged {
		cs := p.courses[id]
		if text := at(cs.results, p.round[id]); text != "" {
			out[id] = text
		}
		p.round[id]++
	}
	return out, nil
}

func (p *fakePortal) LeaveCheckoutContext(ctx context.Context) error {
	p.leaves++
	p.staged = nil
	return p.leaveErr
}

// recorder captures observer events
type recorder struct {
	NopObserver
	started  []RunInfo
	states   []State
	updates  []domain.CourseRecord
	rounds   []Snapshot
	finished []Result
}

func (r *recorder) RunStarted(info RunInfo)                      { r.started = append(r.started, info) }
func (r *recorder) StateChanged(_ int, s State)                  { r.states = append(r.states, s) }
func (r *recorder) CourseUpdated(_ int, rec domain.CourseRecord) { r.updates = append(r.updates, rec) }
func (r *recorder) RoundFinished(snap Snapshot)                  { r.rounds = append(r.rounds, snap) }
func (r *recorder) RunFinished(res Result)                       { r.finished = append(r.finished, res) }

func newTestEngine(t *testing.T, p Portal, clock *fakeClock, cfg domain.LoopConfig, obs ...Observer) *Engine {
	t.Helper()
	cd := cooldown.New(nil,
		cooldown.WithSleep(clock.Sleep),
		cooldown.WithJitter(func(time.Duration) time.Duration { return 2500 * time.Millisecond }),
	)
	e, err := New(p, cfg,
		WithCooldown(cd),
		WithClock(clock.Now),
		WithObservers(obs...),
		WithRunID(func() string { return "run-1" }),
	)
	require.NoError(t, err)
	return e
}

func statusOf(t *testing.T, recs []domain.CourseRecord, id domain.CourseID) domain.Outcome {
	t.Helper()
	for _, r := range recs {
		if r.ID == id {
			return r.Status
		}
	}
	t.Fatalf("no record for %s", id)
	return domain.Outcome{}
}

func TestRun_EndToEndSingleRound(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["MA200"] = &courseScript{
		name:    "MATH 200\nCalculus II",
		found:   []bool{true},
		results: []string{"MATH 200 Calculus II\nThis class has been added to your wait list in position number 5."},
	}
	rec := &recorder{}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30}, rec)

	res, err := e.Run(context.Background(), []domain.CourseID{"CS101", "MA200"})
	require.NoError(t, err)

	assert.Equal(t, domain.Success(), res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, res.Pending)
	assert.Equal(t, domain.Unavailable(), statusOf(t, res.Records, "CS101"))
	assert.Equal(t, domain.Waitlisted(5), statusOf(t, res.Records, "MA200"))
	assert.Equal(t, "MATH 200 - Calculus II", res.Records[1].DisplayName)
	assert.Equal(t, "", res.Records[0].DisplayName)

	assert.Equal(t, 1, portal.submits)
	assert.Equal(t, 1, portal.leaves)
	require.Len(t, rec.rounds, 1)
	assert.Len(t, rec.rounds[0].Records, 2)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, "run-1", rec.finished[0].RunID)
	assert.Equal(t,
		[]State{StateSearching, StateAttempting, StateReporting, StateTerminated},
		rec.states)
}

func TestRun_AllUnavailableEndsAfterOneRound(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	rec := &recorder{}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30, MaxDurationSeconds: 600}, rec)

	res, err := e.Run(context.Background(), []domain.CourseID{"A1", "B2", "C3"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunSuccess, res.Outcome.Kind)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, res.Pending)
	assert.Equal(t, 0, portal.submits, "nothing staged, nothing to submit")
	assert.Equal(t, 1, portal.leaves)
	for _, r := range res.Records {
		assert.Equal(t, domain.Unavailable(), r.Status)
	}
}

func TestRun_TimeoutNeverEarlyNeverHangs(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["CS101"] = &courseScript{
		name:    "Intro",
		found:   []bool{true},
		results: []string{"Failed\nClass is full"},
	}
	rec := &recorder{}
	cfg := domain.LoopConfig{IntervalSeconds: 30, MaxDurationSeconds: 300}
	e := newTestEngine(t, portal, clock, cfg, rec)

	res, err := e.Run(context.Background(), []domain.CourseID{"CS101"})
	require.NoError(t, err)

	assert.Equal(t, domain.Timeout(), res.Outcome)
	assert.Greater(t, res.Elapsed(), cfg.MaxDuration())
	// one round is 2s of portal latency plus a 32.5s cooldown
	assert.LessOrEqual(t, res.Elapsed(), cfg.MaxDuration()+36*time.Second)
	assert.Equal(t, domain.Failed("Class is full"), res.Records[0].Status)
	assert.Equal(t, []domain.CourseID{"CS101"}, res.Pending)
	assert.Equal(t, res.Rounds, portal.leaves)
	assert.Len(t, rec.rounds, res.Rounds)
}

func TestRun_PendingNeverGrows(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"Failed", "Failed", "ok"}}
	portal.courses["B"] = &courseScript{found: []bool{true}, results: []string{"", "wait list", "wait list position number 9"}}
	portal.courses["C"] = &courseScript{found: []bool{true, false}, results: []string{"Failed"}}
	rec := &recorder{}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 5}, rec)

	res, err := e.Run(context.Background(), []domain.CourseID{"A", "B", "C"})
	require.NoError(t, err)
	require.Equal(t, domain.RunSuccess, res.Outcome.Kind)
	assert.Equal(t, 3, res.Rounds)

	prev := map[domain.CourseID]bool{"A": true, "B": true, "C": true}
	for _, snap := range rec.rounds {
		cur := map[domain.CourseID]bool{}
		for _, id := range snap.Pending {
			assert.True(t, prev[id], "round %d: %s reappeared in pending", snap.Round, id)
			cur[id] = true
		}
		prev = cur
	}

	assert.Equal(t, domain.Enrolled(), statusOf(t, res.Records, "A"))
	assert.Equal(t, domain.Waitlisted(9), statusOf(t, res.Records, "B"))
	assert.Equal(t, domain.Unavailable(), statusOf(t, res.Records, "C"))

	// round-by-round transient outcomes are visible in the snapshots
	assert.Equal(t, domain.NotFoundInResults(), statusOf(t, rec.rounds[0].Records, "B"))
	assert.Equal(t, domain.Unknown(), statusOf(t, rec.rounds[1].Records, "B"))
}

func TestRun_FailedCourseIsRetriedWithoutUnstaging(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["CS101"] = &courseScript{found: []bool{true}, results: []string{"Failed\nfull", "Success"}}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30})

	res, err := e.Run(context.Background(), []domain.CourseID{"CS101"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, []domain.CourseID{"CS101", "CS101"}, portal.searches)
	assert.Equal(t, domain.Enrolled(), res.Records[0].Status)
}

func TestRun_SearchErrorDegradesToUnavailable(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["CS101"] = &courseScript{err: errors.New("element not found")}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30})

	res, err := e.Run(context.Background(), []domain.CourseID{"CS101"})
	require.NoError(t, err)

	assert.Equal(t, domain.Success(), res.Outcome)
	assert.Equal(t, domain.Unavailable(), res.Records[0].Status)
}

func TestRun_SessionLostAbortsWithReport(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{false}}
	portal.courses["B"] = &courseScript{err: ErrSessionLost}
	rec := &recorder{}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30}, rec)

	res, err := e.Run(context.Background(), []domain.CourseID{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunAborted, res.Outcome.Kind)
	assert.Contains(t, res.Outcome.Reason, "session lost")
	assert.Equal(t, domain.Unavailable(), statusOf(t, res.Records, "A"))
	assert.Equal(t, []domain.CourseID{"B"}, res.Pending)
	assert.Len(t, rec.rounds, 1, "final report is emitted before aborting")
	assert.Equal(t, 0, portal.leaves)
}

func TestRun_SubmitErrorMarksStagedNotFound(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"ok"}}
	portal.submitErr = errors.New("checkout table missing")
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30, MaxDurationSeconds: 60})

	res, err := e.Run(context.Background(), []domain.CourseID{"A"})
	require.NoError(t, err)

	assert.Equal(t, domain.Timeout(), res.Outcome)
	assert.Equal(t, domain.NotFoundInResults(), res.Records[0].Status)
}

func TestRun_LeaveCheckoutErrorIsNotFatal(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"ok"}}
	portal.leaveErr = errors.New("exit button missing")
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30})

	res, err := e.Run(context.Background(), []domain.CourseID{"A"})
	require.NoError(t, err)
	assert.Equal(t, domain.Success(), res.Outcome)
}

func TestRun_CancelDuringCooldownAborts(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"Failed"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	cd := cooldown.New(nil, cooldown.WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	e, err := New(portal, domain.LoopConfig{IntervalSeconds: 30},
		WithCooldown(cd), WithClock(clock.Now), WithObservers(rec))
	require.NoError(t, err)

	res, err := e.Run(ctx, []domain.CourseID{"A"})
	require.NoError(t, err)

	assert.Equal(t, domain.Aborted("interrupted"), res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, domain.Failed(classifyDefaultReason), rec.finished[0].Records[0].Status)
}

func TestRun_CancelDuringPortalCallAborts(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"ok"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	portal.onSubmit = cancel
	portal.submitErr = context.Canceled

	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 30})
	res, err := e.Run(ctx, []domain.CourseID{"A"})
	require.NoError(t, err)

	assert.Equal(t, domain.Aborted("interrupted"), res.Outcome)
	assert.Equal(t, []domain.CourseID{"A"}, res.Pending)
	assert.False(t, res.Records[0].Status.IsSet())
}

func TestRun_CancelCauseBecomesReason(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"Failed"}}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	cd := cooldown.New(nil, cooldown.WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel(errors.New("stop file STOP created"))
		return ctx.Err()
	}))
	e, err := New(portal, domain.LoopConfig{IntervalSeconds: 30}, WithCooldown(cd), WithClock(clock.Now))
	require.NoError(t, err)

	res, err := e.Run(ctx, []domain.CourseID{"A"})
	require.NoError(t, err)
	assert.Equal(t, domain.Aborted("stop file STOP created"), res.Outcome)
}

func TestRun_CancelAfterDeadlineTimesOut(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	portal.courses["A"] = &courseScript{found: []bool{true}, results: []string{"Failed"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cd := cooldown.New(nil, cooldown.WithSleep(func(ctx context.Context, d time.Duration) error {
		clock.Advance(20 * time.Second)
		cancel()
		return ctx.Err()
	}))
	e, err := New(portal, domain.LoopConfig{IntervalSeconds: 30, MaxDurationSeconds: 10},
		WithCooldown(cd), WithClock(clock.Now))
	require.NoError(t, err)

	res, err := e.Run(ctx, []domain.CourseID{"A"})
	require.NoError(t, err)

	assert.Equal(t, domain.Timeout(), res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	assert.Greater(t, res.Elapsed(), 10*time.Second)
}

func TestRun_UnboundedKeepsGoing(t *testing.T) {
	clock := newFakeClock()
	portal := newFakePortal(clock)
	results := make([]string, 0, 60)
	for i := 0; i < 59; i++ {
		results = append(results, "Failed")
	}
	results = append(results, "ok")
	portal.courses["A"] = &courseScript{found: []bool{true}, results: results}
	e := newTestEngine(t, portal, clock, domain.LoopConfig{IntervalSeconds: 60})

	res, err := e.Run(context.Background(), []domain.CourseID{"A"})
	require.NoError(t, err)

	assert.Equal(t, domain.Success(), res.Outcome)
	assert.Equal(t, 60, res.Rounds)
	assert.Greater(t, res.Elapsed(), time.Hour)
}

func TestRun_RejectsEmptyCourseList(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, newFakePortal(clock), clock, domain.LoopConfig{IntervalSeconds: 30})
	_, err := e.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, domain.LoopConfig{IntervalSeconds: 30})
	assert.Error(t, err)

	_, err = New(newFakePortal(newFakeClock()), domain.LoopConfig{IntervalSeconds: 0})
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "CSCI 101 - Intro", normalizeName(" CSCI 101 \n\n Intro \n"))
	assert.Equal(t, "", normalizeName(" \n "))
}

const classifyDefaultReason = "Enrollment Failed"
