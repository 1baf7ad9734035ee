package history

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// Recorder writes a run into a Store as it happens. Write failures are
// logged and never reach the engine.
type Recorder struct {
	engine.NopObserver

	store  *Store
	logger zerolog.Logger
	now    func() time.Time
	runID  string
	failed bool
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger, now: time.Now}
}

func (r *Recorder) RunStarted(info engine.RunInfo) {
	r.runID = info.RunID
	r.failed = false
	err := r.store.StartRun(domain.RunRecord{
		ID:                 info.RunID,
		StartedAt:          info.StartedAt,
		IntervalSeconds:    info.Config.IntervalSeconds,
		MaxDurationSeconds: info.Config.MaxDurationSeconds,
		Courses:            info.Courses,
	})
	if err != nil {
		r.fail(err)
	}
}

func (r *Recorder) CourseUpdated(round int, rec domain.CourseRecord) {
	if r.failed {
		return
	}
	err := r.store.AddResult(domain.CourseResult{
		RunID:       r.runID,
		Round:       round,
		CourseID:    rec.ID,
		DisplayName: rec.DisplayName,
		Outcome:     rec.Status,
		RecordedAt:  r.now(),
	})
	if err != nil {
		r.fail(err)
	}
}

func (r *Recorder) RunFinished(res engine.Result) {
	if r.failed {
		return
	}
	if err := r.store.FinishRun(res.RunID, res.Outcome, res.Rounds, res.FinishedAt); err != nil {
		r.fail(err)
	}
}

// fail logs the first write error and stops further writes for the run
func (r *Recorder) fail(err error) {
	r.failed = true
	r.logger.Warn().Err(err).Str("run", r.runID).Msg("history write failed, recording disabled for this run")
}
