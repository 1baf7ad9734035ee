package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

// Observer turns run events into notifications: one per course that wins a
// seat or a waitlist spot, and one when the run ends
type Observer struct {
	engine.NopObserver

	notifier Notifier
	logger   zerolog.Logger
	runID    string
}

// NewObserver creates an engine observer sending through n
func NewObserver(n Notifier, logger zerolog.Logger) *Observer {
	return &Observer{notifier: n, logger: logger}
}

func (o *Observer) RunStarted(info engine.RunInfo) {
	o.runID = info.RunID
}

func (o *Observer) CourseUpdated(_ int, rec domain.CourseRecord) {
	var msg string
	switch rec.Status.Kind {
	case domain.OutcomeEnrolled:
		msg = fmt.Sprintf("Enrolled in %s.", rec.Name())
	case domain.OutcomeWaitlisted:
		msg = fmt.Sprintf("Waitlisted for %s at position #%d.", rec.Name(), rec.Status.Position)
	default:
		return
	}
	o.send(Notification{
		Title:    "Seat secured: " + string(rec.ID),
		Message:  msg,
		Type:     NotifySuccess,
		CourseID: string(rec.ID),
		RunID:    o.runID,
	})
}

func (o *Observer) RunFinished(res engine.Result) {
	n := Notification{RunID: res.RunID}
	switch res.Outcome.Kind {
	case domain.RunSuccess:
		n.Title = "Enrollment complete"
		n.Message = "Success! You were enrolled/waitlisted in all courses."
		n.Type = NotifySuccess
	case domain.RunTimeout:
		n.Title = "Enrollment timed out"
		n.Message = fmt.Sprintf("Max time exceeded after %d round(s); %d course(s) still pending.", res.Rounds, len(res.Pending))
		n.Type = NotifyWarning
	default:
		n.Title = "Enrollment aborted"
		n.Message = fmt.Sprintf("Run aborted: %s", res.Outcome.Reason)
		n.Type = NotifyError
	}
	o.send(n)
}

func (o *Observer) send(n Notification) {
	if err := o.notifier.Send(n); err != nil {
		o.logger.Warn().Err(err).Str("title", n.Title).Msg("notification failed")
	}
}
