package engine

import (
	"context"
	"errors"

	"github.com/seatsniper/seatsniper/internal/domain"
)

// ErrSessionLost marks a portal fault the engine cannot degrade into a course
// outcome. Portals wrap it when the authenticated session is gone; the run
// then aborts after a final report.
var ErrSessionLost = errors.New("portal session lost")

// SearchResult is what a course search produced
type SearchResult struct {
	Found       bool
	DisplayName string
}

// Portal is the registration site as seen by the engine. Calls are made
// strictly one at a time; implementations own their own timeouts.
type Portal interface {
	// SearchAndStage looks a course up and, when found, adds it to the
	// staging area for this round's enrollment attempt.
	SearchAndStage(ctx context.Context, id domain.CourseID) (SearchResult, error)

	// SubmitAndCollectResults attempts enrollment for every staged course and
	// returns the raw result text per course that produced a result block.
	SubmitAndCollectResults(ctx context.Context) (map[domain.CourseID]string, error)

	// LeaveCheckoutContext returns the portal to the search page. It is
	// called once per round whatever the round's outcome.
	LeaveCheckoutContext(ctx context.Context) error
}
