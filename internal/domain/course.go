package domain

import (
	"fmt"
	"strconv"
)

// UnknownCourseName is shown for courses whose display name was never resolved
const UnknownCourseName = "Unknown Course"

// CourseID is the opaque, case-sensitive code a course is searched by
type CourseID string

func (c CourseID) String() string { return string(c) }

// Outcome is the classified result of one attempt on one course.
// Position is only meaningful for OutcomeWaitlisted and Reason for OutcomeFailed.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Position uint        `json:"position,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

func Unavailable() Outcome       { return Outcome{Kind: OutcomeUnavailable} }
func Enrolled() Outcome          { return Outcome{Kind: OutcomeEnrolled} }
func NotFoundInResults() Outcome { return Outcome{Kind: OutcomeNotFoundInResults} }
func Unknown() Outcome           { return Outcome{Kind: OutcomeUnknown} }

func Waitlisted(position uint) Outcome {
	return Outcome{Kind: OutcomeWaitlisted, Position: position}
}

func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// IsSet reports whether the outcome holds a result
func (o Outcome) IsSet() bool {
	return o.Kind != OutcomeNone
}

// Terminal reports whether a course with this outcome stops being retried
func (o Outcome) Terminal() bool {
	switch o.Kind {
	case OutcomeUnavailable, OutcomeEnrolled, OutcomeWaitlisted:
		return true
	default:
		return false
	}
}

// Label renders the outcome the way the status report shows it
func (o Outcome) Label() string {
	switch o.Kind {
	case OutcomeUnavailable:
		return "UNAVAILABLE"
	case OutcomeEnrolled:
		return "ENROLLED"
	case OutcomeWaitlisted:
		return "WAIT-LISTED: Position #" + strconv.FormatUint(uint64(o.Position), 10)
	case OutcomeFailed:
		return "FAILED: " + o.Reason
	case OutcomeNotFoundInResults:
		return "RESULT_NOT_FOUND"
	case OutcomeUnknown:
		return "STATUS_UNKNOWN"
	default:
		return "PENDING"
	}
}

func (o Outcome) String() string {
	return o.Label()
}

// CourseRecord is the per-course audit entry kept for the whole run
type CourseRecord struct {
	ID          CourseID `json:"id"`
	DisplayName string   `json:"display_name,omitempty"`
	Status      Outcome  `json:"status"`
}

// Name returns the display name, falling back to UnknownCourseName
func (r CourseRecord) Name() string {
	if r.DisplayName == "" {
		return UnknownCourseName
	}
	return r.DisplayName
}

func (r CourseRecord) String() string {
	return fmt.Sprintf("%s [%s] | %s", r.Name(), r.ID, r.Status.Label())
}
