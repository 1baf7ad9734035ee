package classify

import "github.com/seatsniper/seatsniper/internal/domain"

// Class groups outcomes by how the loop treats them
type Class int

const (
	// ClassNone is the class of a course without an outcome yet
	ClassNone Class = iota
	// ClassTransientGap outcomes are retried next round and never escalated
	ClassTransientGap
	// ClassTerminalNegative outcomes are recorded and the course is dropped
	ClassTerminalNegative
	// ClassTerminalPositive outcomes are recorded and the course is done
	ClassTerminalPositive
)

func (c Class) String() string {
	switch c {
	case ClassTransientGap:
		return "transient"
	case ClassTerminalNegative:
		return "terminal-negative"
	case ClassTerminalPositive:
		return "terminal-positive"
	default:
		return "none"
	}
}

// ClassOf returns the error-handling class of an outcome.
// Failed counts as terminal-negative for reporting even though the course is
// still retried; only Terminal() decides pruning.
func ClassOf(o domain.Outcome) Class {
	switch o.Kind {
	case domain.OutcomeNotFoundInResults, domain.OutcomeUnknown:
		return ClassTransientGap
	case domain.OutcomeUnavailable, domain.OutcomeFailed:
		return ClassTerminalNegative
	case domain.OutcomeEnrolled, domain.OutcomeWaitlisted:
		return ClassTerminalPositive
	default:
		return ClassNone
	}
}
