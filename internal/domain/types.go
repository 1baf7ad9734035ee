package domain

// OutcomeKind identifies which variant of Outcome a value holds
type OutcomeKind int

const (
	// OutcomeNone means the course has not completed a round yet
	OutcomeNone OutcomeKind = iota
	OutcomeUnavailable
	OutcomeEnrolled
	OutcomeWaitlisted
	OutcomeFailed
	OutcomeNotFoundInResults
	OutcomeUnknown
)

var outcomeKindNames = map[OutcomeKind]string{
	OutcomeNone:              "pending",
	OutcomeUnavailable:       "unavailable",
	OutcomeEnrolled:          "enrolled",
	OutcomeWaitlisted:        "waitlisted",
	OutcomeFailed:            "failed",
	OutcomeNotFoundInResults: "result_not_found",
	OutcomeUnknown:           "unknown",
}

// String returns the stable slug used in JSON and the history database
func (k OutcomeKind) String() string {
	if s, ok := outcomeKindNames[k]; ok {
		return s
	}
	return "invalid"
}

// ParseOutcomeKind is the inverse of OutcomeKind.String
func ParseOutcomeKind(s string) (OutcomeKind, bool) {
	for k, name := range outcomeKindNames {
		if name == s {
			return k, true
		}
	}
	return OutcomeNone, false
}

// MarshalText implements encoding.TextMarshaler
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// RunOutcomeKind represents how a run terminated
type RunOutcomeKind string

const (
	RunSuccess RunOutcomeKind = "success"
	RunTimeout RunOutcomeKind = "timeout"
	RunAborted RunOutcomeKind = "aborted"
)

// RunOutcome is the terminal state of a run. Reason is only set for aborted runs.
type RunOutcome struct {
	Kind   RunOutcomeKind `json:"kind"`
	Reason string         `json:"reason,omitempty"`
}

// Success returns the outcome for a run whose pending set drained
func Success() RunOutcome { return RunOutcome{Kind: RunSuccess} }

// Timeout returns the outcome for a run that hit its max duration
func Timeout() RunOutcome { return RunOutcome{Kind: RunTimeout} }

// Aborted returns the outcome for a run stopped by an interruption or a fatal portal fault
func Aborted(reason string) RunOutcome { return RunOutcome{Kind: RunAborted, Reason: reason} }

func (o RunOutcome) String() string {
	if o.Kind == RunAborted && o.Reason != "" {
		return string(o.Kind) + ": " + o.Reason
	}
	return string(o.Kind)
}
