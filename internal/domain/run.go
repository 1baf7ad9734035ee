package domain

import (
	"errors"
	"time"
)

// MaxCourses is the recommended cap on the working set size
const MaxCourses = 7

// LoopConfig bounds the retry loop. MaxDurationSeconds == 0 means the loop
// runs until every course reaches a terminal outcome, however long that takes.
type LoopConfig struct {
	IntervalSeconds    int
	MaxDurationSeconds int
}

// Validate checks the invariants the engine relies on
func (c LoopConfig) Validate() error {
	if c.IntervalSeconds < 1 {
		return errors.New("interval must be a positive number of seconds")
	}
	if c.MaxDurationSeconds < 0 {
		return errors.New("max duration must be zero or positive")
	}
	return nil
}

// Interval returns the base cooldown as a duration
func (c LoopConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MaxDuration returns the run deadline as a duration, zero when unbounded
func (c LoopConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSeconds) * time.Second
}

// Bounded reports whether the run has a deadline
func (c LoopConfig) Bounded() bool {
	return c.MaxDurationSeconds > 0
}

// RunRecord is a finished or in-flight run as stored in the history database
type RunRecord struct {
	ID                 string
	StartedAt          time.Time
	FinishedAt         *time.Time
	Outcome            RunOutcome
	Rounds             int
	IntervalSeconds    int
	MaxDurationSeconds int
	Courses            []CourseID
}

// CourseResult is one course's outcome in one round of a recorded run
type CourseResult struct {
	RunID       string
	Round       int
	CourseID    CourseID
	DisplayName string
	Outcome     Outcome
	RecordedAt  time.Time
}
