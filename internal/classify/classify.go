// Package classify turns the raw result text the portal shows for a course
// after an enrollment attempt into a typed domain.Outcome.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/seatsniper/seatsniper/internal/domain"
)

const (
	failureMarker  = "Failed"
	waitlistMarker = "wait list"

	// DefaultFailureReason is used when nothing follows the failure marker
	DefaultFailureReason = "Enrollment Failed"
)

var (
	positionRegex = regexp.MustCompile(`position number (\d+)`)
	lineBreaks    = regexp.MustCompile(`[ \t]*[\r\n]+[ \t]*`)
)

// Classify maps a raw result block to an Outcome. Failure takes priority over
// waitlist detection, which takes priority over the enrolled default.
// It is pure and never panics; unrecognised waitlist text yields Unknown.
func Classify(raw string) domain.Outcome {
	if idx := strings.LastIndex(raw, failureMarker); idx != -1 {
		return domain.Failed(failureReason(raw[idx+len(failureMarker):]))
	}

	if strings.Contains(raw, waitlistMarker) {
		pos, ok := waitlistPosition(raw)
		if !ok {
			return domain.Unknown()
		}
		return domain.Waitlisted(pos)
	}

	return domain.Enrolled()
}

func failureReason(tail string) string {
	reason := strings.TrimSpace(tail)
	// "Failed: Class is full" reports "Class is full", not ": Class is full"
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	reason = lineBreaks.ReplaceAllString(reason, " ")
	if reason == "" {
		return DefaultFailureReason
	}
	return reason
}

func waitlistPosition(raw string) (uint, bool) {
	m := positionRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 0)
	if err != nil {
		// digits that overflow uint are as good as no match
		return 0, false
	}
	return uint(n), true
}
