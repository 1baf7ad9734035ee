package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seatsniper/seatsniper/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Outcome
	}{
		{
			name: "enrolled when no marker",
			raw:  "CSCI 101 - Intro to Programming\nSuccess: This class has been added to your schedule.",
			want: domain.Enrolled(),
		},
		{
			name: "failed with reason after marker",
			raw:  "MATH 200\nFailed\nYou are already enrolled in this class.",
			want: domain.Failed("You are already enrolled in this class."),
		},
		{
			name: "failed reason uses last marker",
			raw:  "Failed validation\nEnrollment Failed: Class is full",
			want: domain.Failed("Class is full"),
		},
		{
			name: "colon after marker is not part of the reason",
			raw:  "Failed: Class is full",
			want: domain.Failed("Class is full"),
		},
		{
			name: "only a leading colon is dropped",
			raw:  "Failed : Section closed: try again",
			want: domain.Failed("Section closed: try again"),
		},
		{
			name: "failed reason collapses line breaks",
			raw:  "Failed\nTime conflict\r\nwith  CSCI 102\n\nLEC 01",
			want: domain.Failed("Time conflict with  CSCI 102 LEC 01"),
		},
		{
			name: "failed with nothing after marker gets default reason",
			raw:  "PHYS 150\nFailed   \n",
			want: domain.Failed(DefaultFailureReason),
		},
		{
			name: "failure beats waitlist",
			raw:  "You have been placed on the wait list in position number 3\nFailed\nWait list is full",
			want: domain.Failed("Wait list is full"),
		},
		{
			name: "waitlisted with position",
			raw:  "This class has been added to your wait list in position number 42.",
			want: domain.Waitlisted(42),
		},
		{
			name: "waitlist without position is unknown",
			raw:  "You have been added to the wait list.",
			want: domain.Unknown(),
		},
		{
			name: "waitlist with malformed position is unknown",
			raw:  "wait list position number five",
			want: domain.Unknown(),
		},
		{
			name: "marker is case sensitive",
			raw:  "enrollment failed silently",
			want: domain.Enrolled(),
		},
		{
			name: "empty text counts as enrolled",
			raw:  "",
			want: domain.Enrolled(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	inputs := []string{
		"Failed\nPrerequisites not met",
		"wait list position number 7",
		"wait list",
		"Success",
	}
	for _, in := range inputs {
		assert.Equal(t, Classify(in), Classify(in), "input %q", in)
	}
}

func TestClassify_FailedAnywhereWins(t *testing.T) {
	bodies := []string{
		"Failed",
		"prefix Failed suffix",
		"wait list position number 1 Failed",
		"Failed wait list position number 1",
	}
	for _, body := range bodies {
		assert.Equal(t, domain.OutcomeFailed, Classify(body).Kind, "input %q", body)
	}
}

func TestClassify_PositionOverflowIsUnknown(t *testing.T) {
	got := Classify("wait list position number 99999999999999999999999999")
	assert.Equal(t, domain.Unknown(), got)
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		outcome domain.Outcome
		want    Class
	}{
		{domain.Outcome{}, ClassNone},
		{domain.NotFoundInResults(), ClassTransientGap},
		{domain.Unknown(), ClassTransientGap},
		{domain.Unavailable(), ClassTerminalNegative},
		{domain.Failed("x"), ClassTerminalNegative},
		{domain.Enrolled(), ClassTerminalPositive},
		{domain.Waitlisted(1), ClassTerminalPositive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassOf(tt.outcome), tt.outcome.Label())
	}
}
