// Package gate decides when a run may start: not before the enrollment
// appointment, only within a day of it, and optionally on a cron schedule.
package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
)

// Window is how long before the appointment a run may be started
const Window = 24 * time.Hour

// AppointmentLayout is the portal's appointment format with the date and
// time lines joined by a space
const AppointmentLayout = "January 2, 2006 3:04PM"

// DefaultTimezone is the zone appointment times are given in
const DefaultTimezone = "America/New_York"

// ErrOutsideWindow is returned when the appointment is more than Window away
var ErrOutsideWindow = errors.New("enrollment appointment is more than 24 hours away")

var meridiemRegex = regexp.MustCompile(`\s+([AP]M)$`)

// ParseAppointment parses appointment text such as "August 20, 2026\n7:00AM"
// in loc. Line breaks and runs of spaces are treated as one space.
func ParseAppointment(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	norm := strings.ToUpper(strings.Join(strings.Fields(text), " "))
	norm = meridiemRegex.ReplaceAllString(norm, "$1")

	t, err := time.ParseInLocation(AppointmentLayout, norm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment %q: %w", text, err)
	}
	return t, nil
}

// CheckWindow returns how long to wait until the appointment, zero when it
// has already passed. It fails with ErrOutsideWindow unless now is after
// the start of the window.
func CheckWindow(now, appointment time.Time) (time.Duration, error) {
	if !now.After(appointment.Add(-Window)) {
		return 0, fmt.Errorf("%w: appointment is %s", ErrOutsideWindow,
			humanize.RelTime(appointment, now, "ago", "from now"))
	}
	if now.Before(appointment) {
		return appointment.Sub(now), nil
	}
	return 0, nil
}

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextCronStart returns the first time after now that expr fires
func NextCronStart(expr string, now time.Time) (time.Time, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// Options describe the start constraints of a run
type Options struct {
	// Appointment is the raw appointment text; empty means none
	Appointment string
	Location    *time.Location
	// Cron is a five-field expression; empty means start immediately
	Cron string
}

// Plan returns when a run started at now may begin. The appointment comes
// first; a cron schedule then picks its first firing at or after that.
func Plan(now time.Time, opts Options) (time.Time, error) {
	start := now

	if opts.Appointment != "" {
		appt, err := ParseAppointment(opts.Appointment, opts.Location)
		if err != nil {
			return time.Time{}, err
		}
		wait, err := CheckWindow(now, appt)
		if err != nil {
			return time.Time{}, err
		}
		start = now.Add(wait)
	}

	if opts.Cron != "" {
		// Next is strictly after its argument
		next, err := NextCronStart(opts.Cron, start.Add(-time.Second))
		if err != nil {
			return time.Time{}, err
		}
		start = next
	}
	return start, nil
}

// Wait blocks until the wall clock reaches until or ctx is done
func Wait(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
