package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eastern = time.FixedZone("EDT", -4*60*60)

func TestParseAppointment(t *testing.T) {
	want := time.Date(2026, 8, 20, 7, 0, 0, 0, eastern)

	tests := []struct {
		in string
	}{
		{"August 20, 2026\n7:00AM"},
		{"August 20, 2026 7:00AM"},
		{"  August 20, 2026\r\n  7:00 AM "},
		{"august 20, 2026\n7:00am"},
	}
	for _, tt := range tests {
		got, err := ParseAppointment(tt.in, eastern)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(want), "ParseAppointment(%q) = %v, want %v", tt.in, got, want)
	}
}

func TestParseAppointment_PM(t *testing.T) {
	got, err := ParseAppointment("January 5, 2027\n1:30PM", eastern)
	require.NoError(t, err)
	assert.Equal(t, 13, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestParseAppointment_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2026-08-20 07:00"} {
		_, err := ParseAppointment(in, eastern)
		assert.Error(t, err, in)
	}
}

func TestCheckWindow(t *testing.T) {
	appt := time.Date(2026, 8, 20, 7, 0, 0, 0, eastern)

	tests := []struct {
		name    string
		now     time.Time
		want    time.Duration
		outside bool
	}{
		{"two days early", appt.Add(-48 * time.Hour), 0, true},
		{"exactly a day early", appt.Add(-Window), 0, true},
		{"just inside the window", appt.Add(-Window + time.Second), Window - time.Second, false},
		{"ten minutes early", appt.Add(-10 * time.Minute), 10 * time.Minute, false},
		{"at the appointment", appt, 0, false},
		{"after the appointment", appt.Add(3 * time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckWindow(tt.now, appt)
			if tt.outside {
				assert.True(t, errors.Is(err, ErrOutsideWindow), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextCronStart(t *testing.T) {
	now := time.Date(2026, 8, 19, 21, 15, 0, 0, time.UTC)

	got, err := NextCronStart("0 22 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 19, 22, 0, 0, 0, time.UTC), got)

	_, err = NextCronStart("invalid", now)
	assert.Error(t, err)
}

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 7 * * *", false},
		{"*/5 * * * 1-5", false},
		{"0 7 * *", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestPlan(t *testing.T) {
	now := time.Date(2026, 8, 20, 6, 50, 0, 0, eastern)

	t.Run("no constraints starts now", func(t *testing.T) {
		got, err := Plan(now, Options{})
		require.NoError(t, err)
		assert.Equal(t, now, got)
	})

	t.Run("waits for the appointment", func(t *testing.T) {
		got, err := Plan(now, Options{Appointment: "August 20, 2026\n7:00AM", Location: eastern})
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2026, 8, 20, 7, 0, 0, 0, eastern)))
	})

	t.Run("cron firing at the appointment minute", func(t *testing.T) {
		got, err := Plan(now, Options{
			Appointment: "August 20, 2026\n7:00AM",
			Location:    eastern,
			Cron:        "0 7 * * *",
		})
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2026, 8, 20, 7, 0, 0, 0, eastern)), "got %v", got)
	})

	t.Run("cron after the appointment", func(t *testing.T) {
		got, err := Plan(now, Options{
			Appointment: "August 20, 2026\n7:00AM",
			Location:    eastern,
			Cron:        "30 7 * * *",
		})
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2026, 8, 20, 7, 30, 0, 0, eastern)), "got %v", got)
	})

	t.Run("appointment too far away", func(t *testing.T) {
		_, err := Plan(now, Options{Appointment: "August 25, 2026\n7:00AM", Location: eastern})
		assert.ErrorIs(t, err, ErrOutsideWindow)
	})

	t.Run("bad cron", func(t *testing.T) {
		_, err := Plan(now, Options{Cron: "nope"})
		assert.Error(t, err)
	})
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Now().Add(-time.Minute)))
	require.NoError(t, Wait(context.Background(), time.Now().Add(10*time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Now().Add(time.Hour)), context.Canceled)
}
