package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/engine"
)

const clearWidth = 60

// Console prints the status report after every round and a closing message
// when the run ends. It is an engine.Observer.
type Console struct {
	engine.NopObserver

	out      io.Writer
	r        *Renderer
	reported bool
}

// NewConsole creates a console reporter writing to out
func NewConsole(out io.Writer, r *Renderer) *Console {
	return &Console{out: out, r: r}
}

func (c *Console) RunStarted(info engine.RunInfo) {
	fmt.Fprintf(c.out, "\nStarting the auto-enrollment loop for %d course(s).\n", len(info.Courses))
}

func (c *Console) StateChanged(_ int, state engine.State) {
	if state == engine.StateSearching {
		c.reported = false
	}
}

func (c *Console) CourseUpdated(_ int, rec domain.CourseRecord) {
	c.reported = false
	if rec.Status.Kind == domain.OutcomeUnavailable {
		fmt.Fprintf(c.out, "\n%s %s %s\n",
			c.r.Warning("Course"), c.r.Emphasis(string(rec.ID)), c.r.Warning("not found. Did you enter the right code?"))
	}
}

func (c *Console) RoundFinished(snap engine.Snapshot) {
	fmt.Fprint(c.out, c.r.Report(snap.Records))
	c.reported = true
}

func (c *Console) RunFinished(res engine.Result) {
	switch res.Outcome.Kind {
	case domain.RunTimeout:
		fmt.Fprintln(c.out, "Max time exceeded.")
	case domain.RunAborted:
		fmt.Fprintf(c.out, "\nRun aborted: %s\n", res.Outcome.Reason)
	}

	// a run that did not succeed always closes with the full report
	if !c.reported || res.Outcome.Kind != domain.RunSuccess {
		fmt.Fprint(c.out, c.r.Report(res.Records))
		c.reported = true
	}

	if res.Outcome.Kind == domain.RunSuccess {
		fmt.Fprintln(c.out, "Success! You were enrolled/waitlisted in all courses.")
	}
	fmt.Fprintf(c.out, "%d round(s) in %s.\n", res.Rounds, res.Elapsed().Round(time.Second))
}

// Countdown rewrites a single terminal line with the seconds left before the
// next round. It implements cooldown.Display.
type Countdown struct {
	out io.Writer
	r   *Renderer
}

// NewCountdown creates a countdown line writer
func NewCountdown(out io.Writer, r *Renderer) *Countdown {
	return &Countdown{out: out, r: r}
}

func (c *Countdown) Countdown(remaining int) {
	fmt.Fprintf(c.out, "\rWaiting for %s before next attempt...", c.r.Highlight(Seconds(remaining)))
}

func (c *Countdown) Done() {
	fmt.Fprint(c.out, "\r"+strings.Repeat(" ", clearWidth)+"\r")
}
