package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seatsniper/seatsniper/internal/config"
	"github.com/seatsniper/seatsniper/internal/cooldown"
	"github.com/seatsniper/seatsniper/internal/engine"
	"github.com/seatsniper/seatsniper/internal/gate"
	"github.com/seatsniper/seatsniper/internal/history"
	"github.com/seatsniper/seatsniper/internal/logging"
	"github.com/seatsniper/seatsniper/internal/notify"
	"github.com/seatsniper/seatsniper/internal/observer"
	"github.com/seatsniper/seatsniper/internal/portal"
	"github.com/seatsniper/seatsniper/internal/report"
	"github.com/seatsniper/seatsniper/tui"
	"github.com/seatsniper/seatsniper/web/api"
)

var (
	runScript   string
	runTUI      bool
	runListen   int
	runNoColor  bool
	runSkipGate bool
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the enrollment loop",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runScript, "script", "", "scenario file for the scripted portal (overrides portal.script)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show the live dashboard instead of console output")
	runCmd.Flags().IntVar(&runListen, "listen", 0, "serve the status feed on this port")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "disable colored output")
	runCmd.Flags().BoolVar(&runSkipGate, "skip-gate", false, "start immediately, ignoring the appointment and start_cron")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runScript != "" {
		cfg.Portal.Script = config.ExpandPath(runScript)
	}
	if runListen != 0 {
		cfg.Web.Enabled = true
		cfg.Web.Port = runListen
	}

	logging.Init(logging.Config{Level: cfg.General.LogLevel, Format: cfg.General.LogFormat})
	if runTUI && logging.Logger.GetLevel() < zerolog.WarnLevel {
		// the dashboard owns the terminal, so logs go quiet below warnings
		logging.Logger = logging.Logger.Level(zerolog.WarnLevel)
	}
	logger := logging.Component("run")
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Portal.Script == "" {
		return errors.New("no portal configured: set portal.script or pass --script")
	}

	if term, ok, _ := cfg.EnrollmentTerm(time.Now()); ok {
		logger.Info().Str("term", term.String()).Int("courses", len(cfg.Enrollment.Courses)).Msg("enrolling for term")
	}

	scenario, err := portal.Load(fsys, cfg.Portal.Script)
	if err != nil {
		return err
	}
	if d := cfg.SettleDelay(); d > 0 {
		scenario.SetLatency(d)
	}
	p := portal.NewScripted(scenario)
	logger.Info().Str("portal", p.Name()).Str("script", cfg.Portal.Script).Msg("portal ready")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if !runSkipGate {
		if err := waitForStart(ctx, cfg, p, logger); err != nil {
			return err
		}
	}

	renderer := report.NewRenderer(os.Stdout, !runNoColor)
	metrics := observer.New(stallThreshold(cfg.Enrollment.IntervalSeconds))
	observers := []engine.Observer{metrics}

	if cfg.General.DatabasePath != "" {
		store, err := history.New(cfg.General.DatabasePath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		observers = append(observers, history.NewRecorder(store, logging.Component("history")))
	}

	if n := buildNotifier(cfg); n.Len() > 0 {
		observers = append(observers, notify.NewObserver(n, logging.Component("notify")))
	}

	var server *api.Server
	if cfg.Web.Enabled {
		addr := cfg.Web.Host + ":" + strconv.Itoa(cfg.Web.Port)
		server = api.NewServer(addr, metrics, logging.Component("web"))
		observers = append(observers, server.Feed())
	}

	var (
		program *tea.Program
		display cooldown.Display
	)
	if runTUI {
		model := tui.NewModel(tui.ModelConfig{
			Courses: cfg.CourseIDs(),
			Loop:    cfg.LoopConfig(),
			Cancel:  func() { cancel(nil) },
		})
		program = tea.NewProgram(model, tea.WithAltScreen())
		bridge := tui.NewBridge(program.Send)
		observers = append(observers, bridge)
		display = bridge
	} else {
		observers = append(observers, report.NewConsole(os.Stdout, renderer))
		display = report.NewCountdown(os.Stdout, renderer)
	}

	eng, err := engine.New(p, cfg.LoopConfig(),
		engine.WithObservers(observers...),
		engine.WithLogger(logging.Component("engine")),
		engine.WithCooldown(cooldown.New(display)),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	helpers, stopHelpers := context.WithCancel(gctx)
	defer stopHelpers()

	var result engine.Result
	g.Go(func() error {
		defer stopHelpers()
		res, err := eng.Run(gctx, cfg.CourseIDs())
		result = res
		return err
	})

	if cfg.General.StopFile != "" {
		watcher, err := observer.NewStopWatcher(cfg.General.StopFile, logging.Component("stopfile"))
		if err != nil {
			logger.Warn().Err(err).Msg("stop file watcher disabled")
		} else {
			if removed, err := watcher.ClearStale(); err != nil {
				logger.Warn().Err(err).Str("file", watcher.Path()).Msg("could not remove stale stop file")
			} else if removed {
				logger.Info().Str("file", watcher.Path()).Msg("removed stale stop file")
			}
			g.Go(func() error { return watcher.Run(helpers, cancel) })
		}
	}

	if server != nil {
		g.Go(func() error { return server.Start(helpers) })
	}

	if program != nil {
		g.Go(func() error {
			_, err := program.Run()
			if err != nil {
				cancel(fmt.Errorf("dashboard: %w", err))
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if program != nil {
		// the dashboard is gone; leave the final report on the terminal
		report.NewConsole(os.Stdout, renderer).RunFinished(result)
	}

	if code := exitCode(result.Outcome); code != 0 {
		return &exitError{code: code, outcome: result.Outcome}
	}
	return nil
}

// waitForStart blocks until the enrollment appointment window and the
// optional start_cron allow the run to begin
func waitForStart(ctx context.Context, cfg *config.Config, p *portal.Scripted, logger zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	appointment := cfg.Schedule.Appointment
	if appointment == "" {
		text, err := p.Appointment(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("no enrollment appointment available, skipping window check")
		} else {
			appointment = text
		}
	}

	now := time.Now()
	start, err := gate.Plan(now, gate.Options{
		Appointment: appointment,
		Location:    loc,
		Cron:        cfg.Schedule.StartCron,
	})
	if err != nil {
		return err
	}
	if !start.After(now) {
		return nil
	}

	logger.Info().
		Time("start", start).
		Str("in", humanize.RelTime(start, now, "ago", "from now")).
		Msg("waiting for the start time")
	if err := gate.Wait(ctx, start); err != nil {
		return fmt.Errorf("interrupted before the run started: %w", err)
	}
	return nil
}

func buildNotifier(cfg *config.Config) *notify.MultiNotifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	return notify.NewMultiNotifier(notifiers...)
}

// stallThreshold is how long without a finished round counts as stalled:
// three cooldowns plus the longest jitter, and never under a minute
func stallThreshold(intervalSeconds int) time.Duration {
	d := 3 * (time.Duration(intervalSeconds)*time.Second + cooldown.DefaultMaxJitter)
	if d < time.Minute {
		return time.Minute
	}
	return d
}
