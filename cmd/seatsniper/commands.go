package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/seatsniper/seatsniper/internal/classify"
	"github.com/seatsniper/seatsniper/internal/history"
)

var historyLimit int

func init() {
	// validate command
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and list every problem",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	// classify command
	classifyCmd := &cobra.Command{
		Use:   "classify [TEXT]",
		Short: "Classify a raw enrollment result (reads stdin without TEXT)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClassify,
	}
	rootCmd.AddCommand(classifyCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the final course statuses of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	historyCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	for _, w := range cfg.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	if err := cfg.Validate(); err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			return fmt.Errorf("configuration has %d problem(s)", len(merr.Errors))
		}
		return err
	}

	fmt.Fprint(out, "Configuration OK")
	if term, ok, _ := cfg.EnrollmentTerm(time.Now()); ok {
		fmt.Fprintf(out, " for %s", term)
	}
	fmt.Fprintf(out, ": %d course(s), %s between rounds",
		len(cfg.Enrollment.Courses), seconds(cfg.Enrollment.IntervalSeconds))
	if cfg.Enrollment.MaxDurationSeconds > 0 {
		fmt.Fprintf(out, ", stop after %s", seconds(cfg.Enrollment.MaxDurationSeconds))
	}
	fmt.Fprintln(out, ".")
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read result text: %w", err)
		}
		raw = string(data)
	}

	outcome := classify.Classify(raw)
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s, %s)\n", outcome.Label(), outcome.Kind, classify.ClassOf(outcome))
	return nil
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.General.DatabasePath == "" {
		return nil, errors.New("history is disabled (general.database_path is empty)")
	}
	return history.New(cfg.General.DatabasePath)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tROUNDS\tOUTCOME\tCOURSES")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		outcome := run.Outcome.String()
		if outcome == "" {
			outcome = history.RunningOutcome
		}
		courses := make([]string, len(run.Courses))
		for i, id := range run.Courses {
			courses[i] = string(id)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID, humanize.Time(run.StartedAt), duration, run.Rounds, outcome, strings.Join(courses, ","))
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	results, err := store.RunResults(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	out := cmd.OutOrStdout()
	outcome := run.Outcome.String()
	if outcome == "" {
		outcome = history.RunningOutcome
	}
	fmt.Fprintf(out, "Run %s started %s (%s), %d round(s), %s\n\n",
		run.ID, run.StartedAt.Local().Format("Jan 2 15:04:05"), humanize.Time(run.StartedAt), run.Rounds, outcome)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COURSE\tNAME\tROUND\tSTATUS")
	for _, res := range results {
		name := res.DisplayName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", res.CourseID, name, res.Round, res.Outcome.Label())
	}
	return w.Flush()
}

func seconds(n int) string {
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}
