package main

import (
	"errors"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/seatsniper/seatsniper/internal/config"
	"github.com/seatsniper/seatsniper/internal/domain"
)

var (
	configPath string
	fsys       = afero.NewOsFs()
	rootCmd    = &cobra.Command{
		Use:   "seatsniper",
		Short: "Seat sniper - course enrollment retry loop",
		Long: `seatsniper keeps trying to enroll in a set of courses until every one of
them is enrolled, waitlisted or confirmed unavailable, the time limit runs
out, or the run is interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// exitError carries a process exit code for a run that ended without
// success. Its outcome has already been reported.
type exitError struct {
	code    int
	outcome domain.RunOutcome
}

func (e *exitError) Error() string {
	return "run ended: " + e.outcome.String()
}

// exitCode maps a run outcome to the process exit code
func exitCode(o domain.RunOutcome) int {
	switch o.Kind {
	case domain.RunSuccess:
		return 0
	case domain.RunTimeout:
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithLocalFallback(fsys, configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
