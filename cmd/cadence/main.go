// Command cadence previews recurrence rules, converts them to and from
// iCalendar, and runs a small dispatcher over a file of scheduled messages.
package main

import (
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/spf13/cobra"
)

type app struct {
	debug  bool
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cadence",
		Short: "Preview and dispatch recurring message schedules",
		Long: `cadence works with recurrence rules of the form used by scheduled messages:
daily, weekly on a set of days, monthly on a day of the month or yearly, with an
optional end date or occurrence count.

Rules are read from YAML or JSON files, for example:

  frequency: monthly
  interval: 1
  dayOfMonth: 31
  occurrenceCount: 6`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if a.debug {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.previewCmd(),
		a.rruleCmd(),
		a.icsCmd(),
		a.runCmd(),
		a.exportCmd(),
	)
	return root
}

// engine builds an uncached engine; every command is a single short run
func (a *app) engine() *recurrence.Engine {
	config := recurrence.DisabledCacheConfig
	config.Logger = a.logger
	return recurrence.NewEngineWithConfig(config)
}
