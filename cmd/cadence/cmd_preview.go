package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) previewCmd() *cobra.Command {
	var (
		rulePath string
		anchor   string
		zone     string
		count    int
		emitted  int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the next occurrences of a rule",
		Long: `Prints the occurrences that follow the anchor, one per line. The anchor itself
is never listed. For rules that end after a number of occurrences, --emitted
says how many have already happened.`,
		Example: `  cadence preview --rule rent.yaml --anchor 2024-01-31T10:00:00Z --count 6
  cadence preview --rule standup.json --anchor 2024-03-09T09:00 --tz Europe/Berlin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := loadRule(cmd.InOrStdin(), rulePath)
			if err != nil {
				return err
			}
			at, err := parseAnchor(anchor, zone)
			if err != nil {
				return err
			}

			engine := a.engine()
			defer engine.Close()

			occurrences, err := engine.Preview(rule, at, count, emitted)
			if err != nil {
				return err
			}
			a.logger.Debug("previewed rule",
				slog.String("rule", rule.String()),
				slog.Time("anchor", at),
				slog.Int("occurrences", len(occurrences)))

			out := cmd.OutOrStdout()
			for _, t := range occurrences {
				fmt.Fprintf(out, "%s  %s\n", t.Format(time.RFC3339), t.Format("Mon"))
			}
			if len(occurrences) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no occurrences: the series has ended")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulePath, "rule", "r", "", "rule file (YAML or JSON, - for stdin)")
	cmd.Flags().StringVar(&anchor, "anchor", "", "time to project from (default now)")
	cmd.Flags().StringVar(&zone, "tz", "", "IANA time zone for the anchor's wall clock")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of occurrences to list")
	cmd.Flags().IntVar(&emitted, "emitted", 0, "occurrences already emitted")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}
