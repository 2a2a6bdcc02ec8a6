package main

import (
	"fmt"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) icsCmd() *cobra.Command {
	var (
		rulePath string
		summary  string
		anchor   string
		zone     string
		emitted  int
	)

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write a rule as an iCalendar event",
		Long: `Writes a VCALENDAR with one recurring VEVENT. DTSTART is the first occurrence
after the anchor and the RRULE covers the rest of the series.`,
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

			event, err := recurrence.NewEventComponent(uuid.NewString(), summary, rule, at, emitted)
			if err != nil {
				return err
			}

			cal := ical.NewCalendar()
			cal.Props.SetText(ical.PropVersion, "2.0")
			cal.Props.SetText(ical.PropProductID, "-//libcadence//cadence CLI//EN")
			cal.Children = append(cal.Children, event)

			if err := ical.NewEncoder(cmd.OutOrStdout()).Encode(cal); err != nil {
				return fmt.Errorf("failed to encode calendar: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulePath, "rule", "r", "", "rule file (YAML or JSON, - for stdin)")
	cmd.Flags().StringVar(&summary, "summary", "Scheduled message", "event summary")
	cmd.Flags().StringVar(&anchor, "anchor", "", "time to project from (default now)")
	cmd.Flags().StringVar(&zone, "tz", "", "IANA time zone for the anchor's wall clock")
	cmd.Flags().IntVar(&emitted, "emitted", 0, "occurrences already emitted")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}
