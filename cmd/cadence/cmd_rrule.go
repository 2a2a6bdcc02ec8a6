package main

import (
	"fmt"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) rruleCmd() *cobra.Command {
	var (
		rulePath string
		from     string
	)

	cmd := &cobra.Command{
		Use:   "rrule",
		Short: "Convert between rule files and iCalendar RRULE values",
		Example: `  cadence rrule --rule standup.yaml
  cadence rrule --from "FREQ=WEEKLY;INTERVAL=2;WKST=SU;BYDAY=MO,TH"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (rulePath == "") == (from == "") {
				return fmt.Errorf("exactly one of --rule and --from is required")
			}

			if from != "" {
				rule, err := recurrence.ParseRRule(from).Get()
				if err != nil {
					return err
				}
				a.logger.Debug("parsed RRULE", "rule", rule.String())
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(rule); err != nil {
					return fmt.Errorf("failed to encode rule: %w", err)
				}
				return enc.Close()
			}

			rule, err := loadRule(cmd.InOrStdin(), rulePath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule.RRule())
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulePath, "rule", "r", "", "rule file to convert to an RRULE")
	cmd.Flags().StringVar(&from, "from", "", "RRULE value to convert to a rule file")
	return cmd
}
