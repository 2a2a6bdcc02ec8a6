package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/cyp0633/libcadence/schedule"
	"github.com/cyp0633/libcadence/schedule/memory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// messageFile is the YAML layout read by run and export
type messageFile struct {
	Messages []struct {
		Title    string          `yaml:"title"`
		Body     string          `yaml:"body"`
		Channel  string          `yaml:"channel"`
		Audience int             `yaml:"audience"`
		Start    time.Time       `yaml:"start"`
		Rule     recurrence.Spec `yaml:"rule"`
	} `yaml:"messages"`
}

// loadMessages builds an in-memory service holding the messages in path
func (a *app) loadMessages(ctx context.Context, stdin io.Reader, path string) (*schedule.Service, *recurrence.Engine, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read messages: %w", err)
	}
	var file messageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	config := recurrence.DefaultEngineConfig
	config.Logger = a.logger
	engine := recurrence.NewEngineWithConfig(config)

	svc, err := schedule.NewService(memory.New(), engine, a.logger)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	for i, m := range file.Messages {
		_, err := svc.Create(ctx, schedule.Draft{
			Title:        m.Title,
			Body:         m.Body,
			Channel:      m.Channel,
			AudienceSize: m.Audience,
			Rule:         m.Rule,
			Start:        m.Start,
		})
		if err != nil {
			engine.Close()
			return nil, nil, fmt.Errorf("message %d (%q): %w", i+1, m.Title, err)
		}
	}
	return svc, engine, nil
}

// printSender writes every delivery as a line of tab separated fields
type printSender struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
}

func (s *printSender) Send(ctx context.Context, msg *schedule.Message, occurrence time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s\t%s\t%s\t%d\n",
		occurrence.Format(time.RFC3339), msg.Channel, msg.Title, msg.AudienceSize); err != nil {
		return err
	}
	s.logger.Debug("message sent",
		slog.String("id", msg.ID.String()),
		slog.Int("run", msg.Emitted+1))
	return nil
}

func (a *app) runCmd() *cobra.Command {
	var (
		messagesPath string
		interval     time.Duration
		concurrency  int
		once         bool
		at           string
		zone         string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch scheduled messages from a file",
		Long: `Loads scheduled messages from a YAML file and prints each run as it becomes due.

  messages:
    - title: Weekly digest
      channel: email
      audience: 1200
      start: 2024-01-07T09:00:00Z
      rule: {frequency: weekly, interval: 1, daysOfWeek: [1]}

With --once the messages due at --at (default now) are printed and the command
exits. Otherwise the dispatcher polls every --interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, engine, err := a.loadMessages(ctx, cmd.InOrStdin(), messagesPath)
			if err != nil {
				return err
			}
			defer engine.Close()

			sender := &printSender{out: cmd.OutOrStdout(), logger: a.logger}
			d, err := schedule.NewDispatcher(svc, sender, schedule.DispatcherConfig{
				Interval:    interval,
				Concurrency: concurrency,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}

			if once {
				now, err := parseAnchor(at, zone)
				if err != nil {
					return err
				}
				sent, err := d.RunOnce(ctx, now)
				a.logger.Info("dispatch finished", slog.Int("sent", sent))
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := d.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			d.Stop()
			return nil
		},
	}

	cmd.Flags().StringVarP(&messagesPath, "messages", "m", "", "messages file (YAML, - for stdin)")
	cmd.Flags().DurationVar(&interval, "interval", schedule.DefaultDispatcherConfig.Interval, "polling interval")
	cmd.Flags().IntVar(&concurrency, "concurrency", schedule.DefaultDispatcherConfig.Concurrency, "maximum concurrent sends")
	cmd.Flags().BoolVar(&once, "once", false, "dispatch what is due once and exit")
	cmd.Flags().StringVar(&at, "at", "", "with --once, the time to dispatch at (default now)")
	cmd.Flags().StringVar(&zone, "tz", "", "IANA time zone for --at")
	_ = cmd.MarkFlagRequired("messages")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var messagesPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the messages in a file as an iCalendar feed",
		Long: `Loads scheduled messages from a YAML file (see "cadence run --help") and writes
the series that have not ended as one VCALENDAR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, engine, err := a.loadMessages(cmd.Context(), cmd.InOrStdin(), messagesPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			return svc.ExportICS(cmd.Context(), cmd.OutOrStdout(), nil)
		},
	}

	cmd.Flags().StringVarP(&messagesPath, "messages", "m", "", "messages file (YAML, - for stdin)")
	_ = cmd.MarkFlagRequired("messages")
	return cmd
}
