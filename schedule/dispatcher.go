package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Sender delivers a single run of a scheduled message
type Sender interface {
	Send(ctx context.Context, msg *Message, occurrence time.Time) error
}

// DispatcherConfig holds configuration options for the dispatcher
type DispatcherConfig struct {
	Interval    time.Duration  // How often due messages are polled
	Concurrency int            // Maximum number of sends in flight
	Location    *time.Location // Location the cron schedule runs in; nil means time.Local
	Logger      *slog.Logger   // nil means slog.Default()
}

// DefaultDispatcherConfig polls every minute with a handful of concurrent sends
var DefaultDispatcherConfig = DispatcherConfig{
	Interval:    time.Minute,
	Concurrency: 4,
}

// Dispatcher periodically hands due messages to a Sender and marks them sent
type Dispatcher struct {
	service *Service
	sender  Sender
	config  DispatcherConfig
	logger  *slog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. Call Start to begin polling.
func NewDispatcher(service *Service, sender Sender, config DispatcherConfig) (*Dispatcher, error) {
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultDispatcherConfig.Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultDispatcherConfig.Concurrency
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLocation(config.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Dispatcher{
		service: service,
		sender:  sender,
		config:  config,
		logger:  logger,
		cron:    c,
		now:     time.Now,
	}, nil
}

// Start schedules the polling job and starts the cron runner
func (d *Dispatcher) Start() error {
	spec := "@every " + d.config.Interval.String()
	if _, err := d.cron.AddFunc(spec, d.tick); err != nil {
		return fmt.Errorf("add dispatch job: %w", err)
	}
	d.cron.Start()
	d.logger.Info("dispatcher started",
		slog.Duration("interval", d.config.Interval),
		slog.Int("concurrency", d.config.Concurrency))
	return nil
}

// Stop stops the cron runner and waits for a running dispatch to finish
func (d *Dispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Interval)
	defer cancel()

	sent, err := d.RunOnce(ctx, d.now())
	if err != nil {
		d.logger.Error("dispatch failed", slog.Int("sent", sent), slog.Any("error", err))
		return
	}
	if sent > 0 {
		d.logger.Info("dispatched messages", slog.Int("sent", sent))
	}
}

// RunOnce sends every message due at now and reports how many were sent. A
// failed send leaves its message due for the next run; all failures are
// returned together.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (int, error) {
	due, err := d.service.Due(ctx, now)
	if err != nil {
		return 0, err
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
		sent   atomic.Int64
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		result = multierror.Append(result, err)
	}

	var eg errgroup.Group
	eg.SetLimit(d.config.Concurrency)
	for _, msg := range due {
		eg.Go(func() error {
			occurrence := *msg.NextRun
			if err := d.sender.Send(ctx, msg, occurrence); err != nil {
				d.logger.Warn("send failed",
					slog.String("id", msg.ID.String()),
					slog.Time("occurrence", occurrence),
					slog.Any("error", err))
				fail(fmt.Errorf("send message %s: %w", msg.ID, err))
				return nil
			}
			if _, err := d.service.MarkSent(ctx, msg.ID, occurrence); err != nil {
				fail(fmt.Errorf("mark message %s sent: %w", msg.ID, err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	return int(sent.Load()), result.ErrorOrNil()
}
