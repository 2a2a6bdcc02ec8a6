package schedule_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/cyp0633/libcadence/schedule"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, svc *schedule.Service, sender schedule.Sender, interval time.Duration) *schedule.Dispatcher {
	t.Helper()
	d, err := schedule.NewDispatcher(svc, sender, schedule.DispatcherConfig{
		Interval:    interval,
		Concurrency: 2,
		Location:    time.UTC,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return d
}

func isTitled(title string) func(*schedule.Message) bool {
	return func(m *schedule.Message) bool { return m.Title == title }
}

func TestNewDispatcher_RequiresDependencies(t *testing.T) {
	svc := newService(t)

	_, err := schedule.NewDispatcher(nil, new(schedule.MockSender), schedule.DefaultDispatcherConfig)
	assert.Error(t, err)
	_, err = schedule.NewDispatcher(svc, nil, schedule.DefaultDispatcherConfig)
	assert.Error(t, err)
}

func TestDispatcher_RunOnce(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, title := range []string{"welcome", "broken", "newsletter"} {
		_, err := svc.Create(ctx, schedule.Draft{
			Title: title,
			Rule:  recurrence.Spec{Frequency: recurrence.FrequencyDaily, Interval: 1},
			Start: newYear,
		})
		require.NoError(t, err)
	}

	sender := new(schedule.MockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(isTitled("broken")), date(1, 2, 9)).
		Return(errors.New("smtp down"))
	sender.On("Send", mock.Anything, mock.MatchedBy(isTitled("welcome")), date(1, 2, 9)).Return(nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(isTitled("newsletter")), date(1, 2, 9)).Return(nil)

	d := newDispatcher(t, svc, sender, time.Minute)
	sent, err := d.RunOnce(ctx, date(1, 2, 10))
	assert.Equal(t, 2, sent)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	assert.Contains(t, merr.Errors[0].Error(), "smtp down")
	sender.AssertNumberOfCalls(t, "Send", 3)

	// only the failed message is still due
	due, err := svc.Due(ctx, date(1, 2, 10))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "broken", due[0].Title)
	assert.Equal(t, date(1, 2, 9), *due[0].NextRun)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	for _, msg := range all {
		if msg.Title == "broken" {
			assert.Zero(t, msg.Emitted)
			continue
		}
		assert.Equal(t, 1, msg.Emitted)
		assert.Equal(t, date(1, 3, 9), *msg.NextRun)
	}
}

func TestDispatcher_RunOnceNothingDue(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), schedule.Draft{
		Title: "later",
		Rule:  recurrence.Spec{Frequency: recurrence.FrequencyWeekly, Interval: 1},
		Start: newYear,
	})
	require.NoError(t, err)

	sender := new(schedule.MockSender)
	d := newDispatcher(t, svc, sender, time.Minute)

	sent, err := d.RunOnce(context.Background(), date(1, 5, 0))
	assert.NoError(t, err)
	assert.Zero(t, sent)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_RunOnceCompletesSeries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	msg, err := svc.Create(ctx, schedule.Draft{
		Title: "once",
		Rule:  recurrence.Spec{Frequency: recurrence.FrequencyDaily, Interval: 1, OccurrenceCount: intPtr(1)},
		Start: newYear,
	})
	require.NoError(t, err)

	sender := new(schedule.MockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	d := newDispatcher(t, svc, sender, time.Minute)

	sent, err := d.RunOnce(ctx, date(2, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = d.RunOnce(ctx, date(3, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, stored.Status)
	sender.AssertExpectations(t)
}

func TestDispatcher_StartStop(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), schedule.Draft{
		Title: "overdue",
		Rule:  recurrence.Spec{Frequency: recurrence.FrequencyDaily, Interval: 1},
		Start: time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	sender := new(schedule.MockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(isTitled("overdue")), mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case called <- struct{}{}:
			default:
			}
		}).
		Return(nil)

	d := newDispatcher(t, svc, sender, time.Second)
	require.NoError(t, d.Start())
	defer d.Stop()

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not send the overdue message")
	}
}
