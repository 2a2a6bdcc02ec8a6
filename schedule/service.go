package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/google/uuid"
)

// Service manages scheduled messages and advances their series as they are sent
type Service struct {
	store  Store
	engine *recurrence.Engine
	logger *slog.Logger
}

// NewService creates a service on top of store. A nil engine uses
// recurrence.NewEngine() and a nil logger uses slog.Default().
func NewService(store Store, engine *recurrence.Engine, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if engine == nil {
		engine = recurrence.NewEngine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		engine: engine,
		logger: logger,
	}, nil
}

func invalidRule(err error) error {
	return &Error{Type: ErrInvalidInput, Message: "invalid recurrence rule", Err: err}
}

// Create validates a draft and stores it as an active message. A rule with no
// occurrence after Start yields a completed message.
func (s *Service) Create(ctx context.Context, d Draft) (*Message, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, &Error{Type: ErrInvalidInput, Message: "message title cannot be empty"}
	}
	if d.AudienceSize < 0 {
		return nil, &Error{Type: ErrInvalidInput, Message: "audience size cannot be negative"}
	}

	rule, err := s.engine.Validate(d.Rule).Get()
	if err != nil {
		return nil, invalidRule(err)
	}

	start := d.Start
	if start.IsZero() {
		start = time.Now()
	}

	msg := &Message{
		ID:           uuid.New(),
		Title:        title,
		Body:         d.Body,
		Channel:      d.Channel,
		AudienceSize: d.AudienceSize,
		Rule:         rule,
		Start:        start,
		Status:       StatusActive,
	}
	if err := s.reschedule(msg); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.logger.Info("scheduled message created",
		slog.String("id", msg.ID.String()),
		slog.String("rule", rule.String()),
		slog.String("status", string(msg.Status)))
	return msg, nil
}

// reschedule points NextRun at the first occurrence after the last run,
// completing the message when there is none. The series is always projected
// from Start so clamped dates do not shift later runs.
func (s *Service) reschedule(msg *Message) error {
	next, ok, err := s.engine.NextRunSince(msg.Rule, msg.Start, msg.since(), msg.Emitted)
	if err != nil {
		return invalidRule(err)
	}
	if !ok {
		msg.NextRun = nil
		msg.Status = StatusCompleted
		return nil
	}
	msg.NextRun = &next
	if msg.Status == StatusCompleted {
		msg.Status = StatusActive
	}
	return nil
}

// consume moves the series past its next run
func (s *Service) consume(msg *Message) error {
	occurrence := *msg.NextRun
	msg.Emitted++
	msg.LastRun = &occurrence

	if s.engine.IsTerminalSince(msg.Rule, msg.Start, occurrence, msg.Emitted) {
		msg.NextRun = nil
		msg.Status = StatusCompleted
		return nil
	}
	return s.reschedule(msg)
}

// maxUpdateAttempts bounds how often modify starts over after a conflict
const maxUpdateAttempts = 3

// modify reads the message, lets fn change it and writes it back. When the
// store reports a conflicting update in between, the whole read-change-write
// starts over on a fresh copy. fn returns false to leave the message as it is.
func (s *Service) modify(ctx context.Context, id uuid.UUID, fn func(msg *Message) (bool, error)) (*Message, error) {
	for attempt := 1; ; attempt++ {
		msg, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		changed, err := fn(msg)
		if err != nil {
			return nil, err
		}
		if !changed {
			return msg, nil
		}

		err = s.store.Update(ctx, msg)
		if err == nil {
			return msg, nil
		}
		if !IsErrorType(err, ErrConflict) || attempt == maxUpdateAttempts {
			return nil, fmt.Errorf("update message: %w", err)
		}
		s.logger.Debug("message changed concurrently, retrying",
			slog.String("id", id.String()),
			slog.Int("attempt", attempt))
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	msg, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *Service) List(ctx context.Context, opts *ListOptions) ([]*Message, error) {
	messages, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.logger.Info("scheduled message deleted", slog.String("id", id.String()))
	return nil
}

// UpdateRule replaces the message's rule. Occurrences already consumed still
// count toward an occurrence count, and NextRun becomes the first occurrence of
// the new rule, projected from Start, after the last run.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, spec recurrence.Spec) (*Message, error) {
	rule, err := s.engine.Validate(spec).Get()
	if err != nil {
		return nil, invalidRule(err)
	}

	msg, err := s.modify(ctx, id, func(msg *Message) (bool, error) {
		msg.Rule = rule
		return true, s.reschedule(msg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scheduled message rule updated",
		slog.String("id", id.String()),
		slog.String("rule", rule.String()),
		slog.String("status", string(msg.Status)))
	return msg, nil
}

// Pause stops an active message from being dispatched
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*Message, error) {
	return s.modify(ctx, id, func(msg *Message) (bool, error) {
		switch msg.Status {
		case StatusPaused:
			return false, nil
		case StatusCompleted:
			return false, &Error{Type: ErrInvalidInput, Message: "completed message cannot be paused"}
		}
		msg.Status = StatusPaused
		return true, nil
	})
}

// Resume reactivates a paused message at the given instant. Occurrences that
// fell before at are skipped; they still count toward an occurrence count.
func (s *Service) Resume(ctx context.Context, id uuid.UUID, at time.Time) (*Message, error) {
	resumed := false
	msg, err := s.modify(ctx, id, func(msg *Message) (bool, error) {
		resumed = false
		switch msg.Status {
		case StatusActive:
			return false, nil
		case StatusCompleted:
			return false, &Error{Type: ErrInvalidInput, Message: "completed message cannot be resumed"}
		}

		msg.Status = StatusActive
		for msg.NextRun != nil && msg.NextRun.Before(at) {
			if err := s.consume(msg); err != nil {
				return false, err
			}
			msg.Skipped++
		}
		resumed = true
		return true, nil
	})
	if err != nil || !resumed {
		return msg, err
	}

	s.logger.Info("scheduled message resumed",
		slog.String("id", id.String()),
		slog.Int("skipped", msg.Skipped),
		slog.String("status", string(msg.Status)))
	return msg, nil
}

// Preview lists up to n upcoming runs of a stored message, starting with
// NextRun. n follows the engine's preview sizing.
func (s *Service) Preview(ctx context.Context, id uuid.UUID, n int) ([]time.Time, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.NextRun == nil {
		return []time.Time{}, nil
	}
	return s.engine.PreviewSince(msg.Rule, msg.Start, msg.since(), n, msg.Emitted)
}

// PreviewSpec previews an unsaved rule, e.g. while a form is being edited
func (s *Service) PreviewSpec(spec recurrence.Spec, anchor time.Time, n int) ([]time.Time, error) {
	rule, err := s.engine.Validate(spec).Get()
	if err != nil {
		return nil, invalidRule(err)
	}
	return s.engine.Preview(rule, anchor, n, 0)
}

// MarkSent records that the message's next run was delivered and advances the
// series. occurrence must equal the message's NextRun, which makes a repeated
// call for the same run an error instead of a double count.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID, occurrence time.Time) (*Message, error) {
	msg, err := s.modify(ctx, id, func(msg *Message) (bool, error) {
		if msg.NextRun == nil || !msg.NextRun.Equal(occurrence) {
			return false, &Error{
				Type:    ErrInvalidInput,
				Message: fmt.Sprintf("%s is not the next run of message %s", occurrence.Format(time.RFC3339), id),
			}
		}
		return true, s.consume(msg)
	})
	if err != nil {
		return nil, err
	}

	if msg.Status == StatusCompleted {
		s.logger.Info("scheduled message completed",
			slog.String("id", id.String()),
			slog.Int("emitted", msg.Emitted))
	}
	return msg, nil
}

// Due returns the active messages whose next run is at or before now
func (s *Service) Due(ctx context.Context, now time.Time) ([]*Message, error) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due messages: %w", err)
	}
	return due, nil
}

// IsNotFound reports whether err means the message does not exist
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrNotFound)
}

// IsInvalidRule reports whether err was caused by a malformed recurrence rule
func IsInvalidRule(err error) bool {
	return errors.Is(err, recurrence.ErrInvalidRule)
}
