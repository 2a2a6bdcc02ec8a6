package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/emersion/go-ical"
)

const productID = "-//libcadence//Scheduled Messages//EN"

// EventUID is the iCalendar UID used for a message
func EventUID(msg *Message) string {
	return msg.ID.String() + "@libcadence"
}

// MessageEvent renders the remaining series of a message as a VEVENT. It
// returns recurrence.ErrSeriesEnded for completed messages.
func MessageEvent(msg *Message) (*ical.Component, error) {
	if msg.Status == StatusCompleted {
		return nil, recurrence.ErrSeriesEnded
	}
	event, err := recurrence.NewEventComponentSince(EventUID(msg), msg.Title, msg.Rule, msg.Start, msg.since(), msg.Emitted)
	if err != nil {
		return nil, err
	}
	if msg.Body != "" {
		event.Props.SetText(ical.PropDescription, msg.Body)
	}
	if msg.Channel != "" {
		event.Props.SetText(ical.PropCategories, msg.Channel)
	}
	if msg.Status == StatusPaused {
		event.Props.SetText(ical.PropStatus, "TENTATIVE")
	} else {
		event.Props.SetText(ical.PropStatus, "CONFIRMED")
	}
	if !msg.Modified.IsZero() {
		event.Props.SetDateTime(ical.PropLastModified, msg.Modified.UTC())
	}
	return event, nil
}

// ExportICS writes the messages matching opts as a single VCALENDAR. Completed
// messages are left out.
func (s *Service) ExportICS(ctx context.Context, w io.Writer, opts *ListOptions) error {
	messages, err := s.List(ctx, opts)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, msg := range messages {
		event, err := MessageEvent(msg)
		if errors.Is(err, recurrence.ErrSeriesEnded) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to export message %s: %w", msg.ID, err)
		}
		cal.Children = append(cal.Children, event)
	}

	// a VCALENDAR needs at least one component
	if len(cal.Children) == 0 {
		return &Error{Type: ErrNotFound, Message: "no scheduled messages to export"}
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	s.logger.Debug("exported calendar", slog.Int("events", len(cal.Children)))
	return nil
}
