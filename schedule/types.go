package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/google/uuid"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	// ErrConflict means the message changed since it was read
	ErrConflict      ErrorType = "conflict"
)

// Error represents a scheduling error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsErrorType reports whether err is an *Error of type t
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// Status is the lifecycle state of a scheduled message
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Message is a message sent to an audience on a recurring schedule
type Message struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	Channel      string          `json:"channel"`
	AudienceSize int             `json:"audienceSize"`
	Rule         recurrence.Rule `json:"rule"`

	// Start anchors the series; the first run is the first occurrence after it
	Start time.Time `json:"start"`
	// Emitted counts the occurrences consumed so far, sent or skipped
	Emitted int `json:"emitted"`
	// Skipped counts the occurrences that passed while the message was paused
	Skipped int `json:"skipped"`
	// NextRun is always the first occurrence of the series begun at Start
	// that falls after LastRun
	NextRun *time.Time `json:"nextRun,omitempty"`
	LastRun *time.Time `json:"lastRun,omitempty"`
	Status  Status     `json:"status"`

	// Version is bumped by the store on every update. An update carrying a
	// stale version fails with ErrConflict.
	Version int `json:"version"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Clone returns a deep copy of the message. Rule is immutable and shared.
func (m *Message) Clone() *Message {
	c := *m
	if m.NextRun != nil {
		next := *m.NextRun
		c.NextRun = &next
	}
	if m.LastRun != nil {
		last := *m.LastRun
		c.LastRun = &last
	}
	return &c
}

// since is the instant after which the series continues; zero before the
// first run
func (m *Message) since() time.Time {
	if m.LastRun != nil {
		return *m.LastRun
	}
	return time.Time{}
}

// Draft is the input for creating a message
type Draft struct {
	Title        string
	Body         string
	Channel      string
	AudienceSize int
	Rule         recurrence.Spec
	// Start defaults to the creation time
	Start time.Time
}

// ListOptions filters List results
type ListOptions struct {
	Status  []Status
	Channel string
}

// Matches reports whether m passes the filter. A nil filter matches everything.
func (o *ListOptions) Matches(m *Message) bool {
	if o == nil {
		return true
	}
	if o.Channel != "" && m.Channel != o.Channel {
		return false
	}
	if len(o.Status) == 0 {
		return true
	}
	for _, s := range o.Status {
		if m.Status == s {
			return true
		}
	}
	return false
}
