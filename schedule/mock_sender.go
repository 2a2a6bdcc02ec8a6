package schedule

import (
	"context"
	"time"

	"github.com/cyp0633/libcadence/recurrence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSender implements the Sender interface for testing
type MockSender struct {
	mock.Mock
}

// Send implements the Sender interface
func (m *MockSender) Send(ctx context.Context, msg *Message, occurrence time.Time) error {
	args := m.Called(ctx, msg, occurrence)
	return args.Error(0)
}

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, opts *ListOptions) ([]*Message, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Message), args.Error(1)
}

func (m *MockStore) ListDue(ctx context.Context, before time.Time) ([]*Message, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Message), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockMessage creates an active message with the given rule whose next run
// is nextRun
func NewMockMessage(title string, rule recurrence.Rule, start, nextRun time.Time) *Message {
	next := nextRun
	return &Message{
		ID:       uuid.New(),
		Title:    title,
		Channel:  "email",
		Rule:     rule,
		Start:    start,
		NextRun:  &next,
		Status:   StatusActive,
		Created:  start,
		Modified: start,
	}
}
