// memory based implementation for testing purposes
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cyp0633/libcadence/schedule"
	"github.com/google/uuid"
)

// Store implements schedule.Store using an in-memory map
type Store struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*schedule.Message
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		messages: make(map[uuid.UUID]*schedule.Message),
	}
}

func notFound() error {
	return &schedule.Error{
		Type:    schedule.ErrNotFound,
		Message: "message not found",
	}
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*schedule.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, notFound()
	}

	return msg.Clone(), nil
}

func (s *Store) List(_ context.Context, opts *schedule.ListOptions) ([]*schedule.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []*schedule.Message
	for _, msg := range s.messages {
		if opts.Matches(msg) {
			messages = append(messages, msg.Clone())
		}
	}
	sortByCreated(messages)

	return messages, nil
}

func (s *Store) ListDue(_ context.Context, before time.Time) ([]*schedule.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*schedule.Message
	for _, msg := range s.messages {
		if msg.Status == schedule.StatusActive && msg.NextRun != nil && !msg.NextRun.After(before) {
			due = append(due, msg.Clone())
		}
	}
	slices.SortFunc(due, func(a, b *schedule.Message) int {
		return a.NextRun.Compare(*b.NextRun)
	})

	return due, nil
}

func (s *Store) Create(_ context.Context, msg *schedule.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil {
		return &schedule.Error{
			Type:    schedule.ErrInvalidInput,
			Message: "message id is required",
		}
	}
	if _, exists := s.messages[msg.ID]; exists {
		return &schedule.Error{
			Type:    schedule.ErrAlreadyExists,
			Message: "message already exists",
		}
	}

	now := time.Now()
	msg.Created = now
	msg.Modified = now
	msg.Version = 1
	s.messages[msg.ID] = msg.Clone()

	return nil
}

func (s *Store) Update(_ context.Context, msg *schedule.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.messages[msg.ID]
	if !exists {
		return notFound()
	}
	if msg.Version != existing.Version {
		return &schedule.Error{
			Type:    schedule.ErrConflict,
			Message: fmt.Sprintf("message is at version %d, update was based on %d", existing.Version, msg.Version),
		}
	}

	msg.Created = existing.Created
	msg.Modified = time.Now()
	msg.Version = existing.Version + 1
	s.messages[msg.ID] = msg.Clone()

	return nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[id]; !exists {
		return notFound()
	}

	delete(s.messages, id)

	return nil
}

func sortByCreated(messages []*schedule.Message) {
	slices.SortFunc(messages, func(a, b *schedule.Message) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
}
