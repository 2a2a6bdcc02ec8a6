package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store connects the scheduler with your backend storage (e.g. database).
// Please use the error types provided. Implementations must not keep the
// pointers they are given or hand out pointers to their own state.
type Store interface {
	// Get finds a message by id
	Get(ctx context.Context, id uuid.UUID) (*Message, error)
	// List returns the messages matching opts, oldest first. A nil opts lists everything.
	List(ctx context.Context, opts *ListOptions) ([]*Message, error)
	// ListDue returns active messages whose next run is at or before the given instant
	ListDue(ctx context.Context, before time.Time) ([]*Message, error)
	// Create stores a new message. Implementations set Created and Modified.
	Create(ctx context.Context, msg *Message) error
	// Update replaces an existing message. Implementations set Modified and
	// bump Version, and return an ErrConflict error when msg.Version does not
	// match the stored one.
	Update(ctx context.Context, msg *Message) error
	// Delete removes a message
	Delete(ctx context.Context, id uuid.UUID) error
}
