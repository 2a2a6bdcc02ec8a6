package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/libcadence/schedule"
	"github.com/google/uuid"
)

func newMessage(title string, status schedule.Status, nextRun *time.Time) *schedule.Message {
	return &schedule.Message{
		ID:      uuid.New(),
		Title:   title,
		Channel: "email",
		Start:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		NextRun: nextRun,
		Status:  status,
	}
}

func TestStore_Message(t *testing.T) {
	store := New()
	ctx := context.Background()

	msg := newMessage("weekly digest", schedule.StatusActive, nil)

	// Test getting non-existent message
	_, err := store.Get(ctx, msg.ID)
	if err == nil {
		t.Error("expected error getting non-existent message")
	} else if err.(*schedule.Error).Type != schedule.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Test creating message
	if err := store.Create(ctx, msg); err != nil {
		t.Errorf("unexpected error creating message: %v", err)
	}
	if msg.Created.IsZero() || msg.Modified.IsZero() {
		t.Error("expected Created and Modified to be set")
	}

	// Test creating duplicate message
	if err := store.Create(ctx, msg); err == nil {
		t.Error("expected error creating duplicate message")
	} else if err.(*schedule.Error).Type != schedule.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Test getting message
	got, err := store.Get(ctx, msg.ID)
	if err != nil {
		t.Errorf("unexpected error getting message: %v", err)
	}
	if got.ID != msg.ID || got.Title != msg.Title {
		t.Errorf("got message %+v, want %+v", got, msg)
	}

	// Test updating message
	got.Title = "monthly digest"
	if err := store.Update(ctx, got); err != nil {
		t.Errorf("unexpected error updating message: %v", err)
	}
	updated, _ := store.Get(ctx, msg.ID)
	if updated.Title != "monthly digest" {
		t.Errorf("got title %s, want monthly digest", updated.Title)
	}
	if !updated.Created.Equal(msg.Created) {
		t.Errorf("update changed Created from %v to %v", msg.Created, updated.Created)
	}

	// Test deleting message
	if err := store.Delete(ctx, msg.ID); err != nil {
		t.Errorf("unexpected error deleting message: %v", err)
	}
	if _, err := store.Get(ctx, msg.ID); err == nil {
		t.Error("expected error getting deleted message")
	}
	if err := store.Delete(ctx, msg.ID); err == nil {
		t.Error("expected error deleting missing message")
	} else if err.(*schedule.Error).Type != schedule.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, msg); err == nil {
		t.Error("expected error updating missing message")
	}
}

func TestStore_RejectsNilID(t *testing.T) {
	store := New()

	err := store.Create(context.Background(), &schedule.Message{Title: "no id"})
	if err == nil {
		t.Fatal("expected error creating message without id")
	}
	if err.(*schedule.Error).Type != schedule.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStore_CopiesInAndOut(t *testing.T) {
	store := New()
	ctx := context.Background()

	next := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	msg := newMessage("standup", schedule.StatusActive, &next)
	if err := store.Create(ctx, msg); err != nil {
		t.Fatalf("unexpected error creating message: %v", err)
	}

	// mutating the caller's copy must not reach the store
	*msg.NextRun = next.AddDate(1, 0, 0)
	msg.Title = "changed"

	got, _ := store.Get(ctx, msg.ID)
	if got.Title != "standup" || !got.NextRun.Equal(next) {
		t.Errorf("stored message was mutated through the caller's pointer: %+v", got)
	}

	// nor may mutating a returned copy
	*got.NextRun = next.AddDate(2, 0, 0)
	again, _ := store.Get(ctx, msg.ID)
	if !again.NextRun.Equal(next) {
		t.Errorf("stored message was mutated through a returned pointer: %v", again.NextRun)
	}
}

func TestStore_List(t *testing.T) {
	store := New()
	ctx := context.Background()

	active := newMessage("a", schedule.StatusActive, nil)
	paused := newMessage("b", schedule.StatusPaused, nil)
	paused.Channel = "sms"
	completed := newMessage("c", schedule.StatusCompleted, nil)
	for _, msg := range []*schedule.Message{active, paused, completed} {
		if err := store.Create(ctx, msg); err != nil {
			t.Fatalf("unexpected error creating message: %v", err)
		}
	}

	all, err := store.List(ctx, nil)
	if err != nil {
		t.Errorf("unexpected error listing messages: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d messages, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Created.Before(all[i-1].Created) {
			t.Errorf("messages not ordered by creation: %v before %v", all[i-1].Created, all[i].Created)
		}
	}

	open, _ := store.List(ctx, &schedule.ListOptions{Status: []schedule.Status{schedule.StatusActive, schedule.StatusPaused}})
	if len(open) != 2 {
		t.Errorf("got %d open messages, want 2", len(open))
	}

	sms, _ := store.List(ctx, &schedule.ListOptions{Channel: "sms"})
	if len(sms) != 1 || sms[0].ID != paused.ID {
		t.Errorf("got %v for channel filter, want only %s", sms, paused.ID)
	}
}

func TestStore_ListDue(t *testing.T) {
	store := New()
	ctx := context.Background()

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-2 * time.Hour)
	exactly := now
	later := now.Add(time.Minute)

	dueLate := newMessage("due late", schedule.StatusActive, &exactly)
	dueEarly := newMessage("due early", schedule.StatusActive, &earlier)
	notYet := newMessage("not yet", schedule.StatusActive, &later)
	paused := newMessage("paused", schedule.StatusPaused, &earlier)
	done := newMessage("done", schedule.StatusCompleted, nil)
	for _, msg := range []*schedule.Message{dueLate, dueEarly, notYet, paused, done} {
		if err := store.Create(ctx, msg); err != nil {
			t.Fatalf("unexpected error creating message: %v", err)
		}
	}

	due, err := store.ListDue(ctx, now)
	if err != nil {
		t.Errorf("unexpected error listing due messages: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d due messages, want 2", len(due))
	}
	if due[0].ID != dueEarly.ID || due[1].ID != dueLate.ID {
		t.Errorf("due messages not ordered by next run: %s, %s", due[0].Title, due[1].Title)
	}
}

func TestStore_UpdateRejectsStaleVersion(t *testing.T) {
	store := New()
	ctx := context.Background()

	msg := newMessage("reminder", schedule.StatusActive, nil)
	if err := store.Create(ctx, msg); err != nil {
		t.Fatalf("unexpected error creating message: %v", err)
	}

	// two writers read the same version
	first, _ := store.Get(ctx, msg.ID)
	second, _ := store.Get(ctx, msg.ID)

	first.Status = schedule.StatusPaused
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("unexpected error updating message: %v", err)
	}
	if first.Version != second.Version+1 {
		t.Errorf("got version %d after update, want %d", first.Version, second.Version+1)
	}

	second.Emitted = 1
	err := store.Update(ctx, second)
	if err == nil {
		t.Fatal("expected error updating from a stale version")
	}
	if !schedule.IsErrorType(err, schedule.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, _ := store.Get(ctx, msg.ID)
	if got.Status != schedule.StatusPaused || got.Emitted != 0 {
		t.Errorf("stale update overwrote the stored message: %+v", got)
	}

	// re-reading picks up the new version
	got.Emitted = 1
	if err := store.Update(ctx, got); err != nil {
		t.Errorf("unexpected error updating re-read message: %v", err)
	}
}
