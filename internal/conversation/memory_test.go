package conversation

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	sess, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.State != StateIdle {
		t.Errorf("missing session should read as idle, got %s", sess.State)
	}

	want := &Session{State: StateAwaitingName, Draft: &Draft{BaseName: "Phone"}}
	if err := store.Set(ctx, 1, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateAwaitingName || got.Draft.BaseName != "Phone" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got.State != StateIdle {
		t.Errorf("deleted session should read as idle, got %s", got.State)
	}
}

func TestMemoryStoreIdleTTL(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute).(*memoryStore)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, 1, &Session{State: StateAwaitingPrice, Draft: &Draft{}}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(29 * time.Minute)
	sess, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.State != StateAwaitingPrice {
		t.Errorf("session expired too early: %s", sess.State)
	}

	now = now.Add(2 * time.Minute)
	sess, err = store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.State != StateIdle {
		t.Errorf("abandoned draft should be discarded, got %s", sess.State)
	}
}
