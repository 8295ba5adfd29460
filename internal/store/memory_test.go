package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/campuslink/chatd/internal/models"
)

func TestMemoryCountersConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounters()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := counters.IncrUnread(ctx, "bob", "dm:alice:bob"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := counters.Unread(ctx, "bob", "dm:alice:bob")
	if err != nil {
		t.Fatal(err)
	}
	if got != n {
		t.Fatalf("expected %d after %d concurrent increments, got %d", n, n, got)
	}
}

func TestMemoryCountersMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounters()

	for i := 0; i < 3; i++ {
		if err := counters.IncrUnread(ctx, "u1", "room-a"); err != nil {
			t.Fatal(err)
		}
	}

	if err := counters.MarkRead(ctx, "u1", "room-a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := counters.Unread(ctx, "u1", "room-a"); got != 0 {
		t.Fatalf("expected 0 after mark read, got %d", got)
	}

	// Second call is a no-op.
	if err := counters.MarkRead(ctx, "u1", "room-a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := counters.Unread(ctx, "u1", "room-a"); got != 0 {
		t.Fatalf("expected 0 after repeated mark read, got %d", got)
	}
}

func TestMemoryCountersMarkReadScopedToKey(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounters()

	counters.IncrUnread(ctx, "u1", "room-a")
	counters.IncrUnread(ctx, "u1", "room-b")
	counters.IncrUnread(ctx, "u2", "room-a")

	counters.MarkRead(ctx, "u1", "room-a")

	if got, _ := counters.Unread(ctx, "u1", "room-b"); got != 1 {
		t.Fatalf("other room affected: got %d", got)
	}
	if got, _ := counters.Unread(ctx, "u2", "room-a"); got != 1 {
		t.Fatalf("other user affected: got %d", got)
	}
}

func TestMemoryCountersPurgeRoom(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounters()

	counters.IncrUnread(ctx, "u1", "g-1")
	counters.IncrUnread(ctx, "u2", "g-1")
	counters.TouchActivity(ctx, "u1", "g-1", 12345)

	if err := counters.PurgeRoom(ctx, "g-1", []string{"u1", "u2"}); err != nil {
		t.Fatal(err)
	}

	for _, u := range []string{"u1", "u2"} {
		if got, _ := counters.Unread(ctx, u, "g-1"); got != 0 {
			t.Fatalf("expected absent counter for %s after purge, got %d", u, got)
		}
	}
	act, _ := counters.Activity(ctx, "u1")
	if _, ok := act["g-1"]; ok {
		t.Fatal("expected activity entry gone after purge")
	}
}

func TestMemoryLogRecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	for i := 0; i < 60; i++ {
		msg := &models.Message{
			RoomKey:   "room-a",
			FromID:    "u1",
			Body:      fmt.Sprintf("msg-%d", i),
			Timestamp: int64(1000 + i),
		}
		if err := log.Append(ctx, msg); err != nil {
			t.Fatal(err)
		}
		if msg.ID == "" {
			t.Fatal("expected assigned message id")
		}
	}

	msgs, err := log.Recent(ctx, "room-a", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(msgs))
	}
	// Most recent 50, ascending.
	if msgs[0].Body != "msg-10" || msgs[49].Body != "msg-59" {
		t.Fatalf("unexpected window: first=%s last=%s", msgs[0].Body, msgs[49].Body)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp < msgs[i-1].Timestamp {
			t.Fatal("messages not in ascending creation order")
		}
	}
}

func TestMemoryLogEmptyRoom(t *testing.T) {
	log := NewMemoryLog()
	msgs, err := log.Recent(context.Background(), "nope", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d", len(msgs))
	}
}
