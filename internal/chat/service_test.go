package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/directory"
	"github.com/campuslink/chatd/internal/models"
	"github.com/campuslink/chatd/internal/room"
	"github.com/campuslink/chatd/internal/store"
)

type roomEvent struct {
	roomKey string
	event   models.Event
	exclude string
}

// fakeBroadcaster records fan-out without a live hub.
type fakeBroadcaster struct {
	mu   sync.Mutex
	room []roomEvent
	all  []models.Event
}

func (f *fakeBroadcaster) BroadcastRoom(roomKey string, v interface{}, exclude string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = append(f.room, roomEvent{roomKey: roomKey, event: v.(models.Event), exclude: exclude})
}

func (f *fakeBroadcaster) BroadcastAll(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all = append(f.all, v.(models.Event))
}

type fixture struct {
	svc      *Service
	groups   *store.MemoryGroups
	counters *store.MemoryCounters
	messages *store.MemoryLog
	bc       *fakeBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	for _, u := range []string{"alice", "bob", "carol"} {
		dir.Add(models.User{ID: u, Name: u})
	}

	f := &fixture{
		groups:   store.NewMemoryGroups(),
		counters: store.NewMemoryCounters(),
		messages: store.NewMemoryLog(),
		bc:       &fakeBroadcaster{},
	}
	f.svc = NewService(f.groups, f.messages, f.counters, dir, f.bc, zerolog.Nop(), Options{})
	return f
}

func (f *fixture) createGroup(t *testing.T, admin string, members ...string) *models.Group {
	t.Helper()
	ctx := context.Background()
	g, err := f.svc.CreateGroup(ctx, admin, "study group")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range members {
		if err := f.svc.AddMember(ctx, admin, g.ID.String(), m); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func (f *fixture) unread(t *testing.T, user, roomKey string) int64 {
	t.Helper()
	n, err := f.counters.Unread(context.Background(), user, roomKey)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestGroupMessageUpdatesCountersAndActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob", "carol")
	key := g.ID.String()

	msg, err := f.svc.SendMessage(ctx, "conn-a", "alice", key, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" || msg.Timestamp == 0 {
		t.Fatal("expected assigned id and timestamp")
	}

	if got := f.unread(t, "bob", key); got != 1 {
		t.Fatalf("bob unread = %d, want 1", got)
	}
	if got := f.unread(t, "carol", key); got != 1 {
		t.Fatalf("carol unread = %d, want 1", got)
	}
	if got := f.unread(t, "alice", key); got != 0 {
		t.Fatalf("sender unread = %d, want 0", got)
	}

	after, err := f.groups.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !after.LastMessageAt.After(g.LastMessageAt) {
		t.Fatal("expected group lastMessageAt to advance")
	}

	if len(f.bc.room) != 1 {
		t.Fatalf("expected 1 room broadcast, got %d", len(f.bc.room))
	}
	ev := f.bc.room[0]
	if ev.roomKey != key || ev.exclude != "conn-a" || ev.event.Type != models.EventReceiveMessage {
		t.Fatalf("unexpected broadcast %+v", ev)
	}
}

func TestConcurrentSendsNeverLoseIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob")
	key := g.ID.String()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.SendMessage(ctx, "conn-a", "alice", key, "x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := f.unread(t, "bob", key); got != n {
		t.Fatalf("bob unread = %d after %d concurrent sends, want %d", got, n, n)
	}
}

func TestDirectMessagesCountOnlyTheOtherParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key, err := room.DirectKey("alice", "bob")
	if err != nil {
		t.Fatal(err)
	}

	// Three alternating messages: alice, bob, alice.
	for i, sender := range []string{"alice", "bob", "alice"} {
		if _, err := f.svc.SendMessage(ctx, "conn", sender, key, "hey"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if got := f.unread(t, "bob", key); got != 2 {
		t.Fatalf("bob unread = %d, want 2 (alice's messages only)", got)
	}
	if got := f.unread(t, "alice", key); got != 1 {
		t.Fatalf("alice unread = %d, want 1 (bob's message only)", got)
	}

	// DM activity is tracked for both participants.
	for _, u := range []string{"alice", "bob"} {
		act, err := f.svc.LastActivity(ctx, u)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := act[key]; !ok {
			t.Fatalf("expected activity entry for %s", u)
		}
	}
}

func TestDirectMessageRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	key, _ := room.DirectKey("alice", "bob")

	_, err := f.svc.SendMessage(context.Background(), "conn", "carol", key, "hi")
	var aerr *models.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key, _ := room.DirectKey("alice", "bob")
	var verr *models.ValidationError
	var nferr *models.NotFoundError

	if _, err := f.svc.SendMessage(ctx, "conn", "alice", key, "   "); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty content, got %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, "conn", "alice", key, strings.Repeat("a", 2001)); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for oversized content, got %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, "conn", "nobody", key, "hi"); !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for unknown sender, got %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, "conn", "alice", "", "hi"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing room key, got %v", err)
	}

	// None of the rejected sends may have persisted anything.
	msgs, err := f.svc.RecentMessages(ctx, key, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(msgs))
	}
	if got := f.unread(t, "bob", key); got != 0 {
		t.Fatalf("expected no counter mutation, got %d", got)
	}
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key, _ := room.DirectKey("alice", "bob")

	for i := 0; i < 3; i++ {
		if _, err := f.svc.SendMessage(ctx, "conn", "alice", key, "hi"); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.svc.MarkRead(ctx, "bob", key); err != nil {
		t.Fatal(err)
	}
	if got := f.unread(t, "bob", key); got != 0 {
		t.Fatalf("bob unread = %d after mark read, want 0", got)
	}
	if err := f.svc.MarkRead(ctx, "bob", key); err != nil {
		t.Fatal(err)
	}
	if got := f.unread(t, "bob", key); got != 0 {
		t.Fatal("second mark read must stay at 0")
	}
}

func TestDeleteGroupRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob")

	err := f.svc.DeleteGroup(ctx, "bob", g.ID.String())
	var aerr *models.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}

	// Group and members unchanged.
	after, err := f.groups.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after == nil || len(after.Members) != 2 {
		t.Fatalf("group should be unchanged, got %+v", after)
	}
}

func TestDeleteGroupOrphansCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob", "carol")
	key := g.ID.String()

	if _, err := f.svc.SendMessage(ctx, "conn", "alice", key, "hi"); err != nil {
		t.Fatal(err)
	}
	if got := f.unread(t, "bob", key); got != 1 {
		t.Fatalf("precondition: bob unread = %d, want 1", got)
	}

	if err := f.svc.DeleteGroup(ctx, "alice", key); err != nil {
		t.Fatal(err)
	}

	for _, u := range []string{"alice", "bob", "carol"} {
		counts, err := f.svc.UnreadCounts(ctx, u)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := counts[key]; ok {
			t.Fatalf("expected no counter for deleted room for %s", u)
		}
	}

	// Sends into the deleted room fail with NotFound.
	_, err := f.svc.SendMessage(ctx, "conn", "alice", key, "hi again")
	var nferr *models.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for deleted room, got %v", err)
	}

	// Lifecycle events went to everyone: created + deleted.
	if len(f.bc.all) != 2 {
		t.Fatalf("expected 2 global broadcasts, got %d", len(f.bc.all))
	}
	if f.bc.all[0].Type != models.EventGroupCreated || f.bc.all[1].Type != models.EventGroupDeleted {
		t.Fatalf("unexpected lifecycle events %+v", f.bc.all)
	}
}

func TestUnreadCountsDropStaleGroupEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A counter left behind for a room that no longer exists must read as
	// absent even though storage was never purged.
	stale := "0b9f6c2e-8f4f-4d6b-9a8c-8e8f0c0d1e2f"
	f.counters.IncrUnread(ctx, "bob", stale)

	dmKey, _ := room.DirectKey("alice", "bob")
	f.counters.IncrUnread(ctx, "bob", dmKey)

	counts, err := f.svc.UnreadCounts(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := counts[stale]; ok {
		t.Fatal("stale group counter should be dropped")
	}
	if counts[dmKey] != 1 {
		t.Fatalf("dm counter missing: %+v", counts)
	}
}

func TestAuthorizeJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob")
	key := g.ID.String()

	if err := f.svc.AuthorizeJoin(ctx, "bob", key); err != nil {
		t.Fatalf("member join should pass: %v", err)
	}

	var aerr *models.AuthorizationError
	if err := f.svc.AuthorizeJoin(ctx, "carol", key); !errors.As(err, &aerr) {
		t.Fatalf("non-member join should fail with AuthorizationError, got %v", err)
	}

	dmKey, _ := room.DirectKey("alice", "bob")
	if err := f.svc.AuthorizeJoin(ctx, "alice", dmKey); err != nil {
		t.Fatalf("participant join should pass: %v", err)
	}
	if err := f.svc.AuthorizeJoin(ctx, "carol", dmKey); !errors.As(err, &aerr) {
		t.Fatalf("outsider join should fail with AuthorizationError, got %v", err)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var verr *models.ValidationError
	var nferr *models.NotFoundError

	if _, err := f.svc.CreateGroup(ctx, "alice", ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty name, got %v", err)
	}
	if _, err := f.svc.CreateGroup(ctx, "alice", strings.Repeat("x", 51)); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for long name, got %v", err)
	}
	if _, err := f.svc.CreateGroup(ctx, "nobody", "ok name"); !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for unknown creator, got %v", err)
	}

	g, err := f.svc.CreateGroup(ctx, "alice", "ok name")
	if err != nil {
		t.Fatal(err)
	}
	if g.AdminID != "alice" || len(g.Members) != 1 || g.Members[0] != "alice" {
		t.Fatalf("creator should be sole member and admin, got %+v", g)
	}
}

func TestRemoveMemberRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice", "bob", "carol")
	key := g.ID.String()

	var aerr *models.AuthorizationError
	var verr *models.ValidationError

	// carol cannot remove bob.
	if err := f.svc.RemoveMember(ctx, "carol", key, "bob"); !errors.As(err, &aerr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	// the admin cannot be removed.
	if err := f.svc.RemoveMember(ctx, "alice", key, "alice"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// bob may leave on his own.
	if err := f.svc.RemoveMember(ctx, "bob", key, "bob"); err != nil {
		t.Fatal(err)
	}
	// admin may remove carol.
	if err := f.svc.RemoveMember(ctx, "alice", key, "carol"); err != nil {
		t.Fatal(err)
	}

	after, _ := f.groups.GetGroup(ctx, g.ID)
	if len(after.Members) != 1 || after.Members[0] != "alice" {
		t.Fatalf("unexpected members %+v", after.Members)
	}
}

func TestRecentMessagesForDeletedGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "alice")
	key := g.ID.String()

	if _, err := f.svc.SendMessage(ctx, "conn", "alice", key, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteGroup(ctx, "alice", key); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.RecentMessages(ctx, key, 0)
	var nferr *models.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError for deleted room history, got %v", err)
	}
}
