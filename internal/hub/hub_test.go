package hub

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/models"
)

func newTestClient(t *testing.T, h *Hub, id, userID string) *Client {
	t.Helper()
	c := NewClient(id, userID, h, nil, zerolog.Nop())
	h.Register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) *models.Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		return &ev
	default:
		return nil
	}
}

func TestBroadcastRoomExcludesSender(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient(t, h, "conn-a", "alice")
	b := newTestClient(t, h, "conn-b", "bob")
	c := newTestClient(t, h, "conn-c", "carol")

	h.JoinRoom(a, "room-1")
	h.JoinRoom(b, "room-1")
	h.JoinRoom(c, "room-1")

	h.BroadcastRoom("room-1", models.Event{Type: models.EventReceiveMessage}, "conn-a")

	if ev := recvEvent(t, a); ev != nil {
		t.Fatal("sender should not receive its own broadcast")
	}
	if ev := recvEvent(t, b); ev == nil || ev.Type != models.EventReceiveMessage {
		t.Fatalf("expected receive_message for b, got %+v", ev)
	}
	if ev := recvEvent(t, c); ev == nil {
		t.Fatal("expected receive_message for c")
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient(t, h, "conn-a", "alice")
	b := newTestClient(t, h, "conn-b", "bob")

	h.JoinRoom(a, "room-1")
	h.JoinRoom(b, "room-1")
	h.LeaveRoom(b, "room-1")

	h.BroadcastRoom("room-1", models.Event{Type: models.EventReceiveMessage}, "")

	if ev := recvEvent(t, a); ev == nil {
		t.Fatal("remaining member should still receive broadcasts")
	}
	if ev := recvEvent(t, b); ev != nil {
		t.Fatal("client that left should not receive broadcasts")
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient(t, h, "conn-a", "alice")

	h.JoinRoom(a, "room-1")
	h.JoinRoom(a, "room-1")

	if size := h.RoomSize("room-1"); size != 1 {
		t.Fatalf("expected room size 1 after double join, got %d", size)
	}

	h.BroadcastRoom("room-1", models.Event{Type: models.EventReceiveMessage}, "")
	if ev := recvEvent(t, a); ev == nil {
		t.Fatal("expected one delivery")
	}
	if ev := recvEvent(t, a); ev != nil {
		t.Fatal("double join must not duplicate delivery")
	}
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient(t, h, "conn-a", "alice")
	b := newTestClient(t, h, "conn-b", "bob")

	h.JoinRoom(a, "room-1")
	h.JoinRoom(a, "room-2")
	h.JoinRoom(b, "room-1")

	h.Unregister(a)

	if size := h.RoomSize("room-1"); size != 1 {
		t.Fatalf("expected 1 member left in room-1, got %d", size)
	}
	if size := h.RoomSize("room-2"); size != 0 {
		t.Fatalf("expected empty room-2 after unregister, got %d", size)
	}

	// A second unregister must be a no-op, not a panic on a closed channel.
	h.Unregister(a)

	h.BroadcastRoom("room-1", models.Event{Type: models.EventReceiveMessage}, "")
	if ev := recvEvent(t, b); ev == nil {
		t.Fatal("remaining client should receive broadcast")
	}
}

func TestBroadcastAllReachesEveryConnection(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := newTestClient(t, h, "conn-a", "alice")
	b := newTestClient(t, h, "conn-b", "bob")

	// Neither joined any room; lifecycle events reach them anyway.
	h.BroadcastAll(models.Event{Type: models.EventGroupCreated})

	for _, c := range []*Client{a, b} {
		if ev := recvEvent(t, c); ev == nil || ev.Type != models.EventGroupCreated {
			t.Fatalf("expected group_created for %s", c.ID)
		}
	}
}
