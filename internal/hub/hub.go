package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/metrics"
)

// Hub tracks live connections and which room keys each has joined. It is a
// presence index, not an access-control list: membership checks happen in the
// service layer before a join reaches the hub.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connection id -> client
	rooms   map[string]map[*Client]struct{} // room key -> joined clients
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a live connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.logger.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client registered")
}

// Unregister removes a connection from the hub and from every room it joined,
// then closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c.ID]
	if known {
		delete(h.clients, c.ID)
		for key, members := range h.rooms {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, key)
			}
		}
	}
	h.mu.Unlock()

	if known {
		c.close()
		metrics.WSConnections.Dec()
		h.logger.Debug().Str("client_id", c.ID).Msg("client unregistered")
	}
}

// JoinRoom makes the connection eligible for the room's fan-out. Idempotent.
func (h *Hub) JoinRoom(c *Client, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	if _, ok := h.rooms[roomKey]; !ok {
		h.rooms[roomKey] = make(map[*Client]struct{})
	}
	h.rooms[roomKey][c] = struct{}{}
}

// LeaveRoom removes the connection from the room's fan-out targets.
func (h *Hub) LeaveRoom(c *Client, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomKey]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomKey)
		}
	}
}

// BroadcastRoom delivers v to every connection joined to roomKey except the
// connection with id exclude. Delivery is best-effort per connection: one
// slow or dead client never blocks the rest, and nothing is retried. The
// recipient reconciles on its next history fetch.
func (h *Hub) BroadcastRoom(roomKey string, v interface{}, exclude string) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomKey).Msg("broadcast marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[roomKey] {
		if c.ID == exclude {
			continue
		}
		if c.enqueue(data) {
			metrics.FanoutDelivered.Inc()
		} else {
			metrics.FanoutDropped.Inc()
		}
	}
}

// BroadcastAll delivers v to every connected client regardless of room
// membership. Used for group lifecycle events so all clients refresh their
// room list.
func (h *Hub) BroadcastAll(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("broadcast marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.enqueue(data) {
			metrics.FanoutDelivered.Inc()
		} else {
			metrics.FanoutDropped.Inc()
		}
	}
}

// RoomSize returns how many connections are joined to a room.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ActiveRooms returns the number of rooms with at least one joined connection.
func (h *Hub) ActiveRooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomUsers returns the distinct user ids currently joined to a room.
func (h *Hub) RoomUsers(roomKey string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	users := make([]string, 0, len(h.rooms[roomKey]))
	for c := range h.rooms[roomKey] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		users = append(users, c.UserID)
	}
	return users
}
