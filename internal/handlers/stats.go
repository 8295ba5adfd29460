package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	Connections int    `json:"connections"`
	ActiveRooms int    `json:"active_rooms"`
	Groups      int    `json:"groups"`
	Timestamp   string `json:"timestamp"`
}

// PresenceResponse lists the users currently connected to a room.
type PresenceResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// Stats returns live engine statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		Connections: h.hub.ConnectionCount(),
		ActiveRooms: h.hub.ActiveRooms(),
		Groups:      len(groups),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetRoomPresence returns the users currently joined to a room. Presence is
// per-node state; it reflects this instance's connections only.
func (h *Handler) GetRoomPresence(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	users := h.hub.RoomUsers(key)
	if users == nil {
		users = []string{}
	}

	h.JSON(w, http.StatusOK, PresenceResponse{Room: key, Users: users})
}
