package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/chatd/internal/models"
)

// RoomMessagesResponse represents the room history response.
type RoomMessagesResponse struct {
	Room     string           `json:"room"`
	Messages []models.Message `json:"messages"`
}

// GetRoomMessages handles the bounded recent-history read on room open.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "key")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	msgs, err := h.svc.RecentMessages(r.Context(), roomKey, limit)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, RoomMessagesResponse{Room: roomKey, Messages: msgs})
}
