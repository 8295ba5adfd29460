package handlers

import (
	"encoding/json"
	"net/http"
)

// UnreadResponse represents a user's unread counters by room key.
type UnreadResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// ActivityResponse represents a user's last-activity timestamps by room key.
type ActivityResponse struct {
	Activity map[string]int64 `json:"activity"`
}

// MarkReadRequest represents the mark-read request.
type MarkReadRequest struct {
	Room string `json:"room"`
}

// GetUnread returns the requester's unread counters.
func (h *Handler) GetUnread(w http.ResponseWriter, r *http.Request) {
	userID := requester(r)
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	counts, err := h.svc.UnreadCounts(r.Context(), userID)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, UnreadResponse{Counts: counts})
}

// GetActivity returns the requester's last-activity map, used for the
// "recently active" DM surfacing.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	userID := requester(r)
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	activity, err := h.svc.LastActivity(r.Context(), userID)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, ActivityResponse{Activity: activity})
}

// MarkRead resets the requester's unread counter for one room.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := requester(r)
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.MarkRead(r.Context(), userID, req.Room); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
