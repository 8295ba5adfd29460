package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UserResponse represents the user profile response.
type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// GetUser handles user profile lookup against the directory.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.svc.LookupUser(r.Context(), id)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, UserResponse{ID: user.ID, Name: user.Name})
}
