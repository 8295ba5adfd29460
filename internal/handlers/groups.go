package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/chatd/internal/models"
)

// CreateGroupRequest represents the group creation request.
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest represents the add-member request.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// GroupListResponse represents the group list response.
type GroupListResponse struct {
	Groups []models.Group `json:"groups"`
}

// CreateGroup handles group creation.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	creator := requester(r)
	if creator == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	group, err := h.svc.CreateGroup(r.Context(), creator, req.Name)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, group)
}

// DeleteGroup handles group deletion. Admin only.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	if err := h.svc.DeleteGroup(r.Context(), req, chi.URLParam(r, "id")); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGroups handles the room-list read path clients refresh on lifecycle
// events.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	h.JSON(w, http.StatusOK, GroupListResponse{Groups: groups})
}

// AddMember handles adding a user to a group.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	var body AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		h.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.svc.AddMember(r.Context(), req, chi.URLParam(r, "id"), body.UserID); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles removing a user from a group.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		h.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	if err := h.svc.RemoveMember(r.Context(), req, chi.URLParam(r, "id"), chi.URLParam(r, "userID")); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
