package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/campuslink/chatd/internal/chat"
	"github.com/campuslink/chatd/internal/directory"
	"github.com/campuslink/chatd/internal/hub"
	"github.com/campuslink/chatd/internal/models"
	"github.com/campuslink/chatd/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc    *chat.Service
	hub    *hub.Hub
	groups store.GroupStore
	cache  *store.RedisStore // nil when running on in-memory stores
	dir    directory.Directory
	logger zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(svc *chat.Service, h *hub.Hub, groups store.GroupStore, cache *store.RedisStore, dir directory.Directory, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, hub: h, groups: groups, cache: cache, dir: dir, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) WriteDomainError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var nferr *models.NotFoundError
	var aerr *models.AuthorizationError
	var perr *models.PersistenceError

	switch {
	case errors.As(err, &verr):
		h.Error(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nferr):
		h.Error(w, http.StatusNotFound, nferr.Error())
	case errors.As(err, &aerr):
		h.Error(w, http.StatusForbidden, aerr.Error())
	case errors.As(err, &perr):
		h.logger.Error().Err(err).Msg("storage failure")
		h.Error(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.logger.Error().Err(err).Msg("unexpected error")
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// errCode maps the engine's error taxonomy onto websocket error codes.
func errCode(err error) string {
	var verr *models.ValidationError
	var nferr *models.NotFoundError
	var aerr *models.AuthorizationError
	var perr *models.PersistenceError

	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &nferr):
		return "not_found"
	case errors.As(err, &aerr):
		return "forbidden"
	case errors.As(err, &perr):
		return "unavailable"
	default:
		return "internal"
	}
}

// requester extracts the acting user id. Authentication happens upstream in
// the platform gateway; this service trusts the forwarded identity header.
func requester(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
