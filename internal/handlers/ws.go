package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/campuslink/chatd/internal/hub"
	"github.com/campuslink/chatd/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is a client-to-server websocket frame.
type wsFrame struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

// WebSocket upgrades the connection and runs the frame loop for one client.
// The user identity is resolved before the upgrade; unknown users never get a
// connection.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	user, err := h.svc.LookupUser(r.Context(), userID)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "unknown user")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), userID, h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump(h.handleFrame)
}

// handleFrame dispatches one inbound frame. Errors go back to the sender as
// error events; they never tear the connection down.
func (h *Handler) handleFrame(c *hub.Client, raw []byte) {
	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(c, "validation", "invalid frame")
		return
	}

	// The read loop outlives the upgrade request, so frames run on their
	// own context.
	ctx := context.Background()

	switch frame.Type {
	case "join_room":
		if err := h.svc.AuthorizeJoin(ctx, c.UserID, frame.Room); err != nil {
			h.sendError(c, errCode(err), err.Error())
			return
		}
		h.hub.JoinRoom(c, frame.Room)
		c.Send(models.Event{Type: models.EventRoomJoined, Payload: frame.Room})

	case "leave_room":
		h.hub.LeaveRoom(c, frame.Room)
		c.Send(models.Event{Type: models.EventRoomLeft, Payload: frame.Room})

	case "send_message":
		msg, err := h.svc.SendMessage(ctx, c.ID, c.UserID, frame.Room, frame.Content)
		if err != nil {
			h.sendError(c, errCode(err), err.Error())
			return
		}
		c.Send(models.Event{Type: models.EventMessageSent, Payload: msg})

	case "mark_read":
		if err := h.svc.MarkRead(ctx, c.UserID, frame.Room); err != nil {
			h.sendError(c, errCode(err), err.Error())
			return
		}

	case "ping":
		c.Send(models.Event{Type: models.EventPong})

	default:
		h.sendError(c, "validation", "unknown frame type")
	}
}

func (h *Handler) sendError(c *hub.Client, code, message string) {
	c.Send(models.Event{
		Type:    models.EventError,
		Payload: map[string]string{"code": code, "message": message},
	})
}
