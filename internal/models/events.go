package models

// Event types pushed over live connections. Room-scoped events go to the
// room's connections; lifecycle events go to every connection so clients can
// refresh their room list.
const (
	EventReceiveMessage = "receive_message"
	EventGroupCreated   = "group_created"
	EventGroupDeleted   = "group_deleted"

	// Per-connection acknowledgements
	EventMessageSent = "message_sent"
	EventRoomJoined  = "room_joined"
	EventRoomLeft    = "room_left"
	EventPong        = "pong"
	EventError       = "error"
)

// Event is the envelope for everything the server pushes over a connection.
// Delivery is fire-and-forget; clients reconcile through the read paths.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
