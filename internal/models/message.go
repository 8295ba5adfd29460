package models

// Message represents a chat message stored in the room log.
// Immutable once persisted; there is no edit or delete path.
type Message struct {
	ID        string `json:"id"`   // ULID
	RoomKey   string `json:"room"` // dm:<a>:<b> or group UUID
	FromID    string `json:"from"`
	Body      string `json:"body"`
	Timestamp int64  `json:"ts"` // Unix ms
}
