package models

import (
	"time"

	"github.com/google/uuid"
)

// Group represents a group room. The group's UUID doubles as its room key.
type Group struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AdminID       string    `json:"admin_id"`
	Members       []string  `json:"members,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// HasMember reports whether userID is in the loaded member list.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
