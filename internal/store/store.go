package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/chatd/internal/models"
)

// GroupStore defines the interface for durable group rooms and membership.
// Both PostgresStore and SQLiteStore implement this interface.
type GroupStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Group lifecycle
	CreateGroup(ctx context.Context, name, adminID string) (*models.Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	// Membership; consulted at message time, never cached on a connection
	AddMember(ctx context.Context, groupID uuid.UUID, userID string) error
	RemoveMember(ctx context.Context, groupID uuid.UUID, userID string) error
	Members(ctx context.Context, groupID uuid.UUID) ([]string, error)

	// Room-level activity
	TouchGroupActivity(ctx context.Context, groupID uuid.UUID, at time.Time) error
}

// MessageLog is the append-only, ordered log of messages per room.
type MessageLog interface {
	// Append persists msg, assigning ID and Timestamp when unset.
	Append(ctx context.Context, msg *models.Message) error
	// Recent returns the most recent messages in ascending creation order,
	// bounded by limit.
	Recent(ctx context.Context, roomKey string, limit int) ([]models.Message, error)
}

// CounterStore keeps the derived per-(user, room) bookkeeping: unread counts
// and last-activity timestamps. Increments must be read-modify-write safe
// against concurrent messages landing in the same room.
type CounterStore interface {
	IncrUnread(ctx context.Context, userID, roomKey string) error
	Unread(ctx context.Context, userID, roomKey string) (int64, error)
	UnreadAll(ctx context.Context, userID string) (map[string]int64, error)
	MarkRead(ctx context.Context, userID, roomKey string) error

	TouchActivity(ctx context.Context, userID, roomKey string, ts int64) error
	Activity(ctx context.Context, userID string) (map[string]int64, error)

	// PurgeRoom drops all counters keyed to a deleted room for the given
	// users. Reads after a purge behave as if the counters were never set.
	PurgeRoom(ctx context.Context, roomKey string, userIDs []string) error
}
