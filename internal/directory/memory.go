package directory

import (
	"context"
	"sync"

	"github.com/campuslink/chatd/internal/models"
)

// MemoryDirectory is an in-process Directory for development and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]models.User)}
}

// Add registers a user.
func (d *MemoryDirectory) Add(user models.User) {
	d.mu.Lock()
	d.users[user.ID] = user
	d.mu.Unlock()
}

// Lookup returns the user or nil when the id is unknown.
func (d *MemoryDirectory) Lookup(ctx context.Context, userID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[userID]; ok {
		return &u, nil
	}
	return nil, nil
}

// Ping always succeeds.
func (d *MemoryDirectory) Ping(ctx context.Context) error { return nil }
