package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/campuslink/chatd/internal/models"
)

// MemoryLog is an in-process MessageLog for development and tests. It mirrors
// the Redis log's semantics: append-only, ordered by creation timestamp.
type MemoryLog struct {
	mu    sync.RWMutex
	rooms map[string][]models.Message
}

// NewMemoryLog creates an empty in-memory message log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{rooms: make(map[string][]models.Message)}
}

// Append persists msg, assigning ID and Timestamp when unset.
func (l *MemoryLog) Append(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rooms[msg.RoomKey] = append(l.rooms[msg.RoomKey], *msg)
	return nil
}

// Recent returns the most recent messages in ascending creation order.
func (l *MemoryLog) Recent(ctx context.Context, roomKey string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.rooms[roomKey]
	msgs := make([]models.Message, len(log))
	copy(msgs, log)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// MemoryGroups is an in-process GroupStore for development and tests.
type MemoryGroups struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]*models.Group
}

// NewMemoryGroups creates an empty in-memory group store.
func NewMemoryGroups() *MemoryGroups {
	return &MemoryGroups{groups: make(map[uuid.UUID]*models.Group)}
}

// Close is a no-op.
func (s *MemoryGroups) Close() {}

// Ping always succeeds.
func (s *MemoryGroups) Ping(ctx context.Context) error { return nil }

// CreateGroup creates a group with the creator as sole member and admin.
func (s *MemoryGroups) CreateGroup(ctx context.Context, name, adminID string) (*models.Group, error) {
	now := time.Now().UTC()
	g := &models.Group{
		ID:            uuid.New(),
		Name:          name,
		AdminID:       adminID,
		Members:       []string{adminID},
		CreatedAt:     now,
		LastMessageAt: now,
	}

	s.mu.Lock()
	s.groups[g.ID] = g
	s.mu.Unlock()

	out := *g
	return &out, nil
}

// GetGroup retrieves a group; nil when it does not exist.
func (s *MemoryGroups) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	out := *g
	out.Members = append([]string(nil), g.Members...)
	return &out, nil
}

// ListGroups retrieves all groups ordered by most recent activity.
func (s *MemoryGroups) ListGroups(ctx context.Context) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out := *g
		out.Members = append([]string(nil), g.Members...)
		groups = append(groups, out)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].LastMessageAt.After(groups[j].LastMessageAt)
	})
	return groups, nil
}

// DeleteGroup removes a group and its membership.
func (s *MemoryGroups) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.groups, id)
	s.mu.Unlock()
	return nil
}

// AddMember adds a user to a group. Idempotent.
func (s *MemoryGroups) AddMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

// RemoveMember removes a user from a group.
func (s *MemoryGroups) RemoveMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	for i, m := range g.Members {
		if m == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	return nil
}

// Members returns the current member set of a group.
func (s *MemoryGroups) Members(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), g.Members...), nil
}

// TouchGroupActivity updates the room-level last_message_at timestamp.
func (s *MemoryGroups) TouchGroupActivity(ctx context.Context, groupID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.LastMessageAt = at
	}
	return nil
}

// userCounters holds one user's bookkeeping behind its own lock, so increments
// for the same user serialize while different users never contend.
type userCounters struct {
	mu       sync.Mutex
	unread   map[string]int64
	activity map[string]int64
}

// MemoryCounters is an in-process CounterStore. Increments are guarded per
// user, which keeps concurrent messages in the same room from losing updates
// without a process-wide lock.
type MemoryCounters struct {
	users sync.Map // userID -> *userCounters
}

// NewMemoryCounters creates an empty in-memory counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{}
}

func (c *MemoryCounters) forUser(userID string) *userCounters {
	if uc, ok := c.users.Load(userID); ok {
		return uc.(*userCounters)
	}
	uc, _ := c.users.LoadOrStore(userID, &userCounters{
		unread:   make(map[string]int64),
		activity: make(map[string]int64),
	})
	return uc.(*userCounters)
}

// IncrUnread atomically increments a user's unread counter for a room.
func (c *MemoryCounters) IncrUnread(ctx context.Context, userID, roomKey string) error {
	uc := c.forUser(userID)
	uc.mu.Lock()
	uc.unread[roomKey]++
	uc.mu.Unlock()
	return nil
}

// Unread returns a user's unread count for a room; missing counters read as 0.
func (c *MemoryCounters) Unread(ctx context.Context, userID, roomKey string) (int64, error) {
	uc := c.forUser(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.unread[roomKey], nil
}

// UnreadAll returns every non-zero unread counter kept for a user.
func (c *MemoryCounters) UnreadAll(ctx context.Context, userID string) (map[string]int64, error) {
	uc := c.forUser(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	counts := make(map[string]int64, len(uc.unread))
	for roomKey, n := range uc.unread {
		if n > 0 {
			counts[roomKey] = n
		}
	}
	return counts, nil
}

// MarkRead resets a user's unread counter for a room. Idempotent.
func (c *MemoryCounters) MarkRead(ctx context.Context, userID, roomKey string) error {
	uc := c.forUser(userID)
	uc.mu.Lock()
	delete(uc.unread, roomKey)
	uc.mu.Unlock()
	return nil
}

// TouchActivity records the most recent message activity a user saw in a room.
func (c *MemoryCounters) TouchActivity(ctx context.Context, userID, roomKey string, ts int64) error {
	uc := c.forUser(userID)
	uc.mu.Lock()
	uc.activity[roomKey] = ts
	uc.mu.Unlock()
	return nil
}

// Activity returns the last-activity timestamps kept for a user, by room key.
func (c *MemoryCounters) Activity(ctx context.Context, userID string) (map[string]int64, error) {
	uc := c.forUser(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	activity := make(map[string]int64, len(uc.activity))
	for roomKey, ts := range uc.activity {
		activity[roomKey] = ts
	}
	return activity, nil
}

// PurgeRoom drops counters and activity entries keyed to a deleted room.
func (c *MemoryCounters) PurgeRoom(ctx context.Context, roomKey string, userIDs []string) error {
	for _, userID := range userIDs {
		uc := c.forUser(userID)
		uc.mu.Lock()
		delete(uc.unread, roomKey)
		delete(uc.activity, roomKey)
		uc.mu.Unlock()
	}
	return nil
}
