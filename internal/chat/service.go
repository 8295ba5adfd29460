package chat

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/campuslink/chatd/internal/directory"
	"github.com/campuslink/chatd/internal/metrics"
	"github.com/campuslink/chatd/internal/models"
	"github.com/campuslink/chatd/internal/room"
	"github.com/campuslink/chatd/internal/store"
)

// Group name validation: letters, digits, spaces, hyphens, underscores, 1-50 chars
var groupNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 _-]{1,50}$`)

// Broadcaster is the fan-out surface the service pushes events through.
// Implemented by the websocket hub; faked in tests.
type Broadcaster interface {
	// BroadcastRoom delivers v to the room's connections, excluding the
	// connection with the given id.
	BroadcastRoom(roomKey string, v interface{}, exclude string)
	// BroadcastAll delivers v to every connected client.
	BroadcastAll(v interface{})
}

// Options bounds the service's read and write paths.
type Options struct {
	MaxMessageBytes int // content length bound, default 2000
	HistoryLimit    int // default and cap for recent-history reads, default 50
}

// Service is the messaging engine: it validates sends, persists messages,
// fans them out, and keeps the derived unread/last-activity state consistent.
// The pipeline is persist-then-broadcast; nothing downstream of a failed
// append ever runs.
type Service struct {
	groups   store.GroupStore
	messages store.MessageLog
	counters store.CounterStore
	dir      directory.Directory
	bc       Broadcaster
	logger   zerolog.Logger
	opts     Options
}

// NewService wires the engine's collaborators together.
func NewService(groups store.GroupStore, messages store.MessageLog, counters store.CounterStore, dir directory.Directory, bc Broadcaster, logger zerolog.Logger, opts Options) *Service {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 2000
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Service{
		groups:   groups,
		messages: messages,
		counters: counters,
		dir:      dir,
		bc:       bc,
		logger:   logger,
		opts:     opts,
	}
}

// SendMessage runs the full pipeline: resolve room and sender, persist,
// broadcast to the room (excluding the sender's connection), then update the
// unread and last-activity bookkeeping for the other members. Validation and
// authorization failures reject before any side effect; failures after the
// append are logged and never roll back the persisted message.
func (s *Service) SendMessage(ctx context.Context, connID, fromID, roomKey, content string) (*models.Message, error) {
	if roomKey == "" {
		return nil, models.Validationf("room key is required")
	}

	sender, err := s.dir.Lookup(ctx, fromID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "directory lookup", Err: err}
	}
	if sender == nil {
		return nil, &models.NotFoundError{Resource: "user", ID: fromID}
	}

	if strings.TrimSpace(content) == "" {
		return nil, models.Validationf("message content is required")
	}
	if len(content) > s.opts.MaxMessageBytes {
		return nil, models.Validationf("message content too long (max %d bytes)", s.opts.MaxMessageBytes)
	}

	members, groupID, err := s.resolveMembers(ctx, fromID, roomKey)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomKey: roomKey,
		FromID:  fromID,
		Body:    content,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, &models.PersistenceError{Op: "append message", Err: err}
	}

	roomType := "group"
	if room.IsDirect(roomKey) {
		roomType = "dm"
	}
	metrics.MessagesSent.WithLabelValues(roomType).Inc()

	s.bc.BroadcastRoom(roomKey, models.Event{Type: models.EventReceiveMessage, Payload: msg}, connID)

	s.applyBookkeeping(ctx, msg, members, groupID)

	return msg, nil
}

// resolveMembers returns the room's current member set and, for groups, the
// group id. Membership is read at message time, never cached on a connection.
func (s *Service) resolveMembers(ctx context.Context, fromID, roomKey string) ([]string, uuid.UUID, error) {
	if room.IsDirect(roomKey) {
		a, b, ok := room.DirectParticipants(roomKey)
		if !ok {
			return nil, uuid.Nil, models.Validationf("malformed room key %q", roomKey)
		}
		if fromID != a && fromID != b {
			return nil, uuid.Nil, &models.AuthorizationError{Msg: "sender is not a participant of this conversation"}
		}
		return []string{a, b}, uuid.Nil, nil
	}

	groupID, err := uuid.Parse(roomKey)
	if err != nil {
		return nil, uuid.Nil, models.Validationf("malformed room key %q", roomKey)
	}
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, uuid.Nil, &models.PersistenceError{Op: "get group", Err: err}
	}
	if group == nil {
		return nil, uuid.Nil, &models.NotFoundError{Resource: "room", ID: roomKey}
	}
	if !group.HasMember(fromID) {
		return nil, uuid.Nil, &models.AuthorizationError{Msg: "sender is not a member of this group"}
	}
	return group.Members, groupID, nil
}

// applyBookkeeping increments unread counters for every member except the
// sender and updates last-activity state. Runs after the message is durable;
// failures are logged, not rolled back, since counters are derived state
// repairable from history.
func (s *Service) applyBookkeeping(ctx context.Context, msg *models.Message, members []string, groupID uuid.UUID) {
	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range members {
		if userID == msg.FromID {
			continue
		}
		userID := userID
		g.Go(func() error {
			if err := s.counters.IncrUnread(gctx, userID, msg.RoomKey); err != nil {
				return err
			}
			metrics.UnreadIncrements.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("room", msg.RoomKey).Msg("unread increment failed")
	}

	if room.IsDirect(msg.RoomKey) {
		// Both participants, sender included, surface this conversation as
		// recently active.
		for _, userID := range members {
			if err := s.counters.TouchActivity(ctx, userID, msg.RoomKey, msg.Timestamp); err != nil {
				s.logger.Error().Err(err).Str("user_id", userID).Msg("activity update failed")
			}
		}
		return
	}

	if err := s.groups.TouchGroupActivity(ctx, groupID, time.UnixMilli(msg.Timestamp)); err != nil {
		s.logger.Error().Err(err).Str("room", msg.RoomKey).Msg("group activity update failed")
	}
}

// AuthorizeJoin checks that a user may join a room's fan-out: DM rooms admit
// exactly their two participants, group rooms admit current members.
func (s *Service) AuthorizeJoin(ctx context.Context, userID, roomKey string) error {
	if roomKey == "" {
		return models.Validationf("room key is required")
	}
	_, _, err := s.resolveMembers(ctx, userID, roomKey)
	return err
}

// RecentMessages returns the most recent messages of a room in ascending
// creation order. limit <= 0 falls back to the default; values above the cap
// are clamped.
func (s *Service) RecentMessages(ctx context.Context, roomKey string, limit int) ([]models.Message, error) {
	if roomKey == "" {
		return nil, models.Validationf("room key is required")
	}
	if limit <= 0 || limit > s.opts.HistoryLimit {
		limit = s.opts.HistoryLimit
	}

	if !room.IsDirect(roomKey) {
		groupID, err := uuid.Parse(roomKey)
		if err != nil {
			return nil, models.Validationf("malformed room key %q", roomKey)
		}
		group, err := s.groups.GetGroup(ctx, groupID)
		if err != nil {
			return nil, &models.PersistenceError{Op: "get group", Err: err}
		}
		if group == nil {
			return nil, &models.NotFoundError{Resource: "room", ID: roomKey}
		}
	}

	msgs, err := s.messages.Recent(ctx, roomKey, limit)
	if err != nil {
		return nil, &models.PersistenceError{Op: "read history", Err: err}
	}
	return msgs, nil
}

// MarkRead resets the unread counter for exactly this (user, room) pair.
// Idempotent; no other counter is touched.
func (s *Service) MarkRead(ctx context.Context, userID, roomKey string) error {
	if roomKey == "" {
		return models.Validationf("room key is required")
	}
	if err := s.counters.MarkRead(ctx, userID, roomKey); err != nil {
		return &models.PersistenceError{Op: "mark read", Err: err}
	}
	return nil
}

// UnreadCounts returns a user's unread counters. Counters keyed to a group
// that no longer exists are treated as absent, even if storage still holds
// them.
func (s *Service) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	counts, err := s.counters.UnreadAll(ctx, userID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "read counters", Err: err}
	}
	return s.dropOrphanedRooms(ctx, counts)
}

// LastActivity returns the last-activity timestamps for a user's rooms,
// filtered the same way as UnreadCounts.
func (s *Service) LastActivity(ctx context.Context, userID string) (map[string]int64, error) {
	activity, err := s.counters.Activity(ctx, userID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "read activity", Err: err}
	}
	return s.dropOrphanedRooms(ctx, activity)
}

// dropOrphanedRooms removes entries keyed to deleted group rooms. DM keys are
// always kept; DM rooms have no deletion path.
func (s *Service) dropOrphanedRooms(ctx context.Context, entries map[string]int64) (map[string]int64, error) {
	var live map[string]struct{}
	for key := range entries {
		if room.IsDirect(key) {
			continue
		}
		if live == nil {
			groups, err := s.groups.ListGroups(ctx)
			if err != nil {
				return nil, &models.PersistenceError{Op: "list groups", Err: err}
			}
			live = make(map[string]struct{}, len(groups))
			for _, g := range groups {
				live[g.ID.String()] = struct{}{}
			}
		}
		if _, ok := live[key]; !ok {
			delete(entries, key)
		}
	}
	return entries, nil
}

// CreateGroup allocates a fresh group room with the creator as sole member
// and admin, then notifies every connected client.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if !groupNameRegex.MatchString(name) {
		return nil, models.Validationf("group name must be 1-50 characters, alphanumeric with spaces, hyphens and underscores")
	}

	creator, err := s.dir.Lookup(ctx, creatorID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "directory lookup", Err: err}
	}
	if creator == nil {
		return nil, &models.NotFoundError{Resource: "user", ID: creatorID}
	}

	group, err := s.groups.CreateGroup(ctx, name, creatorID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "create group", Err: err}
	}

	metrics.GroupEvents.WithLabelValues("created").Inc()
	s.bc.BroadcastAll(models.Event{Type: models.EventGroupCreated, Payload: group})

	s.logger.Info().Str("group_id", group.ID.String()).Str("admin_id", creatorID).Msg("group created")
	return group, nil
}

// DeleteGroup removes a group room. Only the admin may delete; the row is
// removed before counters are purged so no client can join or increment
// counters for a room mid-deletion.
func (s *Service) DeleteGroup(ctx context.Context, requesterID, roomKey string) error {
	groupID, err := uuid.Parse(roomKey)
	if err != nil {
		return models.Validationf("malformed room key %q", roomKey)
	}

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return &models.PersistenceError{Op: "get group", Err: err}
	}
	if group == nil {
		return &models.NotFoundError{Resource: "room", ID: roomKey}
	}
	if group.AdminID != requesterID {
		return &models.AuthorizationError{Msg: "only the group admin may delete the group"}
	}

	members := group.Members

	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		return &models.PersistenceError{Op: "delete group", Err: err}
	}

	// Best-effort: the read paths already treat counters of a missing room
	// as absent, the purge just reclaims storage.
	if err := s.counters.PurgeRoom(ctx, roomKey, members); err != nil {
		s.logger.Error().Err(err).Str("room", roomKey).Msg("counter purge failed")
	}

	metrics.GroupEvents.WithLabelValues("deleted").Inc()
	s.bc.BroadcastAll(models.Event{Type: models.EventGroupDeleted, Payload: roomKey})

	s.logger.Info().Str("group_id", roomKey).Msg("group deleted")
	return nil
}

// ListGroups returns all group rooms, most recently active first.
func (s *Service) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list groups", Err: err}
	}
	return groups, nil
}

// AddMember adds a user to a group. The requester must already be a member;
// the user must exist in the directory. Idempotent.
func (s *Service) AddMember(ctx context.Context, requesterID, roomKey, userID string) error {
	groupID, err := uuid.Parse(roomKey)
	if err != nil {
		return models.Validationf("malformed room key %q", roomKey)
	}

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return &models.PersistenceError{Op: "get group", Err: err}
	}
	if group == nil {
		return &models.NotFoundError{Resource: "room", ID: roomKey}
	}
	if !group.HasMember(requesterID) {
		return &models.AuthorizationError{Msg: "only group members may add members"}
	}

	user, err := s.dir.Lookup(ctx, userID)
	if err != nil {
		return &models.PersistenceError{Op: "directory lookup", Err: err}
	}
	if user == nil {
		return &models.NotFoundError{Resource: "user", ID: userID}
	}

	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return &models.PersistenceError{Op: "add member", Err: err}
	}
	return nil
}

// RemoveMember removes a user from a group. A member may remove themselves;
// the admin may remove anyone else. The admin cannot leave their own group.
func (s *Service) RemoveMember(ctx context.Context, requesterID, roomKey, userID string) error {
	groupID, err := uuid.Parse(roomKey)
	if err != nil {
		return models.Validationf("malformed room key %q", roomKey)
	}

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return &models.PersistenceError{Op: "get group", Err: err}
	}
	if group == nil {
		return &models.NotFoundError{Resource: "room", ID: roomKey}
	}
	if userID == group.AdminID {
		return models.Validationf("the admin cannot be removed; delete the group instead")
	}
	if requesterID != userID && requesterID != group.AdminID {
		return &models.AuthorizationError{Msg: "only the member themselves or the admin may remove a member"}
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return &models.PersistenceError{Op: "remove member", Err: err}
	}
	return nil
}

// LookupUser resolves a user through the directory; nil when unknown.
func (s *Service) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.dir.Lookup(ctx, userID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "directory lookup", Err: err}
	}
	return user, nil
}
