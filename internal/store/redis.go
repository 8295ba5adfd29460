package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/campuslink/chatd/internal/models"
)

// RedisStore handles Redis operations for the message log and the derived
// per-user bookkeeping (unread counters, last-activity timestamps).
// HINCRBY gives the linearizable increment the counters need: two messages
// landing in the same room at the same time advance a counter by 2, never 1.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Client exposes the underlying connection for infrastructure that shares it,
// such as the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// roomMessagesKey returns the key for a room's message sorted set.
func roomMessagesKey(roomKey string) string {
	return fmt.Sprintf("room:%s:messages", roomKey)
}

// unreadKey returns the key for a user's unread-counter hash.
func unreadKey(userID string) string {
	return fmt.Sprintf("unread:%s", userID)
}

// activityKey returns the key for a user's last-activity hash.
func activityKey(userID string) string {
	return fmt.Sprintf("activity:%s", userID)
}

// Append stores a message in the room's log, assigning ID and timestamp when
// unset. Messages are ordered by their creation timestamp.
func (s *RedisStore) Append(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.client.ZAdd(ctx, roomMessagesKey(msg.RoomKey), redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
}

// Recent retrieves the most recent messages of a room in ascending creation
// order, bounded by limit.
func (s *RedisStore) Recent(ctx context.Context, roomKey string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// Newest first, then reverse into ascending order for the client.
	results, err := s.client.ZRevRange(ctx, roomMessagesKey(roomKey), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(results[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// IncrUnread atomically increments a user's unread counter for a room.
func (s *RedisStore) IncrUnread(ctx context.Context, userID, roomKey string) error {
	return s.client.HIncrBy(ctx, unreadKey(userID), roomKey, 1).Err()
}

// Unread returns a user's unread count for a room; missing counters read as 0.
func (s *RedisStore) Unread(ctx context.Context, userID, roomKey string) (int64, error) {
	val, err := s.client.HGet(ctx, unreadKey(userID), roomKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// UnreadAll returns every unread counter kept for a user.
func (s *RedisStore) UnreadAll(ctx context.Context, userID string) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, unreadKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(fields))
	for roomKey, val := range fields {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			counts[roomKey] = n
		}
	}
	return counts, nil
}

// MarkRead resets a user's unread counter for a room. The field is deleted;
// an absent counter reads as zero, so marking twice is a no-op.
func (s *RedisStore) MarkRead(ctx context.Context, userID, roomKey string) error {
	return s.client.HDel(ctx, unreadKey(userID), roomKey).Err()
}

// TouchActivity records the most recent message activity a user saw in a room.
func (s *RedisStore) TouchActivity(ctx context.Context, userID, roomKey string, ts int64) error {
	return s.client.HSet(ctx, activityKey(userID), roomKey, ts).Err()
}

// Activity returns the last-activity timestamps kept for a user, by room key.
func (s *RedisStore) Activity(ctx context.Context, userID string) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, activityKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	activity := make(map[string]int64, len(fields))
	for roomKey, val := range fields {
		if ts, err := strconv.ParseInt(val, 10, 64); err == nil {
			activity[roomKey] = ts
		}
	}
	return activity, nil
}

// PurgeRoom drops counters and activity entries keyed to a deleted room for
// the given users. The room's message log is left alone; the room row being
// gone is what guards against resurrection.
func (s *RedisStore) PurgeRoom(ctx context.Context, roomKey string, userIDs []string) error {
	pipe := s.client.Pipeline()
	for _, userID := range userIDs {
		pipe.HDel(ctx, unreadKey(userID), roomKey)
		pipe.HDel(ctx, activityKey(userID), roomKey)
	}
	_, err := pipe.Exec(ctx)
	return err
}
