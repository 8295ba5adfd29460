package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuslink/chatd/internal/models"
)

// PostgresStore handles PostgreSQL operations for groups and membership.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		admin_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (group_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_groups_last_message ON groups(last_message_at);
	CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateGroup creates a group with the creator as sole member and admin.
func (s *PostgresStore) CreateGroup(ctx context.Context, name, adminID string) (*models.Group, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	group := &models.Group{}
	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name, admin_id)
		VALUES ($1, $2)
		RETURNING id, name, admin_id, created_at, last_message_at
	`, name, adminID).Scan(
		&group.ID,
		&group.Name,
		&group.AdminID,
		&group.CreatedAt,
		&group.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
	`, group.ID, adminID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	group.Members = []string{adminID}
	return group, nil
}

// GetGroup retrieves a group with its member list. Returns nil when the group
// does not exist.
func (s *PostgresStore) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group := &models.Group{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, admin_id, created_at, last_message_at
		FROM groups WHERE id = $1
	`, id).Scan(
		&group.ID,
		&group.Name,
		&group.AdminID,
		&group.CreatedAt,
		&group.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	members, err := s.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

// ListGroups retrieves all groups ordered by most recent activity.
func (s *PostgresStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, admin_id, created_at, last_message_at
		FROM groups
		ORDER BY last_message_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.AdminID, &g.CreatedAt, &g.LastMessageAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteGroup removes a group; membership rows cascade.
func (s *PostgresStore) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return err
}

// AddMember adds a user to a group. Idempotent.
func (s *PostgresStore) AddMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, userID)
	return err
}

// RemoveMember removes a user from a group.
func (s *PostgresStore) RemoveMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	return err
}

// Members returns the current member set of a group.
func (s *PostgresStore) Members(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY added_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// TouchGroupActivity updates the room-level last_message_at timestamp.
func (s *PostgresStore) TouchGroupActivity(ctx context.Context, groupID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE groups SET last_message_at = $2 WHERE id = $1
	`, groupID, at)
	return err
}
