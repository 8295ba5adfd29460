package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/campuslink/chatd/internal/models"
)

// SQLiteStore handles SQLite operations for groups and membership. Used for
// local development and single-box deployments without PostgreSQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatd.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatd.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		admin_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_message_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_groups_last_message ON groups(last_message_at);
	CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateGroup creates a group with the creator as sole member and admin.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, adminID string) (*models.Group, error) {
	id := uuid.New()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, admin_id, created_at, last_message_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), name, adminID, now, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, added_at) VALUES (?, ?, ?)
	`, id.String(), adminID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Group{
		ID:            id,
		Name:          name,
		AdminID:       adminID,
		Members:       []string{adminID},
		CreatedAt:     now,
		LastMessageAt: now,
	}, nil
}

// GetGroup retrieves a group with its member list. Returns nil when the group
// does not exist.
func (s *SQLiteStore) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group := &models.Group{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, admin_id, created_at, last_message_at
		FROM groups WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&group.Name,
		&group.AdminID,
		&group.CreatedAt,
		&group.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	group.ID = uuid.MustParse(idStr)

	members, err := s.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

// ListGroups retrieves all groups ordered by most recent activity.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var idStr string
		if err := rows.Scan(&idStr, &g.Name, &g.AdminID, &g.CreatedAt, &g.LastMessageAt); err != nil {
			return nil, err
		}
		g.ID = uuid.MustParse(idStr)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteGroup removes a group; membership rows cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id.String())
	return err
}

// AddMember adds a user to a group. Idempotent.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)
	`, groupID.String(), userID)
	return err
}

// RemoveMember removes a user from a group.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID uuid.UUID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID.String(), userID)
	return err
}

// Members returns the current member set of a group.
func (s *SQLiteStore) Members(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? ORDER BY added_at
	`, groupID.String())
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
func (s *SQLiteStore) TouchGroupActivity(ctx context.Context, groupID uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE groups SET last_message_at = ? WHERE id = ?
	`, at, groupID.String())
	return err
}
