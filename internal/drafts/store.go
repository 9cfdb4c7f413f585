package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/01moynul/bookshelf-admin/internal/models"
)

// ErrNotFound is returned when no draft exists with the requested id.
var ErrNotFound = errors.New("draft not found")

// Schema creates the table the Store reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS form_drafts (
	id         VARCHAR(36) NOT NULL PRIMARY KEY,
	user_id    BIGINT      NOT NULL,
	state      JSON        NOT NULL,
	created_at DATETIME    NOT NULL,
	updated_at DATETIME    NOT NULL,
	INDEX idx_form_drafts_user (user_id)
)`

// Store persists form drafts in MySQL.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Migrate creates the drafts table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create form_drafts table: %w", err)
	}
	return nil
}

// Save inserts the draft or replaces the state of an existing one.
func (s *Store) Save(ctx context.Context, d *models.Draft) error {
	state, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("failed to encode draft state: %w", err)
	}

	query := `
		INSERT INTO form_drafts (id, user_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`
	if _, err := s.DB.ExecContext(ctx, query, d.ID, d.UserID, state, d.CreatedAt, d.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load returns the draft with the given id.
func (s *Store) Load(ctx context.Context, id string) (*models.Draft, error) {
	query := `SELECT id, user_id, state, created_at, updated_at FROM form_drafts WHERE id = ?`

	var d models.Draft
	var state []byte
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.UserID, &state, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if err := json.Unmarshal(state, &d.State); err != nil {
		return nil, fmt.Errorf("failed to decode draft state: %w", err)
	}
	return &d, nil
}

// Delete removes the draft. Deleting a missing draft is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM form_drafts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
