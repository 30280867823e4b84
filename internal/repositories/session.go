package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

// SessionRepository stores one [models.Session] per proxy base URL.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// Save inserts or replaces the session for its base URL.
func (r *SessionRepository) Save(s *models.Session) error {
	s.BaseURL = normalizeBaseURL(s.BaseURL)
	if s.BaseURL == "" || s.AccessToken == "" {
		return fmt.Errorf("%w: session needs a base URL and token", shared.ErrInvalidInput)
	}
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO sessions (id, base_url, username, access_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(base_url) DO UPDATE SET
			username = excluded.username,
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, s.ID, s.BaseURL, s.Username, s.AccessToken, nullTime(s.ExpiresAt), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the session for baseURL.
func (r *SessionRepository) Get(baseURL string) (*models.Session, error) {
	query := `
		SELECT id, base_url, username, access_token, expires_at, created_at, updated_at
		FROM sessions
		WHERE base_url = ?
	`

	s, err := scanSession(r.db.QueryRow(query, normalizeBaseURL(baseURL)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, baseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

// Delete removes the session for baseURL. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(baseURL string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE base_url = ?", normalizeBaseURL(baseURL)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns every stored session, most recently updated first.
func (r *SessionRepository) List() ([]*models.Session, error) {
	query := `
		SELECT id, base_url, username, access_token, expires_at, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		s         models.Session
		expiresAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.BaseURL, &s.Username, &s.AccessToken, &expiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ExpiresAt = timePtr(expiresAt)
	return &s, nil
}
