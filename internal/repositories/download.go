package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

// DownloadRepository persists [models.Download] rows.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new [DownloadRepository] with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a download with a generated ID.
func (r *DownloadRepository) Create(d *models.Download) error {
	if d.SongID <= 0 || d.Path == "" {
		return fmt.Errorf("%w: download needs a song id and path", shared.ErrInvalidInput)
	}

	d.ID = shared.GenerateID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO downloads (id, song_id, playlist_id, title, artist, path, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, d.ID, d.SongID, nullInt(d.PlaylistID), d.Title, d.Artist, d.Path, d.SizeBytes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}
	return nil
}

// Exists reports whether songID was already saved to path.
func (r *DownloadRepository) Exists(songID int64, path string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM downloads WHERE song_id = ? AND path = ?)", songID, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check download: %w", err)
	}
	return exists, nil
}

// List returns downloads, optionally limited to one playlist, newest first.
func (r *DownloadRepository) List(playlistID *int64) ([]*models.Download, error) {
	query := `
		SELECT id, song_id, playlist_id, title, artist, path, size_bytes, created_at
		FROM downloads
	`
	args := []any{}
	if playlistID != nil {
		query += " WHERE playlist_id = ?"
		args = append(args, *playlistID)
	}
	query += " ORDER BY created_at DESC, song_id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		var (
			d          models.Download
			playlistID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.SongID, &playlistID, &d.Title, &d.Artist, &d.Path, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		d.PlaylistID = intPtr(playlistID)
		downloads = append(downloads, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return downloads, nil
}

// Delete removes a download record by ID.
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download not found: %s", id)
	}
	return nil
}
