package repositories

import (
	"fmt"

	"github.com/desertthunder/musix/internal/models"
)

// DownloadRecorder implements tasks.DownloadRecorder using [DownloadRepository].
//
// Recording the same song and path twice is not an error (UNIQUE constraint violations are ignored).
type DownloadRecorder struct {
	repo *DownloadRepository
}

// NewDownloadRecorder creates a new DownloadRecorder with the given repository
func NewDownloadRecorder(repo *DownloadRepository) *DownloadRecorder {
	return &DownloadRecorder{repo: repo}
}

// Downloaded reports whether songID is already saved at path.
func (a *DownloadRecorder) Downloaded(songID int64, path string) bool {
	ok, err := a.repo.Exists(songID, path)
	return err == nil && ok
}

// Record stores a finished download.
func (a *DownloadRecorder) Record(d models.Download) error {
	if err := a.repo.Create(&d); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}
