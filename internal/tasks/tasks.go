package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

// Catalog is the part of the API client the engine needs.
type Catalog interface {
	Playlist(ctx context.Context, id int64) (models.PlaylistDetail, error)
	Download(ctx context.Context, songID int64, w io.Writer) (int64, error)
}

// DownloadRecorder persists finished downloads and answers whether one already exists.
type DownloadRecorder interface {
	Downloaded(songID int64, path string) bool
	Record(d models.Download) error
}

// Engine runs download jobs against a [Catalog].
type Engine struct {
	catalog  Catalog
	recorder DownloadRecorder
	logger   *log.Logger
}

// NewEngine creates an engine. recorder may be nil.
func NewEngine(catalog Catalog, recorder DownloadRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Engine{catalog: catalog, recorder: recorder, logger: logger}
}

// sendProgress sends a progress update without blocking.
func (e *Engine) sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}
