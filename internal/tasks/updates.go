package tasks

import (
	"fmt"

	"github.com/desertthunder/musix/internal/formatter"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, a [SongResult] for per-song phases
}

// Phase identifies the stage an update belongs to.
type Phase int

const (
	FetchPlaylist Phase = iota
	DownloadSong
	SongDownloaded
	SongSkipped
	SongFailed
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case DownloadSong:
		return "download_song"
	case SongDownloaded:
		return "song_downloaded"
	case SongSkipped:
		return "song_skipped"
	case SongFailed:
		return "song_failed"
	default:
		return ""
	}
}

func fetchingPlaylistUpdate(id int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %d...", id),
	}
}

func downloadingSongUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Downloading %s...", title),
	}
}

func songDownloadedUpdate(step, total int, res SongResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SongDownloaded,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saved %s (%s)", res.Title, formatter.FormatSize(res.Bytes)),
		Data:    res,
	}
}

func songSkippedUpdate(step, total int, res SongResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SongSkipped,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Skipped %s (already downloaded)", res.Title),
		Data:    res,
	}
}

func songFailedUpdate(step, total int, res SongResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SongFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Failed %s: %v", res.Title, res.Err),
		Data:    res,
	}
}
