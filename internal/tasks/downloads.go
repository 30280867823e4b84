package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

const (
	DefaultWorkers   = 3
	MaxWorkers       = 8
	DefaultRateLimit = 4.0
)

// DownloadOpts contains configuration for bulk song downloads.
type DownloadOpts struct {
	Dir       string  // Output directory (default: downloads)
	Workers   int     // Concurrent workers (default: 3, max: 8)
	RateLimit float64 // Requests per second (default: 4)
	Overwrite bool    // Download again even when already recorded
}

func (o DownloadOpts) withDefaults() DownloadOpts {
	if o.Dir == "" {
		o.Dir = "downloads"
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = DefaultRateLimit
	}
	return o
}

// SongResult is the outcome for one song.
type SongResult struct {
	Index   int
	SongID  int64
	Title   string
	Path    string
	Bytes   int64
	Skipped bool
	Err     error
}

// DownloadResult summarizes a bulk download.
type DownloadResult struct {
	PlaylistID *int64
	Playlist   string
	Dir        string
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	Results    []SongResult // ordered as the input songs
}

type downloadJob struct {
	index int
	song  models.Song
	path  string
}

// DownloadPlaylist fetches playlist id and downloads every song in it into a directory named after
// the playlist under opts.Dir.
func (e *Engine) DownloadPlaylist(ctx context.Context, prog chan<- ProgressUpdate, id int64, opts DownloadOpts) (*DownloadResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(prog, fetchingPlaylistUpdate(id))
	detail, err := e.catalog.Playlist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	opts = opts.withDefaults()
	opts.Dir = filepath.Join(opts.Dir, PlaylistDirname(detail.Playlist))

	result, err := e.download(ctx, prog, detail.Songs, &id, opts)
	if result != nil {
		result.Playlist = detail.Title
	}
	return result, err
}

// DownloadSongs downloads songs into opts.Dir.
func (e *Engine) DownloadSongs(ctx context.Context, prog chan<- ProgressUpdate, songs []models.Song, opts DownloadOpts) (*DownloadResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	return e.download(ctx, prog, songs, nil, opts.withDefaults())
}

func (e *Engine) download(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	songs []models.Song,
	playlistID *int64,
	opts DownloadOpts,
) (*DownloadResult, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &DownloadResult{
		PlaylistID: playlistID,
		Dir:        opts.Dir,
		Total:      len(songs),
		Results:    make([]SongResult, 0, len(songs)),
	}
	if len(songs) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan downloadJob, len(songs))
	results := make(chan SongResult, len(songs))

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, jobs, results, playlistID)
	}

	go func() {
		defer close(jobs)
		for i, song := range songs {
			job := downloadJob{index: i, song: song, path: filepath.Join(opts.Dir, SongFilename(song))}

			if !opts.Overwrite && e.alreadyDownloaded(song.ID, job.path) {
				results <- SongResult{Index: i, SongID: song.ID, Title: songTitle(song), Path: job.path, Skipped: true}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, downloadingSongUpdate(i+1, len(songs), songTitle(song)))
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Skipped:
			result.Skipped++
			e.sendProgress(prog, songSkippedUpdate(completed, len(songs), res))
		case res.Err != nil:
			result.Failed++
			e.sendProgress(prog, songFailedUpdate(completed, len(songs), res))
		default:
			result.Downloaded++
			result.Bytes += res.Bytes
			e.sendProgress(prog, songDownloadedUpdate(completed, len(songs), res))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Index < result.Results[j].Index
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// downloadWorker saves songs from the jobs channel until it closes.
func (e *Engine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan downloadJob,
	results chan<- SongResult,
	playlistID *int64,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- e.downloadOne(ctx, job, playlistID)
	}
}

func (e *Engine) downloadOne(ctx context.Context, job downloadJob, playlistID *int64) SongResult {
	res := SongResult{Index: job.index, SongID: job.song.ID, Title: songTitle(job.song), Path: job.path}

	n, err := e.saveFile(ctx, job.song.ID, job.path)
	if err != nil {
		res.Err = err
		e.logger.Warn("download failed", "song", job.song.ID, "err", err)
		return res
	}
	res.Bytes = n

	if e.recorder != nil {
		record := models.Download{
			SongID:     job.song.ID,
			PlaylistID: playlistID,
			Title:      job.song.Title,
			Artist:     job.song.Artist,
			Path:       job.path,
			SizeBytes:  n,
		}
		if err := e.recorder.Record(record); err != nil {
			e.logger.Warn("failed to record download", "song", job.song.ID, "err", err)
		}
	}
	return res
}

// saveFile streams the song into a temporary file beside path and renames it into place.
func (e *Engine) saveFile(ctx context.Context, songID int64, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".musix-*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := e.catalog.Download(ctx, songID, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close file: %w", cerr)
	}
	if err == nil && n == 0 {
		err = errors.New("empty audio response")
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (e *Engine) alreadyDownloaded(songID int64, path string) bool {
	if e.recorder == nil || !e.recorder.Downloaded(songID, path) {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func slug(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// SongFilename returns the mp3 file name for a song: its id, then artist and title when known.
func SongFilename(s models.Song) string {
	name := slug(strings.TrimSpace(s.Artist + " " + s.Title))
	if name == "" {
		return fmt.Sprintf("song-%d.mp3", s.ID)
	}
	return fmt.Sprintf("%d-%s.mp3", s.ID, name)
}

// PlaylistDirname returns the directory name for a playlist's downloads.
func PlaylistDirname(p models.Playlist) string {
	if name := slug(p.Title); name != "" {
		return fmt.Sprintf("%d-%s", p.ID, name)
	}
	return fmt.Sprintf("playlist-%d", p.ID)
}

func songTitle(s models.Song) string {
	if s.Title == "" {
		return fmt.Sprintf("song %d", s.ID)
	}
	return s.Title
}
