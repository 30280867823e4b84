package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
	tu "github.com/desertthunder/musix/internal/testing"
)

type mockCatalog struct {
	mu        sync.Mutex
	playlists map[int64]models.PlaylistDetail
	audio     map[int64]string
	failing   map[int64]error
	calls     map[int64]int
	playErr   error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		playlists: map[int64]models.PlaylistDetail{},
		audio:     map[int64]string{},
		failing:   map[int64]error{},
		calls:     map[int64]int{},
	}
}

func (m *mockCatalog) Playlist(ctx context.Context, id int64) (models.PlaylistDetail, error) {
	if m.playErr != nil {
		return models.PlaylistDetail{}, m.playErr
	}
	p, ok := m.playlists[id]
	if !ok {
		return models.PlaylistDetail{}, shared.ErrPlaylistNotFound
	}
	return p, nil
}

func (m *mockCatalog) Download(ctx context.Context, songID int64, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.calls[songID]++
	err := m.failing[songID]
	body := m.audio[songID]
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, strings.NewReader(body))
	return n, err
}

func (m *mockCatalog) callCount(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

type mockRecorder struct {
	mu      sync.Mutex
	records []models.Download
	seen    map[string]bool
	err     error
}

func (r *mockRecorder) Downloaded(songID int64, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[fmt.Sprintf("%d|%s", songID, path)]
}

func (r *mockRecorder) Record(d models.Download) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	r.seen[fmt.Sprintf("%d|%s", d.SongID, d.Path)] = true
	r.records = append(r.records, d)
	return nil
}

func fastOpts(dir string) DownloadOpts {
	return DownloadOpts{Dir: dir, Workers: 2, RateLimit: 1000}
}

func TestDownloadPlaylist(t *testing.T) {
	catalog := newMockCatalog()
	catalog.playlists[7] = models.PlaylistDetail{
		Playlist: models.Playlist{ID: 7, Title: "Road Trip"},
		Songs: []models.Song{
			{ID: 1, Title: "Alpha", Artist: "Band"},
			{ID: 2, Title: "Beta", Artist: "Band"},
			{ID: 3, Title: "Gamma"},
		},
	}
	catalog.audio[1] = "one"
	catalog.audio[2] = "two!"
	catalog.audio[3] = "three"

	t.Run("saves every song and records it", func(t *testing.T) {
		dir := t.TempDir()
		recorder := &mockRecorder{}
		engine := NewEngine(catalog, recorder, nil)

		result, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir))
		if err != nil {
			t.Fatalf("DownloadPlaylist() error = %v", err)
		}
		if result.Downloaded != 3 || result.Failed != 0 || result.Skipped != 0 {
			t.Errorf("result = %+v, want 3 downloaded", result)
		}
		if result.Playlist != "Road Trip" {
			t.Errorf("Playlist = %q, want Road Trip", result.Playlist)
		}
		if result.Bytes != int64(len("one")+len("two!")+len("three")) {
			t.Errorf("Bytes = %d", result.Bytes)
		}

		wantDir := filepath.Join(dir, "7-road-trip")
		if result.Dir != wantDir {
			t.Errorf("Dir = %q, want %q", result.Dir, wantDir)
		}
		tu.AssertDirExists(t, wantDir)
		data, err := os.ReadFile(filepath.Join(wantDir, "1-band-alpha.mp3"))
		if err != nil {
			t.Fatalf("expected song file: %v", err)
		}
		if string(data) != "one" {
			t.Errorf("file content = %q, want one", data)
		}

		if len(recorder.records) != 3 {
			t.Fatalf("recorded %d downloads, want 3", len(recorder.records))
		}
		for _, rec := range recorder.records {
			if rec.PlaylistID == nil || *rec.PlaylistID != 7 {
				t.Errorf("record %d PlaylistID = %v, want 7", rec.SongID, rec.PlaylistID)
			}
		}

		for i, res := range result.Results {
			if res.Index != i {
				t.Errorf("Results[%d].Index = %d, results should keep input order", i, res.Index)
			}
		}
	})

	t.Run("skips songs already downloaded", func(t *testing.T) {
		dir := t.TempDir()
		recorder := &mockRecorder{}
		engine := NewEngine(catalog, recorder, nil)

		if _, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir)); err != nil {
			t.Fatalf("first run error = %v", err)
		}
		before := catalog.callCount(1)

		result, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir))
		if err != nil {
			t.Fatalf("second run error = %v", err)
		}
		if result.Skipped != 3 || result.Downloaded != 0 {
			t.Errorf("second run = %+v, want 3 skipped", result)
		}
		if catalog.callCount(1) != before {
			t.Error("skipped song should not be downloaded again")
		}
	})

	t.Run("downloads again when the file is gone", func(t *testing.T) {
		dir := t.TempDir()
		recorder := &mockRecorder{}
		engine := NewEngine(catalog, recorder, nil)

		first, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir))
		if err != nil {
			t.Fatalf("first run error = %v", err)
		}
		os.Remove(first.Results[0].Path)

		result, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir))
		if err != nil {
			t.Fatalf("second run error = %v", err)
		}
		if result.Downloaded != 1 || result.Skipped != 2 {
			t.Errorf("second run = %+v, want 1 downloaded and 2 skipped", result)
		}
	})

	t.Run("overwrite ignores the recorder", func(t *testing.T) {
		dir := t.TempDir()
		recorder := &mockRecorder{}
		engine := NewEngine(catalog, recorder, nil)

		engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(dir))
		opts := fastOpts(dir)
		opts.Overwrite = true
		result, err := engine.DownloadPlaylist(context.Background(), nil, 7, opts)
		if err != nil {
			t.Fatalf("DownloadPlaylist() error = %v", err)
		}
		if result.Downloaded != 3 {
			t.Errorf("Downloaded = %d, want 3", result.Downloaded)
		}
	})

	t.Run("playlist fetch error", func(t *testing.T) {
		engine := NewEngine(catalog, nil, nil)
		_, err := engine.DownloadPlaylist(context.Background(), nil, 99, fastOpts(t.TempDir()))
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("error = %v, want ErrPlaylistNotFound", err)
		}
	})

	t.Run("nil catalog", func(t *testing.T) {
		engine := NewEngine(nil, nil, nil)
		_, err := engine.DownloadPlaylist(context.Background(), nil, 7, fastOpts(t.TempDir()))
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("error = %v, want ErrServiceUnavailable", err)
		}
	})
}

func TestDownloadSongs_PartialFailures(t *testing.T) {
	catalog := newMockCatalog()
	catalog.audio[1] = "ok"
	catalog.failing[2] = errors.New("upstream exploded")
	// song 3 has no audio and yields an empty body

	dir := t.TempDir()
	recorder := &mockRecorder{}
	engine := NewEngine(catalog, recorder, nil)
	progressCh := make(chan ProgressUpdate, 100)

	songs := []models.Song{{ID: 1, Title: "Works"}, {ID: 2, Title: "Breaks"}, {ID: 3}}
	result, err := engine.DownloadSongs(context.Background(), progressCh, songs, fastOpts(dir))
	close(progressCh)
	if err != nil {
		t.Fatalf("DownloadSongs() error = %v", err)
	}

	if result.Downloaded != 1 || result.Failed != 2 {
		t.Errorf("result = %+v, want 1 downloaded and 2 failed", result)
	}
	if result.PlaylistID != nil {
		t.Errorf("PlaylistID = %v, want nil", result.PlaylistID)
	}
	if result.Results[1].Err == nil || result.Results[2].Err == nil {
		t.Error("failed songs should carry their error")
	}
	if len(recorder.records) != 1 {
		t.Errorf("recorded %d downloads, want 1", len(recorder.records))
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}

	var failed int
	for u := range progressCh {
		if u.Phase == SongFailed {
			failed++
			if _, ok := u.Data.(SongResult); !ok {
				t.Errorf("failed update Data = %T, want SongResult", u.Data)
			}
		}
	}
	if failed != 2 {
		t.Errorf("got %d failure updates, want 2", failed)
	}
}

func TestDownloadSongs_RecorderErrorIsNotFatal(t *testing.T) {
	catalog := newMockCatalog()
	catalog.audio[1] = "ok"
	engine := NewEngine(catalog, &mockRecorder{err: errors.New("disk full")}, nil)

	result, err := engine.DownloadSongs(context.Background(), nil, []models.Song{{ID: 1}}, fastOpts(t.TempDir()))
	if err != nil {
		t.Fatalf("DownloadSongs() error = %v", err)
	}
	if result.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", result.Downloaded)
	}
}

func TestDownloadSongs_ContextCancellation(t *testing.T) {
	catalog := newMockCatalog()
	songs := make([]models.Song, 20)
	for i := range songs {
		songs[i] = models.Song{ID: int64(i + 1)}
		catalog.audio[int64(i+1)] = "x"
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(catalog, nil, nil)
	opts := fastOpts(t.TempDir())
	opts.RateLimit = 1
	result, err := engine.DownloadSongs(ctx, nil, songs, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if result == nil {
		t.Fatal("expected a partial result")
	}
	if result.Downloaded == len(songs) {
		t.Error("cancelled run should not download every song")
	}
}

func TestDownloadSongs_Empty(t *testing.T) {
	engine := NewEngine(newMockCatalog(), nil, nil)
	result, err := engine.DownloadSongs(context.Background(), nil, nil, fastOpts(t.TempDir()))
	if err != nil {
		t.Fatalf("DownloadSongs() error = %v", err)
	}
	if result.Total != 0 || len(result.Results) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestDownloadOpts_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   DownloadOpts
		want DownloadOpts
	}{
		{name: "zero", in: DownloadOpts{}, want: DownloadOpts{Dir: "downloads", Workers: DefaultWorkers, RateLimit: DefaultRateLimit}},
		{name: "workers capped", in: DownloadOpts{Dir: "x", Workers: 50, RateLimit: 2}, want: DownloadOpts{Dir: "x", Workers: MaxWorkers, RateLimit: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Errorf("withDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		song models.Song
		want string
	}{
		{models.Song{ID: 4, Title: "Hello, World!", Artist: "The Band"}, "4-the-band-hello-world.mp3"},
		{models.Song{ID: 5, Title: "Café del Mar"}, "5-café-del-mar.mp3"},
		{models.Song{ID: 6, Title: "../../etc"}, "6-etc.mp3"},
		{models.Song{ID: 7}, "song-7.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := SongFilename(tt.song); got != tt.want {
				t.Errorf("SongFilename() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := PlaylistDirname(models.Playlist{ID: 2}); got != "playlist-2" {
		t.Errorf("PlaylistDirname() = %q, want playlist-2", got)
	}
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	catalog := newMockCatalog()
	catalog.audio[1] = "ok"
	engine := NewEngine(catalog, nil, nil)

	// unbuffered and never read
	progressCh := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := engine.DownloadSongs(context.Background(), progressCh, []models.Song{{ID: 1}}, fastOpts(t.TempDir())); err != nil {
			t.Errorf("DownloadSongs() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("DownloadSongs() should not block on progress sends")
	}
}

func TestPhase_String(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylist:  "fetch_playlist",
		DownloadSong:   "download_song",
		SongDownloaded: "song_downloaded",
		SongSkipped:    "song_skipped",
		SongFailed:     "song_failed",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
