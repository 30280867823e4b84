package library

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

// Catalog is the subset of [services.Client] the library reads and mutates through.
type Catalog interface {
	Songs(ctx context.Context, q services.PageQuery) (models.Page[models.Song], error)
	Playlists(ctx context.Context, q services.PageQuery) (models.Page[models.Playlist], error)
	Playlist(ctx context.Context, id int64) (models.PlaylistDetail, error)
	CreatePlaylist(ctx context.Context, title, cover string) (json.RawMessage, error)
	UpdatePlaylist(ctx context.Context, id int64, in services.PlaylistUpdate) (json.RawMessage, error)
	DeletePlaylist(ctx context.Context, id int64) error
	AddSong(ctx context.Context, playlistID, songID int64) error
	RemoveSong(ctx context.Context, playlistID, songID int64) error
}

// Options configures a [Library].
type Options struct {
	SongsPerPage     int
	PlaylistsPerPage int
	StaleTime        time.Duration
	GCTime           time.Duration
	Logger           *log.Logger
}

// Library serves cached reads and invalidating mutations over a [Catalog].
type Library struct {
	catalog Catalog
	cache   *Cache
	opts    Options
	logger  *log.Logger

	mu     sync.Mutex
	pagers map[string][]interface{ Reset() }
}

// New returns a library over catalog.
func New(catalog Catalog, opts Options) *Library {
	if opts.SongsPerPage <= 0 {
		opts.SongsPerPage = models.DefaultSongsPerPage
	}
	if opts.PlaylistsPerPage <= 0 {
		opts.PlaylistsPerPage = models.DefaultPlaylistPerPage
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{
		catalog: catalog,
		cache:   NewCache(DefaultCacheSize, opts.StaleTime, opts.GCTime),
		opts:    opts,
		logger:  logger,
		pagers:  make(map[string][]interface{ Reset() }),
	}
}

// Cache exposes the query cache.
func (l *Library) Cache() *Cache {
	return l.cache
}

func (l *Library) track(prefix string, p interface{ Reset() }) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pagers[prefix] = append(l.pagers[prefix], p)
}

// Invalidate drops cached reads under prefix and resets pagers built on them.
func (l *Library) Invalidate(prefix ...string) {
	n := l.cache.Invalidate(prefix...)
	l.logger.Debug("invalidated queries", "key", Key(prefix).String(), "entries", n)

	if len(prefix) != 1 {
		return
	}
	l.mu.Lock()
	pagers := append([]interface{ Reset() }(nil), l.pagers[prefix[0]]...)
	l.mu.Unlock()
	for _, p := range pagers {
		p.Reset()
	}
}

// SongsPager returns a pager over the song catalog, filtered by title.
func (l *Library) SongsPager() *Pager[models.Song] {
	p := NewPager(func(ctx context.Context, q services.PageQuery) (models.Page[models.Song], error) {
		key := Key{"songs", q.Term, strconv.Itoa(q.PerPage), strconv.Itoa(q.Page)}
		return Fetch(ctx, l.cache, key, func(ctx context.Context) (models.Page[models.Song], error) {
			return l.catalog.Songs(ctx, q)
		})
	}, l.opts.SongsPerPage)
	l.track("songs", p)
	return p
}

// PlaylistsPager returns a pager over the user's playlists.
func (l *Library) PlaylistsPager() *Pager[models.Playlist] {
	p := NewPager(func(ctx context.Context, q services.PageQuery) (models.Page[models.Playlist], error) {
		key := Key{"playlists", strconv.Itoa(q.PerPage), strconv.Itoa(q.Page)}
		return Fetch(ctx, l.cache, key, func(ctx context.Context) (models.Page[models.Playlist], error) {
			return l.catalog.Playlists(ctx, q)
		})
	}, l.opts.PlaylistsPerPage)
	l.track("playlists", p)
	return p
}

// Playlist returns one playlist with its songs.
func (l *Library) Playlist(ctx context.Context, id int64) (models.PlaylistDetail, error) {
	key := Key{"playlist", strconv.FormatInt(id, 10)}
	return Fetch(ctx, l.cache, key, func(ctx context.Context) (models.PlaylistDetail, error) {
		return l.catalog.Playlist(ctx, id)
	})
}

func (l *Library) invalidatePlaylist(id int64) {
	l.Invalidate("playlist", strconv.FormatInt(id, 10))
	l.Invalidate("playlists")
}

// CreatePlaylist creates a playlist and refreshes the playlist list.
func (l *Library) CreatePlaylist(ctx context.Context, title, cover string) (json.RawMessage, error) {
	out, err := l.catalog.CreatePlaylist(ctx, title, cover)
	if err != nil {
		return nil, err
	}
	l.Invalidate("playlists")
	return out, nil
}

// UpdatePlaylist updates a playlist and refreshes it and the playlist list.
func (l *Library) UpdatePlaylist(ctx context.Context, id int64, in services.PlaylistUpdate) (json.RawMessage, error) {
	out, err := l.catalog.UpdatePlaylist(ctx, id, in)
	if err != nil {
		return nil, err
	}
	l.invalidatePlaylist(id)
	return out, nil
}

// DeletePlaylist deletes a playlist and refreshes the playlist list.
func (l *Library) DeletePlaylist(ctx context.Context, id int64) error {
	if err := l.catalog.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	l.invalidatePlaylist(id)
	return nil
}

// AddSong adds a song to a playlist and refreshes that playlist.
func (l *Library) AddSong(ctx context.Context, playlistID, songID int64) error {
	if err := l.catalog.AddSong(ctx, playlistID, songID); err != nil {
		return err
	}
	l.invalidatePlaylist(playlistID)
	return nil
}

// RemoveSong removes a song from a playlist and refreshes that playlist.
func (l *Library) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	if err := l.catalog.RemoveSong(ctx, playlistID, songID); err != nil {
		return err
	}
	l.invalidatePlaylist(playlistID)
	return nil
}
