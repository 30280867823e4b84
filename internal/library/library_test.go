package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/services"
)

// fakeCatalog serves numbered songs and playlists and counts calls.
type fakeCatalog struct {
	mu        sync.Mutex
	total     int
	calls     map[string]int
	failWrite error
}

func newFakeCatalog(total int) *fakeCatalog {
	return &fakeCatalog{total: total, calls: make(map[string]int)}
}

func (f *fakeCatalog) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeCatalog) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func pageOf[T any](q services.PageQuery, total int, mk func(i int) T) models.Page[T] {
	last := (total + q.PerPage - 1) / q.PerPage
	var items []T
	for i := (q.Page - 1) * q.PerPage; i < q.Page*q.PerPage && i < total; i++ {
		items = append(items, mk(i))
	}
	return models.Page[T]{Items: items, CurrentPage: q.Page, LastPage: last, PerPage: q.PerPage, Total: total}
}

func (f *fakeCatalog) Songs(_ context.Context, q services.PageQuery) (models.Page[models.Song], error) {
	f.hit("songs")
	return pageOf(q, f.total, func(i int) models.Song {
		return models.Song{ID: int64(i + 1), Title: fmt.Sprintf("%s%d", q.Term, i+1)}
	}), nil
}

func (f *fakeCatalog) Playlists(_ context.Context, q services.PageQuery) (models.Page[models.Playlist], error) {
	f.hit("playlists")
	return pageOf(q, f.total, func(i int) models.Playlist {
		return models.Playlist{ID: int64(i + 1)}
	}), nil
}

func (f *fakeCatalog) Playlist(_ context.Context, id int64) (models.PlaylistDetail, error) {
	f.hit("playlist")
	return models.PlaylistDetail{Playlist: models.Playlist{ID: id}}, nil
}

func (f *fakeCatalog) CreatePlaylist(context.Context, string, string) (json.RawMessage, error) {
	f.hit("create")
	return json.RawMessage(`{}`), f.failWrite
}

func (f *fakeCatalog) UpdatePlaylist(context.Context, int64, services.PlaylistUpdate) (json.RawMessage, error) {
	f.hit("update")
	return json.RawMessage(`{}`), f.failWrite
}

func (f *fakeCatalog) DeletePlaylist(context.Context, int64) error {
	f.hit("delete")
	return f.failWrite
}

func (f *fakeCatalog) AddSong(context.Context, int64, int64) error {
	f.hit("add")
	return f.failWrite
}

func (f *fakeCatalog) RemoveSong(context.Context, int64, int64) error {
	f.hit("remove")
	return f.failWrite
}

func newTestLibrary(c Catalog) *Library {
	return New(c, Options{SongsPerPage: 2, PlaylistsPerPage: 2, Logger: log.New(io.Discard)})
}

func TestPager(t *testing.T) {
	ctx := context.Background()

	t.Run("accumulates pages until the last", func(t *testing.T) {
		lib := newTestLibrary(newFakeCatalog(5))
		p := lib.SongsPager()

		for range 5 {
			if _, err := p.FetchNext(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		items := p.Items()
		if len(items) != 5 {
			t.Fatalf("expected 5 items, got %d", len(items))
		}
		if items[0].ID != 1 || items[4].ID != 5 {
			t.Errorf("items out of order: %v", items)
		}
		if p.HasMore() {
			t.Error("expected no more pages")
		}
		if p.Total() != 5 {
			t.Errorf("expected total 5, got %d", p.Total())
		}
	})

	t.Run("term change resets to the first page", func(t *testing.T) {
		lib := newTestLibrary(newFakeCatalog(5))
		p := lib.SongsPager()
		p.FetchNext(ctx)
		p.FetchNext(ctx)

		if !p.SetTerm("abc") {
			t.Fatal("expected term change")
		}
		if p.Loaded() || len(p.Items()) != 0 {
			t.Error("expected items cleared on term change")
		}

		req, ok := p.Next()
		if !ok || req.Query.Page != 1 || req.Query.Term != "abc" {
			t.Errorf("expected page 1 for new term, got %+v", req)
		}
	})

	t.Run("same term is not a change", func(t *testing.T) {
		p := newTestLibrary(newFakeCatalog(5)).SongsPager()
		p.SetTerm("x")
		if p.SetTerm("x") {
			t.Error("expected no change")
		}
	})

	t.Run("drops results for a superseded term", func(t *testing.T) {
		p := newTestLibrary(newFakeCatalog(5)).SongsPager()
		req, _ := p.Next()
		page, err := p.Load(ctx, req)
		if err != nil {
			t.Fatal(err)
		}

		p.SetTerm("new")
		if p.Apply(req, page, nil) {
			t.Error("expected stale page to be dropped")
		}
		if len(p.Items()) != 0 {
			t.Errorf("stale items leaked: %v", p.Items())
		}
	})

	t.Run("one fetch in flight at a time", func(t *testing.T) {
		p := newTestLibrary(newFakeCatalog(5)).SongsPager()
		if _, ok := p.Next(); !ok {
			t.Fatal("expected first reservation")
		}
		if _, ok := p.Next(); ok {
			t.Error("expected second reservation to be refused")
		}
		if !p.Loading() {
			t.Error("expected loading")
		}
	})

	t.Run("keeps error for the current key", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewPager(func(context.Context, services.PageQuery) (models.Page[int], error) {
			return models.Page[int]{}, boom
		}, 10)

		if _, err := p.FetchNext(ctx); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if !errors.Is(p.Err(), boom) || p.Loading() {
			t.Errorf("unexpected state err=%v loading=%v", p.Err(), p.Loading())
		}
		if !p.HasMore() {
			t.Error("expected retry to be possible")
		}
	})

	t.Run("empty result has no more pages", func(t *testing.T) {
		p := newTestLibrary(newFakeCatalog(0)).SongsPager()
		p.FetchNext(ctx)
		if p.HasMore() || !p.Loaded() {
			t.Errorf("expected loaded and exhausted, more=%v loaded=%v", p.HasMore(), p.Loaded())
		}
	})
}

func TestDebouncer(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("commits after the quiet period", func(t *testing.T) {
		d := NewDebouncer(300 * time.Millisecond)
		deadline := d.Input("ab", start)
		if !deadline.Equal(start.Add(300 * time.Millisecond)) {
			t.Errorf("unexpected deadline %v", deadline)
		}

		if _, changed := d.Commit(start.Add(299 * time.Millisecond)); changed {
			t.Error("expected no commit before the quiet period")
		}
		v, changed := d.Commit(deadline)
		if !changed || v != "ab" {
			t.Errorf("expected commit of ab, got %q %v", v, changed)
		}
	})

	t.Run("newer input restarts the wait", func(t *testing.T) {
		d := NewDebouncer(300 * time.Millisecond)
		first := d.Input("a", start)
		d.Input("ab", start.Add(200*time.Millisecond))

		if _, changed := d.Commit(first); changed {
			t.Error("expected earlier deadline to be ignored")
		}
		if v, _ := d.Commit(start.Add(500 * time.Millisecond)); v != "ab" {
			t.Errorf("expected ab, got %q", v)
		}
		if d.Pending() != "ab" || d.Value() != "ab" {
			t.Errorf("unexpected pending=%q value=%q", d.Pending(), d.Value())
		}
	})

	t.Run("returning to the committed value is not a change", func(t *testing.T) {
		d := NewDebouncer(0)
		if d.Quiet() != DefaultDebounce {
			t.Errorf("expected default quiet period, got %v", d.Quiet())
		}
		d.Input("x", start)
		d.Commit(start.Add(time.Second))
		d.Input("xy", start.Add(2*time.Second))
		d.Input("x", start.Add(2*time.Second+100*time.Millisecond))

		if _, changed := d.Commit(start.Add(3 * time.Second)); changed {
			t.Error("expected no change")
		}
	})
}

func TestCache(t *testing.T) {
	t.Run("stale entries are refetched", func(t *testing.T) {
		now := time.Now()
		c := NewCache(10, time.Minute, 5*time.Minute)
		c.now = func() time.Time { return now }

		c.Set(Key{"songs", "1"}, "v")
		if v, ok := c.Get(Key{"songs", "1"}); !ok || v != "v" {
			t.Errorf("expected fresh hit, got %v %v", v, ok)
		}

		now = now.Add(time.Minute)
		if _, ok := c.Get(Key{"songs", "1"}); ok {
			t.Error("expected stale miss")
		}
	})

	t.Run("invalidates by whole segments", func(t *testing.T) {
		c := NewCache(10, time.Minute, 0)
		c.Set(Key{"playlist", "3"}, 1)
		c.Set(Key{"playlist", "30"}, 2)
		c.Set(Key{"playlists", "15", "1"}, 3)

		if n := c.Invalidate("playlist", "3"); n != 1 {
			t.Errorf("expected 1 removal, got %d", n)
		}
		if _, ok := c.Get(Key{"playlist", "30"}); !ok {
			t.Error("expected playlist/30 to survive")
		}
		if n := c.Invalidate("playlist"); n != 1 {
			t.Errorf("expected only playlist/30 removed, got %d", n)
		}
		if c.Len() != 1 {
			t.Errorf("expected playlists entry left, got %d", c.Len())
		}
	})

	t.Run("fetch does not cache errors", func(t *testing.T) {
		c := NewCache(10, time.Minute, 0)
		calls := 0
		load := func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("fail")
			}
			return 7, nil
		}

		if _, err := Fetch(context.Background(), c, Key{"k"}, load); err == nil {
			t.Error("expected error")
		}
		for range 2 {
			if v, err := Fetch(context.Background(), c, Key{"k"}, load); err != nil || v != 7 {
				t.Errorf("expected 7, got %v %v", v, err)
			}
		}
		if calls != 2 {
			t.Errorf("expected 2 loads, got %d", calls)
		}
	})
}

func TestLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("playlist reads are cached", func(t *testing.T) {
		cat := newFakeCatalog(3)
		lib := newTestLibrary(cat)
		lib.Playlist(ctx, 4)
		lib.Playlist(ctx, 4)
		if n := cat.count("playlist"); n != 1 {
			t.Errorf("expected 1 upstream call, got %d", n)
		}
	})

	t.Run("adding a song invalidates the playlist and the list", func(t *testing.T) {
		cat := newFakeCatalog(3)
		lib := newTestLibrary(cat)
		pager := lib.PlaylistsPager()
		pager.FetchNext(ctx)
		lib.Playlist(ctx, 4)

		if err := lib.AddSong(ctx, 4, 9); err != nil {
			t.Fatal(err)
		}
		if pager.Loaded() {
			t.Error("expected playlists pager reset")
		}
		lib.Playlist(ctx, 4)
		if n := cat.count("playlist"); n != 2 {
			t.Errorf("expected refetch after mutation, got %d calls", n)
		}
	})

	t.Run("failed mutations keep the cache", func(t *testing.T) {
		cat := newFakeCatalog(3)
		cat.failWrite = errors.New("nope")
		lib := newTestLibrary(cat)
		pager := lib.PlaylistsPager()
		pager.FetchNext(ctx)

		if _, err := lib.CreatePlaylist(ctx, "t", ""); err == nil {
			t.Fatal("expected error")
		}
		if !pager.Loaded() {
			t.Error("expected pager untouched")
		}
	})

	t.Run("mutations leave songs alone", func(t *testing.T) {
		cat := newFakeCatalog(3)
		lib := newTestLibrary(cat)
		songs := lib.SongsPager()
		songs.FetchNext(ctx)

		lib.DeletePlaylist(ctx, 1)
		lib.RemoveSong(ctx, 1, 1)
		lib.UpdatePlaylist(ctx, 1, services.PlaylistUpdate{})
		if !songs.Loaded() {
			t.Error("expected songs pager untouched")
		}
	})
}
