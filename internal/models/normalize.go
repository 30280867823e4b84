package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// FormatDuration renders seconds as m:ss, or "–" when seconds is not finite.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "–"
	}
	m := math.Floor(seconds / 60)
	s := math.Floor(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", int64(m), int64(s))
}

func metaInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func pageFromMeta[T any](items []T, meta Meta) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		CurrentPage: metaInt(meta.CurrentPage, 1),
		LastPage:    metaInt(meta.PageCount, 1),
		PerPage:     metaInt(meta.PerPage, DefaultPerPage),
		Total:       metaInt(meta.TotalCount, 0),
	}
}

// NormalizeSong maps a raw song row. Unparseable durations are left unset and displayed as "–".
func NormalizeSong(item SongItem) Song {
	song := Song{
		ID:          item.ID,
		Title:       item.Title,
		Artist:      item.ArtistName,
		Album:       item.AlbumName,
		DownloadURL: item.File,
	}
	if item.Duration.Valid {
		song.Duration = item.Duration.Value
		song.DurationFormatted = FormatDuration(item.Duration.Value)
	} else {
		song.DurationFormatted = FormatDuration(math.NaN())
	}
	return song
}

// NormalizeSongs maps a song list envelope to a page of songs.
func NormalizeSongs(raw Envelope[SongItem]) Page[Song] {
	if raw.Result == nil {
		return pageFromMeta[Song](nil, Meta{})
	}
	songs := make([]Song, 0, len(raw.Result.Items))
	for _, item := range raw.Result.Items {
		songs = append(songs, NormalizeSong(item))
	}
	return pageFromMeta(songs, raw.Result.Meta)
}

// NormalizePlaylist maps a raw playlist row.
func NormalizePlaylist(item PlaylistItem) Playlist {
	return Playlist{
		ID:        item.ID,
		Title:     item.Title,
		Cover:     item.Cover,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// NormalizePlaylists maps a playlist list envelope to a page of playlists.
func NormalizePlaylists(raw Envelope[PlaylistItem]) Page[Playlist] {
	if raw.Result == nil {
		return pageFromMeta[Playlist](nil, Meta{})
	}
	playlists := make([]Playlist, 0, len(raw.Result.Items))
	for _, item := range raw.Result.Items {
		playlists = append(playlists, NormalizePlaylist(item))
	}
	return pageFromMeta(playlists, raw.Result.Meta)
}

// NormalizePlaylistDetail maps a playlist detail envelope. It returns false when the result is missing.
//
// Playlist rows carry no formatted duration; [Song.DurationDisplay] derives it.
func NormalizePlaylistDetail(raw DetailEnvelope) (PlaylistDetail, bool) {
	if raw.Result == nil {
		return PlaylistDetail{}, false
	}
	r := *raw.Result
	songs := make([]Song, 0, len(r.Songs))
	for _, item := range r.Songs {
		song := Song{
			ID:          item.ID,
			Title:       item.Title,
			Artist:      item.ArtistName,
			Album:       item.AlbumName,
			DownloadURL: item.File,
		}
		if item.Duration.Valid && item.Duration.Value != 0 {
			song.Duration = item.Duration.Value
		}
		songs = append(songs, song)
	}
	return PlaylistDetail{Playlist: NormalizePlaylist(r), Songs: songs}, true
}

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// CoverURL resolves a playlist cover reference against the media host.
//
// Blank covers fall back to [DefaultCoverURL], absolute http(s) URLs are kept,
// and bare filenames are joined onto mediaBase with duplicate slashes collapsed.
func CoverURL(cover, mediaBase string) string {
	cover = strings.TrimSpace(cover)
	if cover == "" {
		return DefaultCoverURL
	}
	if strings.HasPrefix(cover, "http://") || strings.HasPrefix(cover, "https://") {
		return cover
	}

	joined := mediaBase + "/" + cover
	scheme := ""
	if i := strings.Index(joined, "://"); i >= 0 {
		scheme, joined = joined[:i+3], joined[i+3:]
	}
	return scheme + repeatedSlashes.ReplaceAllString(joined, "/")
}
