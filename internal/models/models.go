package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCoverURL is the placeholder image used when a track or playlist has no cover.
const DefaultCoverURL = "/default-cover.jpeg"

// Default page sizes.
const (
	DefaultPerPage         = 15
	DefaultSongsPerPage    = 20
	DefaultPlaylistPerPage = 15
)

// Number is a JSON value the upstream sends either as a number or as a numeric string.
//
// Strings are parsed like a lenient float parser: the longest numeric prefix wins,
// so "125.4s" is 125.4. Anything else leaves Valid false.
type Number struct {
	Value float64
	Valid bool
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber parses s the way [Number] decodes a JSON string.
func ParseNumber(s string) Number {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = Number{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			*n = Number{}
			return nil
		}
		*n = Number{Value: v, Valid: true}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Int returns the value truncated to an integer.
func (n Number) Int() int64 { return int64(n.Value) }

// SongItem is one raw row of the upstream song listing.
type SongItem struct {
	ID         int64  `json:"id"`
	AlbumName  string `json:"album_name"`
	ArtistName string `json:"artist_name"`
	Duration   Number `json:"duration"`
	Title      string `json:"title"`
	Year       string `json:"year,omitempty"`
	File       string `json:"file"`
	Format     string `json:"format,omitempty"`
}

// PlaylistItem is one raw row of the upstream playlist listing or a playlist detail result.
type PlaylistItem struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Cover     string     `json:"cover,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	UpdatedAt string     `json:"updated_at,omitempty"`
	Songs     []SongItem `json:"songs,omitempty"`
}

// Meta is the upstream pagination block.
type Meta struct {
	TotalCount  *int `json:"totalCount,omitempty"`
	PageCount   *int `json:"pageCount,omitempty"`
	CurrentPage *int `json:"currentPage,omitempty"`
	PerPage     *int `json:"perPage,omitempty"`
}

// ListResult is the result member of a list envelope.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"_meta"`
}

// Envelope wraps every upstream list response.
type Envelope[T any] struct {
	OK     *bool          `json:"ok,omitempty"`
	Result *ListResult[T] `json:"result,omitempty"`
}

// DetailEnvelope wraps a single playlist response.
type DetailEnvelope struct {
	OK     *bool         `json:"ok,omitempty"`
	Result *PlaylistItem `json:"result,omitempty"`
}

// Song is a normalized song row.
type Song struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Artist            string  `json:"artist"`
	Album             string  `json:"album,omitempty"`
	Duration          float64 `json:"duration,omitempty"`
	DurationFormatted string  `json:"duration_formatted,omitempty"`
	DownloadURL       string  `json:"download_url,omitempty"`
}

// DurationDisplay returns the formatted duration, deriving it from Duration when needed.
func (s Song) DurationDisplay() string {
	if s.DurationFormatted != "" {
		return s.DurationFormatted
	}
	if s.Duration > 0 {
		return FormatDuration(s.Duration)
	}
	return "–"
}

// AudioURL is the proxy path that streams this song.
func (s Song) AudioURL() string {
	return fmt.Sprintf("/api/songs/download/%d", s.ID)
}

// Playlist is a normalized playlist row.
type Playlist struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Cover     string `json:"cover,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// PlaylistDetail is a playlist with its songs.
type PlaylistDetail struct {
	Playlist
	Songs []Song `json:"songs"`
}

// Page is one page of a normalized list.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
	PerPage     int `json:"perPage"`
	Total       int `json:"total"`
}

// HasNextPage reports whether another page follows this one.
func (p Page[T]) HasNextPage() bool {
	return p.CurrentPage < p.LastPage
}

// NextPage returns the page number to request next, or 0 when there is none.
func (p Page[T]) NextPage() int {
	if !p.HasNextPage() {
		return 0
	}
	return p.CurrentPage + 1
}

// NowPlayingTrack is the value object handed to the player. It is replaced wholesale on track change.
type NowPlayingTrack struct {
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	CoverURL        string  `json:"coverUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
	// AudioURL is empty for rows without a playable source.
	AudioURL string `json:"audioUrl,omitempty"`
}

// Playable reports whether the track has an audio source.
func (t NowPlayingTrack) Playable() bool {
	return t.AudioURL != ""
}

// TrackFromSong builds a now-playing track that streams through the proxy.
func TrackFromSong(s Song, coverURL string) NowPlayingTrack {
	if coverURL == "" {
		coverURL = DefaultCoverURL
	}
	duration := s.Duration
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}
	return NowPlayingTrack{
		Title:           s.Title,
		Artist:          s.Artist,
		CoverURL:        coverURL,
		DurationSeconds: duration,
		AudioURL:        s.AudioURL(),
	}
}
