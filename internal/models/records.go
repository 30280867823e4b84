package models

import "time"

// Session is a stored client login: the bearer token the proxy minted for one proxy address.
type Session struct {
	ID          string
	BaseURL     string
	Username    string
	AccessToken string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Valid reports whether the session has a token that has not expired at now.
// A session without an expiration never expires.
func (s Session) Valid(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// Download records a song saved to disk.
type Download struct {
	ID         string
	SongID     int64
	PlaylistID *int64
	Title      string
	Artist     string
	Path       string
	SizeBytes  int64
	CreatedAt  time.Time
}
