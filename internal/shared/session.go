package shared

import (
	"strconv"
	"strings"
	"time"
)

// Session cookie names shared by the proxy and its clients.
const (
	TokenCookie   = "musix_access_token"
	ExpiresCookie = "musix_access_token_expires"
)

// ExpiryLayout is the ISO-8601 layout used for the expiration cookie value.
const ExpiryLayout = "2006-01-02T15:04:05.000Z"

// FormatExpiry renders t the way the expiration cookie stores it.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(ExpiryLayout)
}

// ParseExpiry parses an expiration cookie value or an upstream timestamp.
//
// Accepts RFC 3339 (with or without fractional seconds), a bare
// "YYYY-MM-DD HH:MM:SS" in UTC and unix seconds.
func ParseExpiry(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, ExpiryLayout, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}

	if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0), true
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Unix(0, int64(secs*float64(time.Second))), true
	}
	return time.Time{}, false
}

// TokenValid reports whether a token with the given expiration cookie value is usable at now.
//
// A missing expiration counts as valid, an unparseable one as expired.
func TokenValid(token, expires string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	if expires == "" {
		return true
	}
	exp, ok := ParseExpiry(expires)
	if !ok {
		return false
	}
	return now.Before(exp)
}
