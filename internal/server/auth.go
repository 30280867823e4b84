package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/musix/internal/shared"
)

// TokenMaxAge is the token cookie lifetime and the fallback token lifetime.
const TokenMaxAge = 7 * 24 * time.Hour

// ResolveExpiration picks the token expiration from a login result.
//
// Preference order: access_token_expration (ISO string or unix seconds), expires_in
// seconds (number or numeric string), the token's exp claim, then now plus [TokenMaxAge].
func ResolveExpiration(result map[string]any, token string, now time.Time) time.Time {
	if t, ok := absoluteExpiry(result["access_token_expration"]); ok {
		return t
	}
	if secs, ok := positiveSeconds(result["expires_in"]); ok {
		return now.Add(time.Duration(secs * float64(time.Second)))
	}
	if t, ok := tokenExpiry(token); ok {
		return t
	}
	return now.Add(TokenMaxAge)
}

func absoluteExpiry(v any) (time.Time, bool) {
	switch v := v.(type) {
	case string:
		return shared.ParseExpiry(v)
	case json.Number:
		if secs, err := v.Int64(); err == nil {
			return time.Unix(secs, 0), true
		}
		if secs, err := v.Float64(); err == nil && !math.IsInf(secs, 0) {
			return time.Unix(0, int64(secs*float64(time.Second))), true
		}
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return time.Unix(0, int64(v*float64(time.Second))), true
		}
	}
	return time.Time{}, false
}

func positiveSeconds(v any) (float64, bool) {
	var n float64
	switch v := v.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return n, true
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// maxAge converts seconds to [http.Cookie.MaxAge], where zero must be sent as -1.
func maxAge(secs int) int {
	if secs <= 0 {
		return -1
	}
	return secs
}

// SessionCookies returns the token and expiration cookies for a new session.
func SessionCookies(token string, expires, now time.Time, secure bool) []*http.Cookie {
	remaining := int(math.Floor(expires.Sub(now).Seconds()))
	return []*http.Cookie{
		{
			Name:     shared.TokenCookie,
			Value:    url.QueryEscape(token),
			Path:     "/",
			MaxAge:   int(TokenMaxAge / time.Second),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
		{
			Name:     shared.ExpiresCookie,
			Value:    url.QueryEscape(shared.FormatExpiry(expires)),
			Path:     "/",
			MaxAge:   maxAge(remaining),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// ClearCookies returns cookies that remove both session cookies.
func ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: shared.TokenCookie, Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode},
		{Name: shared.ExpiresCookie, Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode},
	}
}

func setCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if v, err := url.QueryUnescape(c.Value); err == nil {
		return v
	}
	return c.Value
}

// SessionToken returns the request's bearer token when it is present and unexpired.
func SessionToken(r *http.Request, now time.Time) string {
	token := cookieValue(r, shared.TokenCookie)
	if !shared.TokenValid(token, cookieValue(r, shared.ExpiresCookie), now) {
		return ""
	}
	return token
}
