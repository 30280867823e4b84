package shared

import (
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	tc := []struct {
		name  string
		value string
		ok    bool
	}{
		{"cookie format", "2030-01-02T03:04:05.000Z", true},
		{"rfc3339", "2030-01-02T03:04:05Z", true},
		{"space separated", "2030-01-02 03:04:05", true},
		{"unix seconds", "1893553445", true},
		{"blank", " ", false},
		{"garbage", "tomorrow", false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseExpiry(tt.value)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestFormatExpiry(t *testing.T) {
	ts := time.Date(2030, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("x", 3600))
	if got := FormatExpiry(ts); got != "2030-01-02T02:04:05.006Z" {
		t.Errorf("FormatExpiry() = %q", got)
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tc := []struct {
		name    string
		token   string
		expires string
		want    bool
	}{
		{"no token", "", "", false},
		{"blank token", "   ", "", false},
		{"no expiration", "abc", "", true},
		{"future expiration", "abc", FormatExpiry(now.Add(time.Hour)), true},
		{"past expiration", "abc", FormatExpiry(now.Add(-time.Second)), false},
		{"unparseable expiration", "abc", "soon", false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenValid(tt.token, tt.expires, now); got != tt.want {
				t.Errorf("TokenValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
