package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantURL     string
		wantHeaders map[string]string
		wantCookies map[string]string
		wantErr     bool
	}{
		{
			name:        "header with single quotes",
			curlCmd:     `curl 'http://localhost:3000/api/songs?page=1' -H 'Accept: application/json'`,
			wantURL:     "http://localhost:3000/api/songs?page=1",
			wantHeaders: map[string]string{"Accept": "application/json"},
			wantCookies: map[string]string{},
		},
		{
			name:        "header with double quotes",
			curlCmd:     `curl "http://localhost:3000/" -H "Accept: text/html"`,
			wantURL:     "http://localhost:3000/",
			wantHeaders: map[string]string{"Accept": "text/html"},
			wantCookies: map[string]string{},
		},
		{
			name:        "cookie via -b",
			curlCmd:     `curl 'http://localhost:3000/' -b 'musix_access_token=abc; musix_access_token_expires=2030-01-01T00:00:00.000Z'`,
			wantURL:     "http://localhost:3000/",
			wantHeaders: map[string]string{},
			wantCookies: map[string]string{
				"musix_access_token":         "abc",
				"musix_access_token_expires": "2030-01-01T00:00:00.000Z",
			},
		},
		{
			name:        "cookie header is excluded from headers",
			curlCmd:     `curl 'http://localhost:3000/' -H 'Cookie: musix_access_token=abc' -H 'Accept: */*'`,
			wantURL:     "http://localhost:3000/",
			wantHeaders: map[string]string{"Accept": "*/*"},
			wantCookies: map[string]string{"musix_access_token": "abc"},
		},
		{
			name: "multiline with backslashes",
			curlCmd: `curl 'http://localhost:3000/api/playlist' \
  -H 'Accept: application/json' \
  --cookie 'musix_access_token=xyz'`,
			wantURL:     "http://localhost:3000/api/playlist",
			wantHeaders: map[string]string{"Accept": "application/json"},
			wantCookies: map[string]string{"musix_access_token": "xyz"},
		},
		{
			name:    "no headers",
			curlCmd: `curl http://localhost:3000/`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurlCommand([]byte(tc.curlCmd))
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.URL != tc.wantURL {
				t.Errorf("URL = %q, want %q", got.URL, tc.wantURL)
			}
			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("headers = %v, want %v", got.Headers, tc.wantHeaders)
			}
			for k, v := range tc.wantHeaders {
				if got.Headers[k] != v {
					t.Errorf("header %s = %q, want %q", k, got.Headers[k], v)
				}
			}
			for k, v := range tc.wantCookies {
				if c, ok := got.Cookie(k); !ok || c != v {
					t.Errorf("cookie %s = %q, want %q", k, c, v)
				}
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.sh")
		content := "curl 'http://localhost:3000/' -b 'musix_access_token=file-token'\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write curl file: %v", err)
		}

		req, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, _ := req.Cookie("musix_access_token"); v != "file-token" {
			t.Errorf("expected file-token, got %q", v)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "nope.sh")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
