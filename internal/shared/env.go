package shared

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LookupFunc matches [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// LoadEnvFiles loads .env style files into the process environment.
//
// Missing files are skipped. Variables already set in the environment win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
//
//   - API_BASE_URL sets the upstream API
//   - NEXT_PUBLIC_MEDIA_URL or MEDIA_URL sets the cover/media host
//   - MUSIX_ENV or NODE_ENV set the server environment
//   - PORT sets the server port
//   - MUSIX_BASE_URL sets the proxy address used by clients
func ApplyEnv(c *Config, lookup LookupFunc) {
	if v, ok := lookup("API_BASE_URL"); ok {
		c.Upstream.APIBaseURL = strings.TrimSpace(v)
	}

	for _, key := range []string{"MEDIA_URL", "NEXT_PUBLIC_MEDIA_URL"} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			c.Upstream.MediaURL = strings.TrimSpace(v)
		}
	}

	for _, key := range []string{"NODE_ENV", "MUSIX_ENV"} {
		if v, ok := lookup(key); ok && v != "" {
			c.Server.Environment = v
		}
	}

	if v, ok := lookup("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	if v, ok := lookup("MUSIX_BASE_URL"); ok && v != "" {
		c.Client.BaseURL = strings.TrimRight(v, "/")
	}
}

// MapLookup adapts a map for [ApplyEnv], mostly for tests.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
