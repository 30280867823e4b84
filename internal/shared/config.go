package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Client    ClientConfig    `toml:"client"`
	Database  DatabaseConfig  `toml:"database"`
	Player    PlayerConfig    `toml:"player"`
	Downloads DownloadsConfig `toml:"downloads"`
}

// ServerConfig contains settings for the proxy server.
type ServerConfig struct {
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	Environment           string `toml:"environment"`
	StaticDir             string `toml:"static_dir"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	LoginRatePerMinute    int    `toml:"login_rate_per_minute"`
}

// Addr joins host and port into a listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Production reports whether session cookies should carry the Secure attribute.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, "production")
}

// RequestTimeout returns the per-request deadline, or zero when disabled.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// UpstreamConfig points at the remote music API.
type UpstreamConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	MediaURL       string `toml:"media_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the upstream HTTP client timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// ClientConfig contains settings used by the CLI and terminal player when talking to the proxy.
type ClientConfig struct {
	BaseURL          string `toml:"base_url"`
	SongsPerPage     int    `toml:"songs_per_page"`
	PlaylistsPerPage int    `toml:"playlists_per_page"`
	SearchDebounceMS int    `toml:"search_debounce_ms"`
}

// SearchDebounce returns the quiet period before a search term is committed.
func (c ClientConfig) SearchDebounce() time.Duration {
	if c.SearchDebounceMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig tunes the speaker output.
type PlayerConfig struct {
	SampleRate      int `toml:"sample_rate"`
	BufferMS        int `toml:"buffer_ms"`
	ResampleQuality int `toml:"resample_quality"`
	TickMS          int `toml:"tick_ms"`
}

// DownloadsConfig controls bulk song downloads.
type DownloadsConfig struct {
	Dir               string  `toml:"dir"`
	Workers           int     `toml:"workers"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads path when it exists and falls back to defaults otherwise,
// then applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	ApplyEnv(config, os.LookupEnv)
	return config, nil
}
