package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Proxy       ProxyConfig       `toml:"proxy"`
	Pacing      PacingConfig      `toml:"pacing"`
	Cache       CacheConfig       `toml:"cache"`
	Sessions    SessionsConfig    `toml:"sessions"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Tidal   TidalConfig   `toml:"tidal"`
	Qobuz   QobuzConfig   `toml:"qobuz"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// TidalConfig contains the Tidal device-flow client id.
type TidalConfig struct {
	ClientID string `toml:"client_id"`
}

// QobuzConfig contains the Qobuz application id.
type QobuzConfig struct {
	AppID string `toml:"app_id"`
}

// SpotifyConfig contains Spotify OAuth2 credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ProxyConfig lists forwarding endpoints tried in order for outbound
// provider calls. An empty list means direct requests.
type ProxyConfig struct {
	URLs []string `toml:"urls"`
}

// PacingConfig contains rate-governor settings.
type PacingConfig struct {
	TidalIntervalMS   int `toml:"tidal_interval_ms"`
	QobuzIntervalMS   int `toml:"qobuz_interval_ms"`
	SpotifyIntervalMS int `toml:"spotify_interval_ms"`
	MaxRetries        int `toml:"max_retries"`
	DefaultRetryMS    int `toml:"default_retry_ms"`
}

// CacheConfig contains match-cache database settings.
type CacheConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SessionsConfig locates the persisted account sessions file.
type SessionsConfig struct {
	Path string `toml:"path"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
