package xactions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ClientConfig holds all configuration for the client.
type ClientConfig struct {
	// Credentials supplies the signing credential for each call. When nil,
	// Accounts are wrapped in an AccountPool.
	Credentials CredentialProvider

	// Accounts is the list of cookie sessions to rotate through.
	Accounts []*Account

	// Doer overrides the transport. Default: a go-stealth browser client.
	Doer Doer

	// DefaultProxy is the proxy URL for accounts without per-account proxies.
	DefaultProxy string

	// RequestTimeout bounds every HTTP exchange. Default: 30s.
	RequestTimeout time.Duration

	// RequestsPerMinute paces outbound calls client-side. Zero disables pacing.
	RequestsPerMinute float64

	// Burst is the pacing burst size. Default: 1.
	Burst int

	// DisableJitter turns off the randomized pre-request delay.
	DisableJitter bool

	// ChunkSize is the upload APPEND segment size. Default: 5 MiB.
	ChunkSize int

	// DefaultLimit applies to list operations called with a zero limit. Default: 100.
	DefaultLimit int

	// MaxEmptyPages is how many consecutive pages without new items a walk
	// tolerates before treating the feed as exhausted. Default: 3.
	MaxEmptyPages int

	// ThreadLimit caps the conversation entries scanned by ThreadOf. Default: 200.
	ThreadLimit int

	// AuthCooldown is how long a rejected account stays out of the pool. Default: 1h.
	AuthCooldown time.Duration

	// MetricsHook is called on each API request for external metrics collection.
	// endpoint is the operation name, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)
}

const (
	defaultChunkSize      = 5 * 1024 * 1024
	defaultRequestTimeout = 30 * time.Second
)

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.MaxEmptyPages <= 0 {
		cfg.MaxEmptyPages = 3
	}
	if cfg.ThreadLimit <= 0 {
		cfg.ThreadLimit = 200
	}
	if cfg.AuthCooldown == 0 {
		cfg.AuthCooldown = time.Hour
	}
}

type fileConfig struct {
	Proxy             string  `toml:"proxy"`
	RequestTimeout    string  `toml:"request_timeout"`
	RequestsPerMinute float64 `toml:"requests_per_minute"`
	Burst             int     `toml:"burst"`
	DisableJitter     bool    `toml:"disable_jitter"`
	ChunkSize         int     `toml:"chunk_size"`
	DefaultLimit      int     `toml:"default_limit"`
	MaxEmptyPages     int     `toml:"max_empty_pages"`
	ThreadLimit       int     `toml:"thread_limit"`
	AuthCooldown      string  `toml:"auth_cooldown"`
	Accounts          []struct {
		Username  string `toml:"username"`
		AuthToken string `toml:"auth_token"`
		CT0       string `toml:"ct0"`
		UserAgent string `toml:"user_agent"`
		Proxy     string `toml:"proxy"`
	} `toml:"accounts"`
}

// LoadConfig reads a TOML config file. A missing file yields the defaults.
func LoadConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	resolved, err := expandPath(path)
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.defaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.DefaultProxy = strings.TrimSpace(raw.Proxy)
	cfg.RequestsPerMinute = raw.RequestsPerMinute
	cfg.Burst = raw.Burst
	cfg.DisableJitter = raw.DisableJitter
	cfg.ChunkSize = raw.ChunkSize
	cfg.DefaultLimit = raw.DefaultLimit
	cfg.MaxEmptyPages = raw.MaxEmptyPages
	cfg.ThreadLimit = raw.ThreadLimit
	if cfg.RequestTimeout, err = parseDuration(raw.RequestTimeout); err != nil {
		return cfg, fmt.Errorf("parse config: request_timeout: %w", err)
	}
	if cfg.AuthCooldown, err = parseDuration(raw.AuthCooldown); err != nil {
		return cfg, fmt.Errorf("parse config: auth_cooldown: %w", err)
	}

	for i, a := range raw.Accounts {
		if strings.TrimSpace(a.AuthToken) == "" || strings.TrimSpace(a.CT0) == "" {
			return cfg, fmt.Errorf("parse config: accounts[%d]: auth_token and ct0 are required", i)
		}
		acc := NewAccount(strings.TrimSpace(a.Username), strings.TrimSpace(a.AuthToken), strings.TrimSpace(a.CT0))
		AssignBrowserProfile(acc, i)
		if ua := strings.TrimSpace(a.UserAgent); ua != "" {
			acc.UserAgent = ua
		}
		acc.Proxy = strings.TrimSpace(a.Proxy)
		cfg.Accounts = append(cfg.Accounts, acc)
	}

	cfg.defaults()
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("config path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
