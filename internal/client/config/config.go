package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the docverify client.
//
// Fields:
//   - ServerURL: base URL of the verification backend (scheme://host:port).
//   - DatabasePath: SQLite file backing the persisted session.
//   - RequestTimeout: upper bound for any single HTTP call.
//   - LoginTimeout: client-side bound on the login call.
//   - MinLoadingTime: minimum perceived latency of a login attempt.
//   - AuthCheckTimeout: bound on the startup profile check.
//   - FallbackLoadingTimeout: forces loading=false if initialization is stuck.
//   - TokenTTL: assumed token lifetime when the token carries no exp claim.
//   - ProgressInterval: tick of the simulated upload/analysis progress.
//   - SessionCheckInterval: how often the CLI checks for token expiry.
//   - LogBackend / LogLevel / LogFormat: logging.Options.
type Config struct {
	ServerURL              string
	DatabasePath           string
	RequestTimeout         time.Duration
	LoginTimeout           time.Duration
	MinLoadingTime         time.Duration
	AuthCheckTimeout       time.Duration
	FallbackLoadingTimeout time.Duration
	TokenTTL               time.Duration
	ProgressInterval       time.Duration
	SessionCheckInterval   time.Duration
	LogBackend             string
	LogLevel               string
	LogFormat              string
}

// LoadDefaults populates c with the values the web client shipped with.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.DatabasePath = "docverify.db"
	c.RequestTimeout = 30 * time.Second
	c.LoginTimeout = 15 * time.Second
	c.MinLoadingTime = 1500 * time.Millisecond
	c.AuthCheckTimeout = 8 * time.Second
	c.FallbackLoadingTimeout = 10 * time.Second
	c.TokenTTL = time.Hour
	c.ProgressInterval = 50 * time.Millisecond
	c.SessionCheckInterval = 30 * time.Second
	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.AuthCheckTimeout <= 0 || c.FallbackLoadingTimeout <= 0 {
		return fmt.Errorf("auth check and fallback timeouts must be positive")
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	return nil
}

// LoadConfig applies defaults, then the JSON file, then environment (with
// an optional .env file), then command-line flags. Later sources win.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
