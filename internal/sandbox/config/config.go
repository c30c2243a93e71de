// Package config handles configuration for the sandbox backend,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the sandbox backend.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP API.
//   - SecretKey: HMAC secret for signing JWTs (HS256) and sealing MFA
//     secrets. Do not use the default outside local demos.
//   - TokenTTL: bearer token lifetime.
//   - MFASessionTTL: lifetime of the short-lived token handed out when a
//     login needs a second factor.
//   - MaxDocumentSize: upload limit, in bytes of the encoded document.
//   - MaxLoginAttempts / LockoutDuration: failed-login lockout policy.
//   - DemoEmail / DemoPassword / DemoMFASecret: optional seeded account.
//   - LogBackend / LogLevel / LogFormat: logging.Options.
type Config struct {
	EndpointAddr     string
	SecretKey        string
	TokenTTL         time.Duration
	MFASessionTTL    time.Duration
	MaxDocumentSize  int
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	DemoEmail        string
	DemoPassword     string
	DemoMFASecret    string
	LogBackend       string
	LogLevel         string
	LogFormat        string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":5000"
	c.SecretKey = "secretKey"
	c.TokenTTL = time.Hour
	c.MFASessionTTL = 5 * time.Minute
	c.MaxDocumentSize = 1_000_000
	c.MaxLoginAttempts = 5
	c.LockoutDuration = 15 * time.Minute
	c.LogBackend = "zap"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.TokenTTL <= 0 || c.MFASessionTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.MaxDocumentSize <= 0 {
		return fmt.Errorf("max document size must be positive")
	}
	if (c.DemoEmail == "") != (c.DemoPassword == "") {
		return fmt.Errorf("demo email and password go together")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags.
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
