package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "DOCVERIFY_"

// parseEnv loads envFile (if it exists) into the process environment and
// overlays DOCVERIFY_* variables. Malformed durations are reported.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	lookupString(&cfg.ServerURL, "SERVER_URL")
	lookupString(&cfg.DatabasePath, "DB_PATH")
	lookupString(&cfg.LogBackend, "LOG_BACKEND")
	lookupString(&cfg.LogLevel, "LOG_LEVEL")
	lookupString(&cfg.LogFormat, "LOG_FORMAT")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"LOGIN_TIMEOUT", &cfg.LoginTimeout},
		{"MIN_LOADING_TIME", &cfg.MinLoadingTime},
		{"AUTH_CHECK_TIMEOUT", &cfg.AuthCheckTimeout},
		{"FALLBACK_LOADING_TIMEOUT", &cfg.FallbackLoadingTimeout},
		{"TOKEN_TTL", &cfg.TokenTTL},
		{"PROGRESS_INTERVAL", &cfg.ProgressInterval},
		{"SESSION_CHECK_INTERVAL", &cfg.SessionCheckInterval},
	}
	for _, d := range durations {
		if err := lookupDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	return nil
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		*dst = v
	}
}

func lookupDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
