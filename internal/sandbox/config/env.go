package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SANDBOX_"

func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	getEnv(&cfg.EndpointAddr, "ADDR")
	getEnv(&cfg.SecretKey, "SECRET_KEY")
	getEnv(&cfg.DemoEmail, "DEMO_EMAIL")
	getEnv(&cfg.DemoPassword, "DEMO_PASSWORD")
	getEnv(&cfg.DemoMFASecret, "DEMO_MFA_SECRET")
	getEnv(&cfg.LogBackend, "LOG_BACKEND")
	getEnv(&cfg.LogLevel, "LOG_LEVEL")
	getEnv(&cfg.LogFormat, "LOG_FORMAT")

	for key, dst := range map[string]*time.Duration{
		"TOKEN_TTL":        &cfg.TokenTTL,
		"MFA_SESSION_TTL":  &cfg.MFASessionTTL,
		"LOCKOUT_DURATION": &cfg.LockoutDuration,
	} {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
		}
	}

	for key, dst := range map[string]*int{
		"MAX_DOCUMENT_SIZE":  &cfg.MaxDocumentSize,
		"MAX_LOGIN_ATTEMPTS": &cfg.MaxLoginAttempts,
	} {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
		}
	}
	return nil
}

func getEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		*dst = v
	}
}
