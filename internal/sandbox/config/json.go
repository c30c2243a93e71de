package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/docverify/internal/flagx"
	"github.com/dmitrijs2005/docverify/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Durations accept "1s" strings or nanoseconds.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	SecretKey        string         `json:"secret_key"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	MFASessionTTL    timex.Duration `json:"mfa_session_ttl"`
	MaxDocumentSize  int            `json:"max_document_size"`
	MaxLoginAttempts int            `json:"max_login_attempts"`
	LockoutDuration  timex.Duration `json:"lockout_duration"`
	DemoEmail        string         `json:"demo_email"`
	DemoPassword     string         `json:"demo_password"`
	DemoMFASecret    string         `json:"demo_mfa_secret"`
	LogBackend       string         `json:"log_backend"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
}

// parseJson overlays the file named by -c/-config (or SANDBOX_CONFIG).
// Fields left out of the file keep their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args, envPrefix+"CONFIG")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	setString(&cfg.EndpointAddr, jc.EndpointAddr)
	setString(&cfg.SecretKey, jc.SecretKey)
	setString(&cfg.DemoEmail, jc.DemoEmail)
	setString(&cfg.DemoPassword, jc.DemoPassword)
	setString(&cfg.DemoMFASecret, jc.DemoMFASecret)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setDuration(&cfg.TokenTTL, jc.TokenTTL)
	setDuration(&cfg.MFASessionTTL, jc.MFASessionTTL)
	setDuration(&cfg.LockoutDuration, jc.LockoutDuration)

	if jc.MaxDocumentSize > 0 {
		cfg.MaxDocumentSize = jc.MaxDocumentSize
	}
	if jc.MaxLoginAttempts > 0 {
		cfg.MaxLoginAttempts = jc.MaxLoginAttempts
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
