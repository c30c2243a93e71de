package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/docverify/internal/flagx"
	"github.com/dmitrijs2005/docverify/internal/timex"
)

// JsonConfig is the on-disk shape. Zero values leave the current setting
// untouched, so a file may carry only the fields it cares about.
type JsonConfig struct {
	ServerURL              string         `json:"server_url"`
	DatabasePath           string         `json:"database_path"`
	RequestTimeout         timex.Duration `json:"request_timeout"`
	LoginTimeout           timex.Duration `json:"login_timeout"`
	MinLoadingTime         timex.Duration `json:"min_loading_time"`
	AuthCheckTimeout       timex.Duration `json:"auth_check_timeout"`
	FallbackLoadingTimeout timex.Duration `json:"fallback_loading_timeout"`
	TokenTTL               timex.Duration `json:"token_ttl"`
	ProgressInterval       timex.Duration `json:"progress_interval"`
	SessionCheckInterval   timex.Duration `json:"session_check_interval"`
	LogBackend             string         `json:"log_backend"`
	LogLevel               string         `json:"log_level"`
	LogFormat              string         `json:"log_format"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args, "DOCVERIFY_CONFIG")
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

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.LoginTimeout, jc.LoginTimeout)
	setDuration(&cfg.MinLoadingTime, jc.MinLoadingTime)
	setDuration(&cfg.AuthCheckTimeout, jc.AuthCheckTimeout)
	setDuration(&cfg.FallbackLoadingTimeout, jc.FallbackLoadingTimeout)
	setDuration(&cfg.TokenTTL, jc.TokenTTL)
	setDuration(&cfg.ProgressInterval, jc.ProgressInterval)
	setDuration(&cfg.SessionCheckInterval, jc.SessionCheckInterval)
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
