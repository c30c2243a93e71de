package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, ":5000", c.EndpointAddr)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.Equal(t, 5*time.Minute, c.MFASessionTTL)
	assert.Equal(t, 1_000_000, c.MaxDocumentSize)
	assert.Equal(t, 5, c.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, c.LockoutDuration)
	assert.Equal(t, "zap", c.LogBackend)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	c := defaults()
	c.SecretKey = ""
	assert.Error(t, c.Validate())

	c = defaults()
	c.DemoEmail = "demo@example.com"
	assert.Error(t, c.Validate(), "demo account needs a password")

	c.DemoPassword = "Passw0rd!"
	assert.NoError(t, c.Validate())
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	err := parseFlags(c, []string{"-a", "127.0.0.1:9090", "-s", "secret", "-t", "2", "-m", "2048", "-x", "ignored"})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddr = "127.0.0.1:9090"
	want.SecretKey = "secret"
	want.TokenTTL = 2 * time.Minute
	want.MaxDocumentSize = 2048
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseFlags_KeepsSubMinuteTTL(t *testing.T) {
	c := defaults()
	c.TokenTTL = 30 * time.Second
	require.NoError(t, parseFlags(c, nil))
	assert.Equal(t, 30*time.Second, c.TokenTTL)
}

func TestParseJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr": ":7000",
		"token_ttl": "10m",
		"max_login_attempts": 3,
		"demo_email": "demo@example.com",
		"demo_password": "Passw0rd!"
	}`), 0o600))

	c := defaults()
	require.NoError(t, parseJson(c, []string{"-c", path}))

	want := defaults()
	want.EndpointAddr = ":7000"
	want.TokenTTL = 10 * time.Minute
	want.MaxLoginAttempts = 3
	want.DemoEmail = "demo@example.com"
	want.DemoPassword = "Passw0rd!"
	assert.Empty(t, cmp.Diff(want, c))

	assert.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))
}

func TestParseEnv(t *testing.T) {
	t.Setenv("SANDBOX_ADDR", ":6000")
	t.Setenv("SANDBOX_MFA_SESSION_TTL", "90s")
	t.Setenv("SANDBOX_MAX_DOCUMENT_SIZE", "500")

	c := defaults()
	require.NoError(t, parseEnv(c, ""))
	assert.Equal(t, ":6000", c.EndpointAddr)
	assert.Equal(t, 90*time.Second, c.MFASessionTTL)
	assert.Equal(t, 500, c.MaxDocumentSize)

	t.Setenv("SANDBOX_MAX_LOGIN_ATTEMPTS", "many")
	assert.Error(t, parseEnv(defaults(), ""))
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SANDBOX_SECRET_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SANDBOX_SECRET_KEY") })

	c := defaults()
	require.NoError(t, parseEnv(c, path))
	assert.Equal(t, "from-dotenv", c.SecretKey)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_addr": ":7000", "log_level": "debug"}`), 0o600))
	t.Setenv("SANDBOX_ADDR", ":6000")

	c, err := load([]string{"-c", path, "-a", ":8000"})
	require.NoError(t, err)
	assert.Equal(t, ":8000", c.EndpointAddr, "flags win")
	assert.Equal(t, "debug", c.LogLevel)
}
