package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: t.TempDir()},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://recipes.example.com",
			Timeout: 30 * time.Second,
			RPS:     5,
			Burst:   10,
		},
	}
}

func TestValidate_Passes(t *testing.T) {
	cfg := validConfig(t)

	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownEnvironment(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Environment = "qa"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logger.Level = "verbose"

	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresUpstreamURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upstream.BaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_URL")
}

func TestValidate_RejectsNonHTTPUpstreamURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upstream.BaseURL = "ftp://recipes.example.com"

	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsMemoryUpstreamURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upstream.BaseURL = "memory://"

	assert.NoError(t, cfg.Validate())
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/saucier-data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "saucier-data"), expanded)
}

func TestExpandPath_EmptyUsesDefault(t *testing.T) {
	expanded, err := expandPath("", "/var/lib/saucier")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/saucier", expanded)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nSAUCIER_TEST_KEY=hello\nSAUCIER_TEST_QUOTED=\"world\"\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("SAUCIER_TEST_KEY", "")
	t.Setenv("SAUCIER_TEST_QUOTED", "")
	os.Unsetenv("SAUCIER_TEST_KEY")
	os.Unsetenv("SAUCIER_TEST_QUOTED")

	require.NoError(t, loadEnvFile(envPath))

	assert.Equal(t, "hello", os.Getenv("SAUCIER_TEST_KEY"))
	assert.Equal(t, "world", os.Getenv("SAUCIER_TEST_QUOTED"))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("SAUCIER_PRECEDENCE", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "SAUCIER_PRECEDENCE", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "SAUCIER_PRECEDENCE", "default"))
	assert.Equal(t, "default", getConfigValue("", "SAUCIER_MISSING", "default"))
}
