package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/rag-chat-client/pkg/session"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"API_URL", "HTTP_TIMEOUT", "SESSION_BACKEND", "SESSION_PATH", "LOG_LEVEL", "LOG_FILE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, session.BackendMemory, cfg.Session.Backend)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "chat.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
api_url = "http://file:9000"
http_timeout = "30s"
log_level = "info"

[session]
backend = "file"
path = "/tmp/from-file"
`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SESSION_BACKEND=pebble\n"), 0o600))
	t.Setenv("API_URL", "https://env.example.com")

	cfg, err := Load(file, envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIURL, "environment beats file")
	assert.Equal(t, "pebble", cfg.Session.Backend, ".env beats file")
	assert.Equal(t, "/tmp/from-file", cfg.Session.Path)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, "https://env.example.com", cfg.LLM().BaseURL)
	assert.Equal(t, 30*time.Second, cfg.LLM().Timeout)
	assert.Equal(t, "https://env.example.com", cfg.Retrieval().BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Retrieval().Timeout)
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "chat.toml")
	require.NoError(t, os.WriteFile(file, []byte("api_url = "), 0o600))

	_, err := Load(file, "")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"relative url", func(c *Config) { c.APIURL = "/api" }, false},
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://host" }, false},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, false},
		{"unknown backend", func(c *Config) { c.Session.Backend = "redis" }, false},
		{"file backend", func(c *Config) { c.Session.Backend = "file" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
