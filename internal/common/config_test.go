package common

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"CONFIG_FILE", "DB_URL", "HTTP_ADDR", "RUN_TIMEOUT", "REMOTE_MAX_CHARS", "GROQ_MODEL", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "file:docpipeline.db", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Minute, cfg.Pipeline.RunTimeout)
	assert.Equal(t, 4000, cfg.Pipeline.RemoteMaxChars)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Providers.Groq.Model)
	assert.Empty(t, cfg.Providers.Groq.APIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
server:
  addr: ":9999"
pipeline:
  remote_max_chars: 1234
providers:
  groq:
    api_key: from-file
`)
	t.Setenv("HTTP_ADDR", ":7777")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 1234, cfg.Pipeline.RemoteMaxChars, "file wins over default")
	assert.Equal(t, "from-file", cfg.Providers.Groq.APIKey)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "{not yaml::")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyDSN(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Database.DSN = ""
	assert.Error(t, cfg.Validate())
}
