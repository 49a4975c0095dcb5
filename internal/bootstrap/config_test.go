package bootstrap

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/clinic-session/config"
)

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json at warn", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, config.ObservabilityConfig{LogLevel: "warn", LogFormat: config.LogFormatJSON})
		logger.Info("hidden")
		logger.Warn("shown", "k", "v")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
		assert.Equal(t, "shown", rec["msg"])
		assert.Equal(t, "v", rec["k"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, config.ObservabilityConfig{LogLevel: "debug", LogFormat: config.LogFormatText})
		logger.Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTH_API_URL=http://auth.local/api/\nSTORAGE_BACKEND=memory\n"), 0o600))
	t.Chdir(dir)
	// godotenv writes into the process environment; register cleanup for the keys it sets.
	for _, k := range []string{"AUTH_API_URL", "STORAGE_BACKEND"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://auth.local/api", cfg.Auth.APIURL)
	assert.Equal(t, config.StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadConfig_WithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_BACKEND", "bogus")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
