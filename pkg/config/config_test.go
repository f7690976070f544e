package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"NFGRAPH_DB_PATH", "NFGRAPH_QUERY_TIMEOUT",
		"NFGRAPH_LOG_LEVEL", "NFGRAPH_LOG_FORMAT", "NFGRAPH_CACHE_SIZE",
	} {
		os.Unsetenv(key)
	}

	cfg := LoadFromEnv()
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 256, cfg.Cache.Size)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("NFGRAPH_DB_PATH", "/tmp/nfgraph.db")
	t.Setenv("NFGRAPH_QUERY_TIMEOUT", "5s")
	t.Setenv("NFGRAPH_LOG_LEVEL", "DEBUG")
	t.Setenv("NFGRAPH_CACHE_SIZE", "64")

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/nfgraph.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.Cache.Size)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Database.QueryTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Cache.Size = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFile_MissingPathFallsBackToEnv(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.Path)

	cfg, err = LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.Path)
}

func TestLoadFromFile_OverridesEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfgraph.yaml")
	content := `
db_path: /data/graph.db
query_timeout: 10s
log_level: WARN
cache_size: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/graph.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Cache.Size)
}

func TestString_IsHumanReadable(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Contains(t, cfg.String(), cfg.Database.Path)
}
