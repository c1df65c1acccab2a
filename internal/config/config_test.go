package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtd-backend/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Operator)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
database_path: /var/lib/gtd/data.db
operator: release-bot
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/gtd/data.db", cfg.DatabasePath)
	assert.Equal(t, "release-bot", cfg.Operator)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
