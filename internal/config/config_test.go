package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsched/internal/config"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsched", "config.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, 60, cfg.HorizonDays)
	assert.Equal(t, "bhn", cfg.PrimaryCategory)

	// The default config file was created with restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Loading again reads the file instead of re-creating it.
	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, again.Listen)
}

func TestLoad_NormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: '0.0.0.0:9000'\ncategories: [bhn]\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	// Missing fields fall back to defaults.
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 7, cfg.WeekWindowDays)
	// Primary category defaults to the first configured category.
	assert.Equal(t, "bhn", cfg.PrimaryCategory)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:7777"
	cfg.OutputPath = "_data/next_net.yml"
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "editor", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", got.Listen)
	assert.Equal(t, "_data/next_net.yml", got.OutputPath)
	require.NotNil(t, got.BasicAuth)
	assert.Equal(t, "editor", got.BasicAuth.Username)
}
