package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLANNER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxImageBytes)
	assert.True(t, cfg.Autosave)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"4000\"\nlog_format: json\nautosave: false\nexport_dir: out\n"), 0o644))

	t.Setenv("PLANNER_CONFIG", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port, "env wins over file")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "out", cfg.ExportDir)
	assert.False(t, cfg.Autosave)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o644))
	t.Setenv("PLANNER_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
