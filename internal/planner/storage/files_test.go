package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exports")
	dir := NewExportDir(root)
	at := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	p := project.New()

	path, err := dir.WriteProject(p.Export(), at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "project_20240102_030405.json"), path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": "1.0"`)

	path, err = dir.WriteCSV(export.Report{}, at)
	require.NoError(t, err)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), export.BOM+"Cable List"))

	path, err = dir.WriteScreenshot([]byte{0x89, 'P', 'N', 'G'}, at)
	require.NoError(t, err)
	assert.Equal(t, "cable_layout_20240102_030405.png", filepath.Base(path))
}
