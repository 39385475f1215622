package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/models"
)

// ============================================================
// Export directory
// ============================================================

// ExportDir writes timestamped project, CSV and screenshot files.
type ExportDir struct {
	root string
}

func NewExportDir(root string) *ExportDir {
	return &ExportDir{root: root}
}

func (s *ExportDir) Root() string {
	return s.root
}

func (s *ExportDir) ensure() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("mkdir export dir: %w", err)
	}
	return nil
}

func (s *ExportDir) write(name string, data []byte) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// WriteProject saves data as indented JSON under project_<ts>.json.
func (s *ExportDir) WriteProject(data models.ProjectData, at time.Time) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode project: %w", err)
	}
	return s.write(export.ProjectFilename(at), raw)
}

// WriteCSV saves a cable report under project_<ts>.csv.
func (s *ExportDir) WriteCSV(r export.Report, at time.Time) (string, error) {
	csv, err := export.CSV(r)
	if err != nil {
		return "", err
	}
	return s.write(export.CSVFilename(at), []byte(csv))
}

// WriteScreenshot saves PNG bytes under cable_layout_<ts>.png.
func (s *ExportDir) WriteScreenshot(png []byte, at time.Time) (string, error) {
	return s.write(export.ScreenshotFilename(at), png)
}
