package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cable-planner/internal/common/logger"
	"cable-planner/internal/planner/models"

	"go.uber.org/zap"
)

// ============================================================
// Local key-value slot
// ============================================================

// ProjectKey is the single key the project is saved under.
const ProjectKey = "cableProjectData"

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

// Slot persists one serialized project in a SQLite key-value table.
type Slot struct {
	db  *sql.DB
	key string
	log *zap.Logger
}

func NewSlot(db *sql.DB, log *zap.Logger) *Slot {
	if log == nil {
		log = logger.L()
	}
	return &Slot{db: db, key: ProjectKey, log: log.With(zap.String("component", "storage"))}
}

// Init creates the table when missing.
func (s *Slot) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save overwrites the slot with data.
func (s *Slot) Save(ctx context.Context, data models.ProjectData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO kv (key, value, updated_at)
        VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `, s.key, string(raw))
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	s.log.Debug("project saved", zap.Int("bytes", len(raw)))
	return nil
}

// Load returns the saved project. A missing key and unparsable content
// both report ok=false; only database failures are errors.
func (s *Slot) Load(ctx context.Context) (models.ProjectData, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectData{}, false, nil
	}
	if err != nil {
		return models.ProjectData{}, false, fmt.Errorf("load project: %w", err)
	}

	var data models.ProjectData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.log.Warn("saved project is unreadable, ignoring", zap.Error(err))
		return models.ProjectData{}, false, nil
	}
	return data, true, nil
}

// Clear removes the saved project.
func (s *Slot) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("clear project: %w", err)
	}
	return nil
}

// OpenSQLite opens (and creates) the sqlite database at dbPath.
// The ncruces driver must be registered by the caller.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
