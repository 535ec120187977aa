package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration is one schema change.
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
}

var migrations = []Migration{
	{Version: 1, Description: "Create schema_version table", Up: migration001Up},
	{Version: 2, Description: "Create runs, frames and detections tables", Up: migration002Up},
}

// RunMigrations applies all pending migrations.
func (db *DB) RunMigrations() error {
	current, err := db.Version()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, m.Version, m.Description, time.Now())
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Version returns the current schema version, 0 for a fresh database.
func (db *DB) Version() (int, error) {
	var exists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			source_dir TEXT NOT NULL,
			template TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			detections INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE frames (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, frame)
		);

		CREATE TABLE detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			frame TEXT NOT NULL,
			label INTEGER NOT NULL,
			centroid_row REAL NOT NULL,
			centroid_col REAL NOT NULL,
			area INTEGER NOT NULL,
			score REAL NOT NULL,
			FOREIGN KEY (run_id, frame) REFERENCES frames(run_id, frame) ON DELETE CASCADE
		);

		CREATE INDEX idx_detections_run_frame ON detections(run_id, frame);
	`)
	return err
}
