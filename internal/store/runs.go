package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one tracking run over a directory of frames.
type Run struct {
	ID         string
	Profile    string
	SourceDir  string
	Template   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Frames     int
	Detections int
}

// Detection is one stored centroid.
type Detection struct {
	Frame string
	Label int
	Row   float64
	Col   float64
	Area  int
	Score float64
}

// Frame is the recorded result of one frame of a run.
type Frame struct {
	Name       string
	Detections []Detection
}

// CreateRun records the start of a run and returns it. An empty id is
// replaced by a new UUID.
func (db *DB) CreateRun(id, profile, sourceDir, template string) (*Run, error) {
	run := newRun(id, profile, sourceDir, template)
	if err := insertRun(db.conn, run); err != nil {
		return nil, err
	}
	return run, nil
}

// SaveFrame records the detections of one frame. A frame with no
// detections is still recorded.
func (db *DB) SaveFrame(runID, frame string, detections []Detection) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		return insertFrame(tx, runID, Frame{Name: frame, Detections: detections})
	})
}

// RecordRun stores a completed run with all of its frames in one
// transaction, so a failure leaves no trace of the run. run.ID is filled in
// when empty and run.FinishedAt is stamped.
func (db *DB) RecordRun(run *Run, frames []Frame) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return db.ExecTx(func(tx *sql.Tx) error {
		if err := insertRun(tx, run); err != nil {
			return err
		}
		for _, f := range frames {
			if err := insertFrame(tx, run.ID, f); err != nil {
				return err
			}
		}
		finished := time.Now()
		if err := finishRun(tx, run.ID, finished); err != nil {
			return err
		}
		run.FinishedAt = &finished
		run.Frames = len(frames)
		run.Detections = 0
		for _, f := range frames {
			run.Detections += len(f.Detections)
		}
		return nil
	})
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func newRun(id, profile, sourceDir, template string) *Run {
	if id == "" {
		id = uuid.NewString()
	}
	return &Run{
		ID:        id,
		Profile:   profile,
		SourceDir: sourceDir,
		Template:  template,
		StartedAt: time.Now(),
	}
}

func insertRun(e execer, run *Run) error {
	_, err := e.Exec(`
		INSERT INTO runs (id, profile, source_dir, template, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Profile, run.SourceDir, run.Template, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func insertFrame(tx *sql.Tx, runID string, f Frame) error {
	if _, err := tx.Exec(`
		INSERT INTO frames (run_id, frame, count) VALUES (?, ?, ?)
	`, runID, f.Name, len(f.Detections)); err != nil {
		return fmt.Errorf("failed to save frame %s: %w", f.Name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO detections (run_id, frame, label, centroid_row, centroid_col, area, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range f.Detections {
		if _, err := stmt.Exec(runID, f.Name, d.Label, d.Row, d.Col, d.Area, d.Score); err != nil {
			return fmt.Errorf("failed to save detection: %w", err)
		}
	}

	_, err = tx.Exec(`
		UPDATE runs SET frames = frames + 1, detections = detections + ? WHERE id = ?
	`, len(f.Detections), runID)
	return err
}

func finishRun(e execer, runID string, at time.Time) error {
	res, err := e.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, at, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// FinishRun stamps the run's completion time.
func (db *DB) FinishRun(runID string) error {
	return finishRun(db.conn, runID, time.Now())
}

// GetRun loads a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	run := &Run{}
	var finished sql.NullTime
	err := db.conn.QueryRow(`
		SELECT id, profile, source_dir, template, started_at, finished_at, frames, detections
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Profile, &run.SourceDir, &run.Template,
		&run.StartedAt, &finished, &run.Frames, &run.Detections)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return run, nil
}

// Runs returns every recorded run, oldest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, profile, source_dir, template, started_at, finished_at, frames, detections
		FROM runs ORDER BY started_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Profile, &run.SourceDir, &run.Template,
			&run.StartedAt, &finished, &run.Frames, &run.Detections); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// FrameCounts returns the number of detections per recorded frame of a run.
func (db *DB) FrameCounts(runID string) (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT frame, count FROM frames WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var frame string
		var n int
		if err := rows.Scan(&frame, &n); err != nil {
			return nil, err
		}
		counts[frame] = n
	}
	return counts, rows.Err()
}

// Detections returns the stored detections of a run ordered by frame and
// label.
func (db *DB) Detections(runID string) ([]Detection, error) {
	rows, err := db.conn.Query(`
		SELECT frame, label, centroid_row, centroid_col, area, score
		FROM detections
		WHERE run_id = ?
		ORDER BY frame, label
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.Frame, &d.Label, &d.Row, &d.Col, &d.Area, &d.Score); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
