package store

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs", "tracker.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)

	version, err := db.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Expected version %d, got %d", len(migrations), version)
	}
	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	run, err := db.CreateRun("", "standard", "frames", "")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()
	if _, err := db.GetRun(run.ID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	run, err := db.CreateRun("", "leader", "/data/frames", "templates/leader.png")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if len(run.ID) != 36 {
		t.Errorf("expected a UUID run id, got %q", run.ID)
	}

	if err := db.SaveFrame(run.ID, "output0001.png", []Detection{
		{Label: 1, Row: 20, Col: 16, Area: 9, Score: 0.98},
		{Label: 2, Row: 20.5, Col: 46, Area: 4, Score: 0.71},
	}); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	if err := db.SaveFrame(run.ID, "output0002.png", nil); err != nil {
		t.Fatalf("SaveFrame (empty) failed: %v", err)
	}
	if err := db.FinishRun(run.ID); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Profile != "leader" || got.SourceDir != "/data/frames" || got.Template != "templates/leader.png" {
		t.Errorf("run metadata: %+v", got)
	}
	if got.Frames != 2 || got.Detections != 2 {
		t.Errorf("run totals: frames=%d detections=%d, want 2 and 2", got.Frames, got.Detections)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].FinishedAt == nil {
		t.Errorf("Runs: %+v", runs)
	}

	counts, err := db.FrameCounts(run.ID)
	if err != nil {
		t.Fatalf("FrameCounts failed: %v", err)
	}
	if counts["output0001.png"] != 2 {
		t.Errorf("frame 1 count: got %d", counts["output0001.png"])
	}
	if n, ok := counts["output0002.png"]; !ok || n != 0 {
		t.Errorf("empty frame should be recorded with count 0, got %d (present %v)", n, ok)
	}

	dets, err := db.Detections(run.ID)
	if err != nil {
		t.Fatalf("Detections failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2", len(dets))
	}
	if dets[1].Label != 2 || dets[1].Row != 20.5 || dets[1].Score != 0.71 || dets[1].Frame != "output0001.png" {
		t.Errorf("second detection: %+v", dets[1])
	}
}

func TestSaveFrame_Duplicate(t *testing.T) {
	db := openTestDB(t)
	run, err := db.CreateRun("run-1", "standard", "frames", "")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.SaveFrame(run.ID, "a.png", []Detection{{Label: 1}}); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	if err := db.SaveFrame(run.ID, "a.png", []Detection{{Label: 1}}); err == nil {
		t.Fatal("saving a frame twice should fail")
	}

	// The failed transaction must not leave partial rows behind.
	dets, err := db.Detections(run.ID)
	if err != nil {
		t.Fatalf("Detections failed: %v", err)
	}
	if len(dets) != 1 {
		t.Errorf("got %d detections after rollback, want 1", len(dets))
	}
}

func TestSaveFrame_UnknownRun(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveFrame("missing", "a.png", nil); err == nil {
		t.Error("foreign key should reject frames of unknown runs")
	}
}

func TestGetRun_Missing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("missing"); err == nil {
		t.Error("GetRun should fail for an unknown id")
	}
	if err := db.FinishRun("missing"); err == nil {
		t.Error("FinishRun should fail for an unknown id")
	}
}

func TestRecordRun(t *testing.T) {
	db := openTestDB(t)

	run := &Run{Profile: "standard", SourceDir: "frames", Template: "templates/standard.png"}
	frames := []Frame{
		{Name: "output0001.png", Detections: []Detection{{Label: 1, Row: 20, Col: 16, Area: 25, Score: 0.9}}},
		{Name: "output0002.png"},
	}
	if err := db.RecordRun(run, frames); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if run.ID == "" || run.FinishedAt == nil {
		t.Fatalf("run not filled in: %+v", run)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Frames != 2 || got.Detections != 1 || got.FinishedAt == nil {
		t.Errorf("stored run: %+v", got)
	}
	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].FinishedAt == nil {
		t.Errorf("Runs: %+v", runs)
	}

	counts, err := db.FrameCounts(run.ID)
	if err != nil {
		t.Fatalf("FrameCounts failed: %v", err)
	}
	if counts["output0001.png"] != 1 || counts["output0002.png"] != 0 || len(counts) != 2 {
		t.Errorf("frame counts: %v", counts)
	}
}

func TestRecordRun_RollsBack(t *testing.T) {
	db := openTestDB(t)

	run := &Run{ID: "run-1", Profile: "standard", SourceDir: "frames"}
	frames := []Frame{
		{Name: "a.png", Detections: []Detection{{Label: 1}}},
		{Name: "a.png"},
	}
	if err := db.RecordRun(run, frames); err == nil {
		t.Fatal("duplicate frame names should fail")
	}
	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs after a failed RecordRun, want 0", len(runs))
	}
	if dets, _ := db.Detections("run-1"); len(dets) != 0 {
		t.Errorf("got %d detections after rollback, want 0", len(dets))
	}
}
