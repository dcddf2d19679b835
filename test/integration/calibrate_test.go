package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danieljhkim/arucal/internal/engine"
)

func TestCalibrate_NoSnapshotsWritesNothing(t *testing.T) {
	eng, paths := setupTestEngine(t, "")

	_, err := eng.Calibrate(context.Background(), &engine.CalibrateRequest{Board: testBoard()})
	if !errors.Is(err, engine.ErrNoSnapshots) {
		t.Fatalf("Calibrate() error = %v, want ErrNoSnapshots", err)
	}
	if _, err := os.Stat(paths.CalibrationFile); !os.IsNotExist(err) {
		t.Errorf("expected no calibration file, stat error = %v", err)
	}
}

func TestCalibrate_SingleSnapshot(t *testing.T) {
	eng, paths := setupTestEngine(t, "")
	writeFile(t, filepath.Join(paths.Snapshots, "shot.jpg"), "board 640x480 6")

	result, err := eng.Calibrate(context.Background(), &engine.CalibrateRequest{Board: testBoard()})
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if result.Samples != 1 {
		t.Errorf("samples = %d, want 1", result.Samples)
	}
	if result.OutputPath != paths.CalibrationFile {
		t.Errorf("output = %s, want %s", result.OutputPath, paths.CalibrationFile)
	}
}

func TestCalibrate_RoundTripAndClassification(t *testing.T) {
	eng, paths := setupTestEngine(t, "")
	writeFile(t, filepath.Join(paths.Snapshots, "01.jpg"), "board 640x480 8")
	writeFile(t, filepath.Join(paths.Snapshots, "02.jpg"), "garbage")
	writeFile(t, filepath.Join(paths.Snapshots, "03.jpg"), "empty wall")
	writeFile(t, filepath.Join(paths.Snapshots, "04.jpg"), "board 640x480 4")
	writeFile(t, filepath.Join(paths.Snapshots, "05.JPG"), "board 640x480 5")
	writeFile(t, filepath.Join(paths.Snapshots, "06.png"), "board 640x480 9")

	result, err := eng.Calibrate(context.Background(), &engine.CalibrateRequest{
		Board:        testBoard(),
		UndistortDir: "undistorted",
	})
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	statuses := make([]engine.SnapshotStatus, 0, len(result.Snapshots))
	for _, s := range result.Snapshots {
		statuses = append(statuses, s.Status)
	}
	want := []engine.SnapshotStatus{
		engine.SnapshotAccepted,
		engine.SnapshotUnreadable,
		engine.SnapshotNoMarkers,
		engine.SnapshotRejected,
		engine.SnapshotAccepted,
	}
	if !reflect.DeepEqual(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	if got := result.Accepted(); !reflect.DeepEqual(got, []string{"01.jpg", "05.JPG"}) {
		t.Errorf("accepted = %v", got)
	}

	rec, path, err := eng.LoadCalibration("")
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if path != paths.CalibrationFile {
		t.Errorf("path = %s, want %s", path, paths.CalibrationFile)
	}
	if !rec.CalibratedAt.Equal(calibratedAt) {
		t.Errorf("calibrated at = %v, want %v", rec.CalibratedAt, calibratedAt)
	}
	if !reflect.DeepEqual(rec.Calibration.CameraMatrix, result.Calibration.CameraMatrix) {
		t.Errorf("camera matrix = %v, want %v", rec.Calibration.CameraMatrix, result.Calibration.CameraMatrix)
	}
	if len(rec.Calibration.RVecs) != 2 || len(rec.Calibration.TVecs) != 2 {
		t.Errorf("poses = %d/%d, want 2/2", len(rec.Calibration.RVecs), len(rec.Calibration.TVecs))
	}

	undistorted := listDir(t, filepath.Join(paths.Root, "undistorted"))
	if len(undistorted) == 0 {
		t.Error("expected undistorted copies")
	}
}

func TestCalibrate_ReplacesPreviousResult(t *testing.T) {
	eng, paths := setupTestEngine(t, "")
	writeFile(t, paths.CalibrationFile, `{"stale": true}`)
	writeFile(t, filepath.Join(paths.Snapshots, "a.jpg"), "board 800x600 10")

	if _, err := eng.Calibrate(context.Background(), &engine.CalibrateRequest{Board: testBoard()}); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	rec, _, err := eng.LoadCalibration("")
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if rec.Calibration.ImageSize.Width != 800 || rec.Calibration.ImageSize.Height != 600 {
		t.Errorf("image size = %+v, want 800x600", rec.Calibration.ImageSize)
	}
}
