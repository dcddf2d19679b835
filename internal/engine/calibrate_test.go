package engine

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/danieljhkim/arucal/internal/persist"
	"github.com/danieljhkim/arucal/internal/vision"
)

var vga = vision.ImageSize{Width: 640, Height: 480}

func TestCalibrate_NoSnapshots(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fs *memFS)
	}{
		{"missing directory", func(fs *memFS) {}},
		{"empty directory", func(fs *memFS) { fs.mkdirs(testPaths().Snapshots) }},
		{"only other extensions", func(fs *memFS) {
			fs.addFile(snapshotPath("a.png"), "a")
			fs.addFile(snapshotPath("notes.txt"), "b")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, fs, backend := newTestEngine(nil)
			tt.setup(fs)

			_, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()})
			if !errors.Is(err, ErrNoSnapshots) {
				t.Fatalf("err = %v, want ErrNoSnapshots", err)
			}
			if len(fs.writes) != 0 {
				t.Errorf("no file should be written, got %v", fs.writes)
			}
			if len(backend.solved) != 0 {
				t.Error("solver must not run")
			}
		})
	}
}

func TestCalibrate_SingleSnapshotAccepted(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("board.jpg"), "board")
	backend.detections["board"] = detection(3, 5, vga)

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Samples != 1 {
		t.Errorf("Samples = %d, want 1", result.Samples)
	}
	if len(backend.solved) != 1 || len(backend.solved[0]) != 1 {
		t.Fatalf("solver calls = %v", backend.solved)
	}
	if got := backend.solved[0][0]; len(got.IDs) != 5 || len(got.Corners) != 5 {
		t.Errorf("sample = %+v", got)
	}
	if backend.solvedSize[0] != vga {
		t.Errorf("image size = %+v, want %+v", backend.solvedSize[0], vga)
	}

	if result.OutputPath != testPaths().CalibrationFile {
		t.Errorf("OutputPath = %s", result.OutputPath)
	}
	if _, ok := fs.files[testPaths().CalibrationFile]; !ok {
		t.Fatal("calibration file not written")
	}
	if !result.CalibratedAt.Equal(testTime) {
		t.Errorf("CalibratedAt = %v", result.CalibratedAt)
	}
	if result.Calibration.ImageSize != vga {
		t.Errorf("Calibration.ImageSize = %+v", result.Calibration.ImageSize)
	}
}

func TestCalibrate_ClassifiesSnapshots(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	files := map[string]string{
		"01_blurry.jpg":    "blurry",
		"02_good.JPG":      "good",
		"03_empty.jpg":     "empty",
		"04_corrupt.jpg":   "corrupt",
		"05_four.jpg":      "four",
		"06_nointerp.jpg":  "nointerp",
		"07_good.jpg":      "good2",
		"08_bigger.jpg":    "bigger",
		"09_broken.jpg":    "broken",
		".hidden.jpg":      "good",
		"README.md":        "readme",
		"nested/inner.jpg": "good",
	}
	for name, content := range files {
		fs.addFile(snapshotPath(name), content)
	}

	backend.detections["blurry"] = detection(1, 0, vga)
	backend.detections["good"] = detection(6, 12, vga)
	backend.detections["empty"] = detection(0, 0, vga)
	backend.detections["four"] = detection(4, 4, vga)
	nointerp := detection(5, 8, vga)
	nointerp.Interpolated = false
	backend.detections["nointerp"] = nointerp
	backend.detections["good2"] = detection(8, 20, vga)
	backend.detections["bigger"] = detection(8, 20, vision.ImageSize{Width: 1280, Height: 720})
	backend.detectErr["broken"] = errors.New("detector crashed")

	var seen []string
	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{
		Board:      testBoard(),
		OnSnapshot: func(s SnapshotResult) { seen = append(seen, s.Name) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		name   string
		status SnapshotStatus
	}{
		{"01_blurry.jpg", SnapshotRejected},
		{"02_good.JPG", SnapshotAccepted},
		{"03_empty.jpg", SnapshotNoMarkers},
		{"04_corrupt.jpg", SnapshotUnreadable},
		{"05_four.jpg", SnapshotRejected},
		{"06_nointerp.jpg", SnapshotRejected},
		{"07_good.jpg", SnapshotAccepted},
		{"08_bigger.jpg", SnapshotRejected},
		{"09_broken.jpg", SnapshotUnreadable},
	}
	if len(result.Snapshots) != len(want) {
		t.Fatalf("processed %d snapshots, want %d: %+v", len(result.Snapshots), len(want), result.Snapshots)
	}
	for i, w := range want {
		got := result.Snapshots[i]
		if got.Name != w.name || got.Status != w.status {
			t.Errorf("snapshot %d = %s (%s), want %s (%s)", i, got.Name, got.Status, w.name, w.status)
		}
		if got.Index != i+1 || got.Total != len(want) {
			t.Errorf("snapshot %d index %d/%d", i, got.Index, got.Total)
		}
		if got.Status != SnapshotAccepted && got.Status != SnapshotNoMarkers && got.Err == nil {
			t.Errorf("snapshot %s should explain its status", got.Name)
		}
	}

	if !errors.Is(result.Snapshots[3].Err, vision.ErrDecode) {
		t.Errorf("corrupt snapshot err = %v", result.Snapshots[3].Err)
	}
	if len(seen) != len(want) {
		t.Errorf("OnSnapshot called %d times", len(seen))
	}
	if !reflect.DeepEqual(result.Accepted(), []string{"02_good.JPG", "07_good.jpg"}) {
		t.Errorf("Accepted() = %v", result.Accepted())
	}
	if len(backend.solved) != 1 || len(backend.solved[0]) != 2 {
		t.Errorf("solver should receive 2 samples, got %v", backend.solved)
	}
}

func TestCalibrate_NoSamples(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	fs.addFile(snapshotPath("b.jpg"), "b")
	backend.detections["a"] = detection(2, 3, vga)

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()})
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}
	if len(result.Snapshots) != 2 {
		t.Errorf("both snapshots should be reported, got %d", len(result.Snapshots))
	}
	if len(backend.solved) != 0 {
		t.Error("solver must not run without samples")
	}
	if len(fs.writes) != 0 {
		t.Errorf("no file should be written, got %v", fs.writes)
	}
}

func TestCalibrate_SolverFailure(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	fs.addFile(testPaths().CalibrationFile, "previous")
	backend.detections["a"] = detection(6, 10, vga)
	backend.solveErr = vision.ErrSolve

	_, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()})
	if !errors.Is(err, ErrCalibrationFailed) {
		t.Fatalf("err = %v, want ErrCalibrationFailed", err)
	}
	if string(fs.files[testPaths().CalibrationFile]) != "previous" {
		t.Error("previous result must be left alone on failure")
	}
}

func TestCalibrate_OverwritesPreviousResult(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	fs.addFile(testPaths().CalibrationFile, "previous")
	backend.detections["a"] = detection(6, 10, vga)

	if _, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, path, err := eng.LoadCalibration("")
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}
	if path != testPaths().CalibrationFile {
		t.Errorf("path = %s", path)
	}
	if rec.Calibration.CameraMatrix[0][0] != 800 || len(rec.Calibration.RVecs) != 1 {
		t.Errorf("unexpected calibration %+v", rec.Calibration)
	}
	if !rec.CalibratedAt.Equal(testTime) {
		t.Errorf("CalibratedAt = %v", rec.CalibratedAt)
	}
}

func TestCalibrate_CustomLocations(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile("/data/shots/a.png", "a")
	fs.addFile("/data/shots/b.jpg", "b")
	backend.detections["a"] = detection(6, 10, vga)

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{
		Board:       testBoard(),
		SnapshotDir: "/data/shots",
		Extensions:  []string{".png"},
		Output:      "out/cam.json",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Snapshots) != 1 || result.Snapshots[0].Name != "a.png" {
		t.Errorf("Snapshots = %+v", result.Snapshots)
	}
	if result.OutputPath != "/work/out/cam.json" {
		t.Errorf("OutputPath = %s", result.OutputPath)
	}
	if _, ok := fs.files["/work/out/cam.json"]; !ok {
		t.Error("result not written to custom output")
	}
}

func TestCalibrate_UndistortPass(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	fs.addFile(snapshotPath("b.jpg"), "b")
	fs.addFile(snapshotPath("c.jpg"), "c")
	backend.detections["a"] = detection(6, 10, vga)
	backend.detections["b"] = detection(0, 0, vga)
	backend.undistortErr["c"] = vision.ErrDecode

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{
		Board:        testBoard(),
		UndistortDir: "undistorted",
		Preview:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Undistorted) != 3 {
		t.Fatalf("Undistorted = %+v", result.Undistorted)
	}
	if result.Undistorted[0].Path != "/work/undistorted/a.jpg" || result.Undistorted[0].Err != nil {
		t.Errorf("a.jpg outcome = %+v", result.Undistorted[0])
	}
	if result.Undistorted[2].Err == nil {
		t.Error("c.jpg should report its undistortion failure")
	}
	if got := string(fs.files["/work/undistorted/b.jpg"]); got != "undistorted:b.jpg" {
		t.Errorf("b.jpg content = %q", got)
	}
	if !reflect.DeepEqual(backend.shown, []string{"undistorted:a.jpg", "undistorted:b.jpg"}) {
		t.Errorf("shown = %v", backend.shown)
	}
}

func TestCalibrate_PreviewUnavailable(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	backend.detections["a"] = detection(6, 10, vga)
	backend.viewerErr = vision.ErrNoDisplay

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard(), Preview: true})
	if !errors.Is(err, vision.ErrNoDisplay) {
		t.Fatalf("err = %v, want ErrNoDisplay", err)
	}
	if result.OutputPath == "" {
		t.Error("result should still be written before the preview")
	}
}

func TestCalibrate_InvalidBoard(t *testing.T) {
	eng, _, _ := newTestEngine(nil)
	board := testBoard()
	board.MarkerLength = 0.5

	_, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: board})
	if !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("err = %v, want ErrInvalidBoard", err)
	}
}

func TestLoadCalibration_Missing(t *testing.T) {
	eng, _, _ := newTestEngine(nil)

	_, _, err := eng.LoadCalibration("")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestCalibrate_UndistortDirIsSnapshotDir(t *testing.T) {
	for _, dir := range []string{"calibration_snapshots", "/work/calibration_snapshots/", "./calibration_snapshots"} {
		t.Run(dir, func(t *testing.T) {
			eng, fs, backend := newTestEngine(nil)
			fs.addFile(snapshotPath("a.jpg"), "a")
			backend.detections["a"] = detection(6, 10, vga)

			_, err := eng.Calibrate(context.Background(), &CalibrateRequest{
				Board:        testBoard(),
				UndistortDir: dir,
			})
			if !errors.Is(err, ErrOutputDir) {
				t.Fatalf("err = %v, want ErrOutputDir", err)
			}
			if got := string(fs.files[snapshotPath("a.jpg")]); got != "a" {
				t.Errorf("snapshot content = %q, want it untouched", got)
			}
			if len(fs.writes) != 0 {
				t.Errorf("writes = %v, want none", fs.writes)
			}
		})
	}
}

// failingStore rejects every save.
type failingStore struct{ path string }

func (s *failingStore) Path() string { return s.path }

func (s *failingStore) Save(cal *vision.Calibration, at time.Time) error {
	return errors.New("disk full")
}

func (s *failingStore) Load() (*persist.Record, error) { return nil, os.ErrNotExist }

func TestCalibrate_SaveFailure(t *testing.T) {
	eng, fs, backend := newTestEngine(nil)
	fs.addFile(snapshotPath("a.jpg"), "a")
	backend.detections["a"] = detection(6, 10, vga)

	var opened []string
	eng.openStore = func(path string) persist.CalibrationStore {
		opened = append(opened, path)
		return &failingStore{path: path}
	}

	result, err := eng.Calibrate(context.Background(), &CalibrateRequest{Board: testBoard()})
	if err == nil {
		t.Fatal("expected save error")
	}
	if result.OutputPath != "" {
		t.Errorf("OutputPath = %q, want empty after a failed save", result.OutputPath)
	}
	if !reflect.DeepEqual(opened, []string{"/work/calibration_data.json"}) {
		t.Errorf("opened stores = %v", opened)
	}
}
