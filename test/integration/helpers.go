package integration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieljhkim/arucal/internal/clock"
	"github.com/danieljhkim/arucal/internal/config"
	"github.com/danieljhkim/arucal/internal/engine"
	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/prompt"
	"github.com/danieljhkim/arucal/internal/vision"
)

var calibratedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testBackend stands in for the vision library. Marker images encode their
// parameters as text; snapshots are "detected" by parsing their content:
//
//	board <width>x<height> <corners>
//
// Any other content has no markers, and "garbage" does not decode.
type testBackend struct{}

func (testBackend) RenderMarker(m vision.Marker) ([]byte, error) {
	return []byte(fmt.Sprintf("%s/%d/%dpx/inv=%v/border=%d", m.Dictionary, m.ID, m.SizePx, m.Inverted, m.Border)), nil
}

func (testBackend) NewDetector(b vision.Board) (vision.Detector, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return testDetector{}, nil
}

func (testBackend) NewSolver(b vision.Board) vision.Solver {
	return testSolver{}
}

func (testBackend) Undistort(data []byte, cal *vision.Calibration, format string) ([]byte, error) {
	return append([]byte("undistorted "), data...), nil
}

func (testBackend) NewViewer(title string) (vision.Viewer, error) {
	return nil, vision.ErrNoDisplay
}

type testDetector struct{}

func (testDetector) Detect(data []byte) (*vision.Detection, error) {
	text := string(data)
	if text == "garbage" {
		return nil, vision.ErrDecode
	}

	var w, h, corners int
	if _, err := fmt.Sscanf(text, "board %dx%d %d", &w, &h, &corners); err != nil {
		return &vision.Detection{Size: vision.ImageSize{Width: 640, Height: 480}}, nil
	}

	d := &vision.Detection{
		Size:         vision.ImageSize{Width: w, Height: h},
		MarkerIDs:    []int{0, 1},
		Interpolated: corners > 0,
	}
	for i := 0; i < corners; i++ {
		d.CornerIDs = append(d.CornerIDs, i)
		d.Corners = append(d.Corners, vision.Point2f{X: float32(i), Y: float32(i)})
	}
	return d, nil
}

func (testDetector) Close() error { return nil }

type testSolver struct{}

func (testSolver) Calibrate(samples []vision.Sample, size vision.ImageSize) (*vision.Calibration, error) {
	cal := &vision.Calibration{
		CameraMatrix:      [3][3]float64{{900, 0, float64(size.Width) / 2}, {0, 900, float64(size.Height) / 2}, {0, 0, 1}},
		DistCoeffs:        []float64{-0.2, 0.05, 0.001, 0.002, 0},
		ReprojectionError: 0.31,
	}
	for i := range samples {
		cal.RVecs = append(cal.RVecs, [3]float64{0.01 * float64(i), 0, 0})
		cal.TVecs = append(cal.TVecs, [3]float64{0, 0, 0.4})
	}
	return cal, nil
}

// setupTestEngine returns an engine over a real temporary directory whose
// prompts are answered from answers.
func setupTestEngine(t *testing.T, answers string) (*engine.Engine, *config.Paths) {
	t.Helper()

	paths := config.PathsAt(t.TempDir())
	console := prompt.NewConsole(strings.NewReader(answers), io.Discard)
	eng := engine.New(fsops.NewRealFS(), testBackend{}, console, clock.NewFakeClock(calibratedAt), *paths)
	return eng, paths
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func testBoard() vision.Board {
	cfg := config.Default()
	board, err := cfg.CharucoBoard()
	if err != nil {
		panic(err)
	}
	return board
}
