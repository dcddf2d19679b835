package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/danieljhkim/arucal/internal/clock"
	"github.com/danieljhkim/arucal/internal/config"
	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/planner"
	"github.com/danieljhkim/arucal/internal/vision"
)

// memFS is an in-memory implementation of fsops.FS.
type memFS struct {
	files    map[string][]byte
	dirs     map[string]bool
	writeErr map[string]error
	writes   []string
}

func newMemFS() *memFS {
	return &memFS{
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
		writeErr: make(map[string]error),
	}
}

func (m *memFS) addFile(path string, data string) {
	m.files[path] = []byte(data)
	m.mkdirs(filepath.Dir(path))
}

func (m *memFS) mkdirs(path string) {
	for p := path; ; p = filepath.Dir(p) {
		m.dirs[p] = true
		if filepath.Dir(p) == p {
			return
		}
	}
}

func (m *memFS) Stat(path string) (os.FileInfo, error) {
	if m.dirs[path] {
		return &fakeInfo{name: filepath.Base(path), dir: true}, nil
	}
	if data, ok := m.files[path]; ok {
		return &fakeInfo{name: filepath.Base(path), size: int64(len(data))}, nil
	}
	return nil, os.ErrNotExist
}

func (m *memFS) Exists(path string) (bool, error) {
	_, isFile := m.files[path]
	return isFile || m.dirs[path], nil
}

func (m *memFS) MkdirAll(path string, perm os.FileMode) error {
	if _, isFile := m.files[path]; isFile {
		return fmt.Errorf("mkdir %s: not a directory", path)
	}
	m.mkdirs(path)
	return nil
}

func (m *memFS) ReadDir(path string) ([]os.DirEntry, error) {
	if !m.dirs[path] {
		return nil, os.ErrNotExist
	}
	seen := make(map[string]bool)
	var entries []os.DirEntry
	add := func(p string, dir bool) {
		if filepath.Dir(p) != path || p == path || seen[p] {
			return
		}
		seen[p] = true
		entries = append(entries, &fakeEntry{fakeInfo{name: filepath.Base(p), dir: dir}})
	}
	for p := range m.files {
		add(p, false)
	}
	for p := range m.dirs {
		add(p, true)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	if data, ok := m.files[path]; ok {
		return append([]byte(nil), data...), nil
	}
	return nil, os.ErrNotExist
}

func (m *memFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if err, ok := m.writeErr[path]; ok {
		return err
	}
	m.files[path] = append([]byte(nil), data...)
	m.mkdirs(filepath.Dir(path))
	m.writes = append(m.writes, path)
	return nil
}

type fakeInfo struct {
	name string
	size int64
	dir  bool
}

func (f *fakeInfo) Name() string       { return f.name }
func (f *fakeInfo) Size() int64        { return f.size }
func (f *fakeInfo) ModTime() time.Time { return time.Time{} }
func (f *fakeInfo) IsDir() bool        { return f.dir }
func (f *fakeInfo) Sys() interface{}   { return nil }
func (f *fakeInfo) Mode() os.FileMode {
	if f.dir {
		return os.ModeDir | 0755
	}
	return 0644
}

type fakeEntry struct{ info fakeInfo }

func (e *fakeEntry) Name() string               { return e.info.name }
func (e *fakeEntry) IsDir() bool                { return e.info.dir }
func (e *fakeEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e *fakeEntry) Info() (fs.FileInfo, error) { return &e.info, nil }

// fakeBackend renders markers as descriptive text and looks detections up
// by snapshot content.
type fakeBackend struct {
	rendered   []vision.Marker
	renderErr  error
	detections map[string]*vision.Detection
	detectErr  map[string]error

	solved     [][]vision.Sample
	solvedSize []vision.ImageSize
	solveErr   error

	undistortErr map[string]error
	shown        []string
	viewerErr    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		detections:   make(map[string]*vision.Detection),
		detectErr:    make(map[string]error),
		undistortErr: make(map[string]error),
	}
}

func renderedContent(m vision.Marker) string {
	return fmt.Sprintf("%s/%d/%dpx/inv=%v/border=%d%s", m.Dictionary, m.ID, m.SizePx, m.Inverted, m.Border, m.Format)
}

func (b *fakeBackend) RenderMarker(m vision.Marker) ([]byte, error) {
	if b.renderErr != nil {
		return nil, b.renderErr
	}
	b.rendered = append(b.rendered, m)
	return []byte(renderedContent(m)), nil
}

func (b *fakeBackend) NewDetector(board vision.Board) (vision.Detector, error) {
	return &fakeDetector{b: b}, nil
}

func (b *fakeBackend) NewSolver(board vision.Board) vision.Solver {
	return &fakeSolver{b: b}
}

func (b *fakeBackend) Undistort(data []byte, cal *vision.Calibration, format string) ([]byte, error) {
	if err, ok := b.undistortErr[string(data)]; ok {
		return nil, err
	}
	return []byte("undistorted:" + string(data) + format), nil
}

func (b *fakeBackend) NewViewer(title string) (vision.Viewer, error) {
	if b.viewerErr != nil {
		return nil, b.viewerErr
	}
	return &fakeViewer{b: b}, nil
}

type fakeDetector struct{ b *fakeBackend }

func (d *fakeDetector) Detect(data []byte) (*vision.Detection, error) {
	key := string(data)
	if err, ok := d.b.detectErr[key]; ok {
		return nil, err
	}
	if det, ok := d.b.detections[key]; ok {
		return det, nil
	}
	return nil, vision.ErrDecode
}

func (d *fakeDetector) Close() error { return nil }

type fakeSolver struct{ b *fakeBackend }

func (s *fakeSolver) Calibrate(samples []vision.Sample, size vision.ImageSize) (*vision.Calibration, error) {
	s.b.solved = append(s.b.solved, samples)
	s.b.solvedSize = append(s.b.solvedSize, size)
	if s.b.solveErr != nil {
		return nil, s.b.solveErr
	}
	cal := &vision.Calibration{
		CameraMatrix:      [3][3]float64{{800, 0, 320}, {0, 800, 240}, {0, 0, 1}},
		DistCoeffs:        []float64{0.1, -0.05, 0, 0, 0.01},
		ReprojectionError: 0.42,
	}
	for i := range samples {
		cal.RVecs = append(cal.RVecs, [3]float64{float64(i), 0, 0})
		cal.TVecs = append(cal.TVecs, [3]float64{0, 0, float64(i) + 1})
	}
	return cal, nil
}

type fakeViewer struct{ b *fakeBackend }

func (v *fakeViewer) Show(data []byte) error {
	v.b.shown = append(v.b.shown, string(data))
	return nil
}

func (v *fakeViewer) Close() error { return nil }

// detection builds a detection with the given marker and corner counts.
func detection(markers, corners int, size vision.ImageSize) *vision.Detection {
	det := &vision.Detection{Size: size, Interpolated: corners > 0}
	for i := 0; i < markers; i++ {
		det.MarkerIDs = append(det.MarkerIDs, i)
		det.MarkerCorners = append(det.MarkerCorners, [4]vision.Point2f{})
	}
	for i := 0; i < corners; i++ {
		det.CornerIDs = append(det.CornerIDs, i)
		det.Corners = append(det.Corners, vision.Point2f{X: float32(10 * i), Y: float32(5 * i)})
	}
	return det
}

// scriptedDecider replays canned answers and records what it was asked.
type scriptedDecider struct {
	actions  []planner.FileAction
	policies []planner.Policy
	err      error

	fileAsks  []string
	batchAsks [][]int
}

func (d *scriptedDecider) FileDecision(path string) (planner.FileAction, error) {
	d.fileAsks = append(d.fileAsks, path)
	if d.err != nil {
		return 0, d.err
	}
	if len(d.actions) == 0 {
		return 0, errors.New("unexpected file decision for " + path)
	}
	a := d.actions[0]
	d.actions = d.actions[1:]
	return a, nil
}

func (d *scriptedDecider) BatchPolicy(conflicting []int) (planner.Policy, error) {
	d.batchAsks = append(d.batchAsks, append([]int(nil), conflicting...))
	if d.err != nil {
		return 0, d.err
	}
	if len(d.policies) == 0 {
		return 0, errors.New("unexpected batch policy request")
	}
	p := d.policies[0]
	d.policies = d.policies[1:]
	return p, nil
}

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const testRoot = "/work"

func testPaths() config.Paths {
	return *config.PathsAt(testRoot)
}

func markerPath(name string) string {
	return filepath.Join(testRoot, "markers", name)
}

func snapshotPath(name string) string {
	return filepath.Join(testRoot, "calibration_snapshots", name)
}

func newTestEngine(decider planner.Decider) (*Engine, *memFS, *fakeBackend) {
	fs := newMemFS()
	backend := newFakeBackend()
	return New(fs, backend, decider, clock.NewFakeClock(testTime), testPaths()), fs, backend
}

func testBoard() vision.Board {
	return vision.Board{
		SquaresX:      12,
		SquaresY:      8,
		SquareLength:  0.02,
		MarkerLength:  0.015,
		Dictionary:    dictionary.Dict5x5_1000,
		LegacyPattern: true,
	}
}

func fileNames(fs *memFS, dir string) []string {
	var names []string
	for p := range fs.files {
		if filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names
}

func hasPrefix(b []byte, prefix string) bool {
	return strings.HasPrefix(string(b), prefix)
}
