package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/arucal/internal/config"
	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/persist"
	"github.com/danieljhkim/arucal/internal/vision"
)

// PreviewTitle is the window title of the undistortion preview.
const PreviewTitle = "Undistorted Image"

// Calibrate computes camera intrinsics from a directory of Charuco board
// snapshots.
//
// Algorithm steps:
// 1. List snapshots matching the extension filter, sorted by name
// 2. Detect markers and interpolate board corners in each snapshot
// 3. Accept a snapshot when it yields more than four corners
// 4. Solve once with every accepted sample
// 5. Write the result, replacing any previous one
// 6. Optionally undistort every snapshot for inspection
//
// Unreadable snapshots and snapshots without markers are reported per file
// and never abort the run. No result is written unless the solve succeeds.
func (e *Engine) Calibrate(ctx context.Context, req *CalibrateRequest) (*CalibrateResult, error) {
	if err := req.Board.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	dir := resolvePath(req.SnapshotDir, e.configPaths.Root, e.configPaths.Snapshots)
	var outDir string
	if req.UndistortDir != "" {
		outDir = resolvePath(req.UndistortDir, e.configPaths.Root, "")
		if filepath.Clean(outDir) == filepath.Clean(dir) {
			return nil, fmt.Errorf("%w: undistorted copies would replace the snapshots in %s", ErrOutputDir, dir)
		}
	}
	exts := req.Extensions
	if len(exts) == 0 {
		exts = config.DefaultSnapshotExtensions
	}
	names, err := e.listSnapshots(dir, extensionSet(exts))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshots, dir)
	}

	detector, err := e.backend.NewDetector(req.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to create board detector: %w", err)
	}
	defer detector.Close()

	result := &CalibrateResult{Snapshots: make([]SnapshotResult, 0, len(names))}
	var samples []vision.Sample
	var size vision.ImageSize

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		snap, sample, imgSize := e.processSnapshot(detector, filepath.Join(dir, name))
		snap.Name = name
		snap.Index = i + 1
		snap.Total = len(names)

		if snap.Status == SnapshotAccepted {
			if len(samples) == 0 {
				size = imgSize
			}
			if imgSize != size {
				snap.Status = SnapshotRejected
				snap.Err = fmt.Errorf("image is %dx%d but earlier snapshots are %dx%d",
					imgSize.Width, imgSize.Height, size.Width, size.Height)
			} else {
				samples = append(samples, sample)
			}
		}

		result.Snapshots = append(result.Snapshots, snap)
		if req.OnSnapshot != nil {
			req.OnSnapshot(snap)
		}
	}

	result.Samples = len(samples)
	if len(samples) == 0 {
		return result, ErrNoSamples
	}

	cal, err := e.backend.NewSolver(req.Board).Calibrate(samples, size)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrCalibrationFailed, err)
	}
	if cal == nil {
		return result, ErrCalibrationFailed
	}
	cal.ImageSize = size
	result.Calibration = cal

	output := resolvePath(req.Output, e.configPaths.Root, e.configPaths.CalibrationFile)
	at := e.clock.Now()
	store := e.openStore(output)
	if err := store.Save(cal, at); err != nil {
		return result, err
	}
	result.OutputPath = store.Path()
	result.CalibratedAt = at

	if outDir != "" || req.Preview {
		undistorted, err := e.undistortAll(ctx, req.Preview, dir, outDir, names, cal)
		result.Undistorted = undistorted
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// LoadCalibration reads a stored calibration. An empty path selects the
// default result file.
func (e *Engine) LoadCalibration(path string) (*persist.Record, string, error) {
	store := e.openStore(resolvePath(path, e.configPaths.Root, e.configPaths.CalibrationFile))
	rec, err := store.Load()
	if err != nil {
		return nil, store.Path(), err
	}
	return rec, store.Path(), nil
}

// listSnapshots returns the sorted names of regular files in dir matching exts.
func (e *Engine) listSnapshots(dir string, exts map[string]bool) ([]string, error) {
	exists, err := e.fs.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", dir, err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if hasExtension(entry.Name(), exts) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// processSnapshot classifies one snapshot and returns its sample when accepted.
func (e *Engine) processSnapshot(detector vision.Detector, path string) (SnapshotResult, vision.Sample, vision.ImageSize) {
	data, err := e.fs.ReadFile(path)
	if err != nil {
		return SnapshotResult{Status: SnapshotUnreadable, Err: err}, vision.Sample{}, vision.ImageSize{}
	}

	det, err := detector.Detect(data)
	if err != nil {
		if !errors.Is(err, vision.ErrDecode) {
			err = fmt.Errorf("detection failed: %w", err)
		}
		return SnapshotResult{Status: SnapshotUnreadable, Err: err}, vision.Sample{}, vision.ImageSize{}
	}

	snap := SnapshotResult{Markers: len(det.MarkerIDs), Corners: len(det.CornerIDs)}
	if len(det.MarkerIDs) == 0 {
		snap.Status = SnapshotNoMarkers
		return snap, vision.Sample{}, det.Size
	}

	sample := det.Sample()
	if !det.Interpolated || !sample.Valid() {
		snap.Status = SnapshotRejected
		snap.Err = fmt.Errorf("%d corners found, more than %d required", len(sample.IDs), vision.MinCharucoCorners)
		return snap, vision.Sample{}, det.Size
	}

	snap.Status = SnapshotAccepted
	return snap, sample, det.Size
}

// undistortAll runs the diagnostic pass over every snapshot. Per-file
// failures are recorded; only cancellation and a failure to open the preview
// window stop the pass.
func (e *Engine) undistortAll(ctx context.Context, preview bool, dir, outDir string, names []string, cal *vision.Calibration) ([]UndistortOutcome, error) {
	if outDir != "" {
		if err := fsops.EnsureDir(e.fs, outDir); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
		}
	}

	var viewer vision.Viewer
	if preview {
		v, err := e.backend.NewViewer(PreviewTitle)
		if err != nil {
			return nil, fmt.Errorf("failed to open preview: %w", err)
		}
		defer v.Close()
		viewer = v
	}

	outcomes := make([]UndistortOutcome, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcome := UndistortOutcome{Name: name}
		outcome.Path, outcome.Err = e.undistortOne(filepath.Join(dir, name), outDir, name, cal, viewer)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (e *Engine) undistortOne(src, outDir, name string, cal *vision.Calibration, viewer vision.Viewer) (string, error) {
	data, err := e.fs.ReadFile(src)
	if err != nil {
		return "", err
	}

	corrected, err := e.backend.Undistort(data, cal, strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", fmt.Errorf("failed to undistort: %w", err)
	}

	var written string
	if outDir != "" {
		written = filepath.Join(outDir, name)
		if err := e.fs.AtomicWrite(written, corrected, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", written, err)
		}
	}

	if viewer != nil {
		if err := viewer.Show(corrected); err != nil {
			return written, fmt.Errorf("failed to show: %w", err)
		}
	}
	return written, nil
}
