package engine

import (
	"time"

	"github.com/danieljhkim/arucal/internal/planner"
	"github.com/danieljhkim/arucal/internal/vision"
)

// GenerateMarkerResult represents the result of generating one marker.
type GenerateMarkerResult struct {
	// ID is the marker id
	ID int

	// Resolution is what happened to the target file
	Resolution planner.Resolution

	// Size is the side length actually rendered
	Size int

	// SizeAdjusted is true when Size was rounded up to the bit dimension
	SizeAdjusted bool
}

// MarkerOutcome is the per-marker progress of a batch.
type MarkerOutcome struct {
	// Index is the 1-based position in the batch
	Index int

	// Total is the number of markers in the batch
	Total int

	// ID is the marker id
	ID int

	// Resolution is what happened to the target file
	Resolution planner.Resolution
}

// GenerateBatchResult represents the result of a batch generation.
type GenerateBatchResult struct {
	// Plan is the plan that was executed
	Plan *planner.BatchPlan

	// Policy is the conflict policy used for every marker
	Policy planner.Policy

	// Size is the side length actually rendered
	Size int

	// SizeAdjusted is true when Size was rounded up to the bit dimension
	SizeAdjusted bool

	// Outcomes lists every marker processed, in plan order
	Outcomes []MarkerOutcome

	// Generated counts written images (created, overwritten and kept-both)
	Generated int

	// Skipped counts markers left untouched
	Skipped int

	// Overwritten counts images that replaced an existing file
	Overwritten int

	// KeptBoth counts images written under a versioned name
	KeptBoth int
}

// SnapshotStatus classifies one snapshot of a calibration run.
type SnapshotStatus int

const (
	// SnapshotAccepted contributed a calibration sample
	SnapshotAccepted SnapshotStatus = iota
	// SnapshotUnreadable could not be read or decoded
	SnapshotUnreadable
	// SnapshotNoMarkers decoded but showed no board markers
	SnapshotNoMarkers
	// SnapshotRejected had markers but too few usable corners
	SnapshotRejected
)

// String returns a short label for the status.
func (s SnapshotStatus) String() string {
	switch s {
	case SnapshotAccepted:
		return "accepted"
	case SnapshotUnreadable:
		return "unreadable"
	case SnapshotNoMarkers:
		return "no markers"
	case SnapshotRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// SnapshotResult is the outcome of processing one snapshot.
type SnapshotResult struct {
	// Name is the file name within the snapshot directory
	Name string

	// Index is the 1-based position in the run
	Index int

	// Total is the number of snapshots in the run
	Total int

	// Status classifies the snapshot
	Status SnapshotStatus

	// Markers is the number of fiducial markers detected
	Markers int

	// Corners is the number of interpolated Charuco corners
	Corners int

	// Err explains unreadable and rejected snapshots
	Err error
}

// UndistortOutcome is the result of undistorting one snapshot.
type UndistortOutcome struct {
	// Name is the snapshot file name
	Name string

	// Path is where the undistorted copy was written, if any
	Path string

	// Err is set when the snapshot could not be undistorted or shown
	Err error
}

// CalibrateResult represents the result of a calibration run.
type CalibrateResult struct {
	// Snapshots lists every processed snapshot in order
	Snapshots []SnapshotResult

	// Samples is the number of accepted snapshots passed to the solver
	Samples int

	// Calibration is the solved camera model
	Calibration *vision.Calibration

	// OutputPath is where the result was written
	OutputPath string

	// CalibratedAt is the timestamp stored with the result
	CalibratedAt time.Time

	// Undistorted lists the diagnostic pass, if one was requested
	Undistorted []UndistortOutcome
}

// Accepted returns the names of snapshots that contributed samples.
func (r *CalibrateResult) Accepted() []string {
	var names []string
	for _, s := range r.Snapshots {
		if s.Status == SnapshotAccepted {
			names = append(names, s.Name)
		}
	}
	return names
}
