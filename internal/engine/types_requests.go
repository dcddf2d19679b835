package engine

import (
	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/planner"
	"github.com/danieljhkim/arucal/internal/vision"
)

// GenerateMarkerRequest represents a request to generate one marker image.
type GenerateMarkerRequest struct {
	// Dictionary is the dictionary the marker is drawn from
	Dictionary dictionary.ID

	// ID is the marker id, in [0, capacity)
	ID int

	// Size is the requested image side in pixels
	Size int

	// Inverted renders white bits on black
	Inverted bool

	// Border is the padding added around the marker, in pixels
	Border int

	// OutputDir is where the image is written (default: markers/)
	OutputDir string
}

// GenerateBatchRequest represents a request to generate a spread of markers.
type GenerateBatchRequest struct {
	// Dictionary is the dictionary markers are drawn from
	Dictionary dictionary.ID

	// Count is the number of markers requested; clamped to the capacity
	Count int

	// Size is the requested image side in pixels
	Size int

	// Inverted renders white bits on black
	Inverted bool

	// Border is the padding added around each marker, in pixels
	Border int

	// OutputDir is where images are written (default: markers/)
	OutputDir string

	// Policy preselects the conflict policy. PolicyNone asks the decider
	// once if the plan has conflicts.
	Policy planner.Policy

	// Plan reuses a plan from PlanGeneration instead of scanning again
	Plan *planner.BatchPlan

	// OnMarker is called after each marker is resolved
	OnMarker func(MarkerOutcome)
}

// CalibrateRequest represents a request to calibrate from a snapshot directory.
type CalibrateRequest struct {
	// SnapshotDir is the directory of board images (default: calibration_snapshots/)
	SnapshotDir string

	// Extensions filters snapshot files, case-insensitively (default: .jpg)
	Extensions []string

	// Board is the printed Charuco board
	Board vision.Board

	// Output is the result file (default: calibration_data.json)
	Output string

	// UndistortDir receives undistorted copies of every snapshot when set
	UndistortDir string

	// Preview shows each undistorted snapshot in a window
	Preview bool

	// OnSnapshot is called after each snapshot is processed
	OnSnapshot func(SnapshotResult)
}
