package engine

import (
	"errors"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/planner"
)

// Configuration errors abort a run before anything is written.
var (
	// ErrUnknownDictionary indicates a dictionary outside the registry.
	ErrUnknownDictionary = dictionary.ErrUnknown

	// ErrEmptyDictionary indicates a dictionary with zero capacity.
	ErrEmptyDictionary = planner.ErrEmptyDictionary

	// ErrInvalidCount indicates a marker count below one.
	ErrInvalidCount = planner.ErrInvalidCount

	// ErrMarkerOutOfRange indicates a marker id outside the dictionary.
	ErrMarkerOutOfRange = errors.New("marker id out of range")

	// ErrInvalidSize indicates a non-positive image size.
	ErrInvalidSize = errors.New("marker size must be greater than 0")

	// ErrInvalidBorder indicates a negative border thickness.
	ErrInvalidBorder = errors.New("border thickness must not be negative")

	// ErrOutputDir indicates the output directory cannot be created or is not a directory.
	ErrOutputDir = errors.New("output directory unusable")

	// ErrInvalidBoard indicates an inconsistent calibration board.
	ErrInvalidBoard = errors.New("invalid calibration board")
)

// Insufficient-data errors abort a calibration run without writing a result.
var (
	// ErrNoSnapshots indicates the snapshot directory has no matching images.
	ErrNoSnapshots = errors.New("no snapshots found")

	// ErrNoSamples indicates no snapshot produced a usable Charuco detection.
	ErrNoSamples = errors.New("no valid Charuco corners or IDs found in the snapshots")

	// ErrCalibrationFailed indicates the solver could not produce a camera model.
	ErrCalibrationFailed = errors.New("camera calibration failed")
)

// ErrCancelled indicates the operator declined to continue.
var ErrCancelled = errors.New("cancelled by user")
