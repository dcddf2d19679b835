// Package engine provides the core business logic for arucal operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// lower-level operations. It runs the preliminary checks, plans marker
// batches, resolves file conflicts, emits rendered markers and drives the
// calibration pipeline.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - GenerateMarker/GenerateBatch: Marker sheet generation with conflict resolution
//   - Calibrate: Snapshot detection, camera solve and result persistence
//   - LoadCalibration: Reads a stored calibration back
package engine

import (
	"fmt"

	"github.com/danieljhkim/arucal/internal/clock"
	"github.com/danieljhkim/arucal/internal/config"
	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/persist"
	"github.com/danieljhkim/arucal/internal/planner"
	"github.com/danieljhkim/arucal/internal/vision"
)

// Engine orchestrates all arucal operations.
// It is the main API surface called by the CLI.
type Engine struct {
	fs          fsops.FS
	backend     vision.Backend
	decider     planner.Decider
	clock       clock.Clock
	configPaths config.Paths
	naming      planner.Naming

	// openStore returns the calibration store for a result file
	openStore func(path string) persist.CalibrationStore
}

// New creates a new Engine with the given dependencies. decider may be nil
// for non-interactive runs; any conflict that needs a decision then fails
// with planner.ErrNoDecision.
func New(
	fs fsops.FS,
	backend vision.Backend,
	decider planner.Decider,
	clk clock.Clock,
	paths config.Paths,
) *Engine {
	return &Engine{
		fs:          fs,
		backend:     backend,
		decider:     decider,
		clock:       clk,
		configPaths: paths,
		naming:      planner.DefaultNaming,
		openStore: func(path string) persist.CalibrationStore {
			return persist.NewFileCalibrationStore(fs, path)
		},
	}
}

// emit renders marker and writes it to path.
func (e *Engine) emit(marker vision.Marker, path string) error {
	data, err := e.backend.RenderMarker(marker)
	if err != nil {
		return fmt.Errorf("failed to render marker %d: %w", marker.ID, err)
	}
	if err := e.fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
