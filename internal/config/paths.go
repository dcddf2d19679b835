// Package config manages arucal configuration and filesystem paths.
//
// Every location arucal reads or writes is fixed relative to the working
// directory: markers/ for generated images, calibration_snapshots/ for
// calibration input, calibration_data.json for the result, and an optional
// arucal.yaml project file. The root can be moved with ARUCAL_ROOT.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv names the environment variable that overrides the working directory.
const RootEnv = "ARUCAL_ROOT"

// Paths contains all the filesystem paths used by arucal.
type Paths struct {
	// Root is the directory everything else is relative to (default: cwd)
	Root string

	// Markers is the output directory for generated marker images
	Markers string

	// Snapshots is the directory scanned for calibration images
	Snapshots string

	// CalibrationFile is where the calibration result is written
	CalibrationFile string

	// Config is the path to the optional project config file
	Config string
}

// DefaultPaths returns the default paths for arucal.
// Paths can be overridden with environment variables:
// - ARUCAL_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv(RootEnv)
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = cwd
	}
	return PathsAt(root), nil
}

// PathsAt returns the paths rooted at root.
func PathsAt(root string) *Paths {
	return &Paths{
		Root:            root,
		Markers:         filepath.Join(root, "markers"),
		Snapshots:       filepath.Join(root, "calibration_snapshots"),
		CalibrationFile: filepath.Join(root, "calibration_data.json"),
		Config:          filepath.Join(root, "arucal.yaml"),
	}
}
