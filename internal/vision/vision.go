// Package vision defines the contract between arucal and the computer
// vision library it delegates to, plus the pure geometry of a Charuco
// calibration board.
//
// Nothing in this package links against the vision library itself; the
// gocv implementation of Backend lives in the cv subpackage. This keeps
// the engine and its tests free of cgo.
package vision

import (
	"errors"
	"image/color"

	"github.com/danieljhkim/arucal/internal/dictionary"
)

// MinCharucoCorners is the number of interpolated corners a snapshot must
// exceed to be used for calibration.
const MinCharucoCorners = 4

var (
	// ErrDecode indicates image bytes that the library cannot decode.
	ErrDecode = errors.New("could not decode image")

	// ErrSolve indicates the calibration solver did not converge.
	ErrSolve = errors.New("calibration solver failed")
)

// Point2f is an image-space point in pixels.
type Point2f struct {
	X, Y float32
}

// Point3f is a board-space point in meters; Z is always 0 on the board plane.
type Point3f struct {
	X, Y, Z float32
}

// ImageSize is an image's width and height in pixels.
type ImageSize struct {
	Width  int
	Height int
}

// Marker describes one marker bitmap to render.
type Marker struct {
	Dictionary dictionary.ID
	ID         int
	SizePx     int
	Inverted   bool
	Border     int

	// Format is the encoding extension, e.g. ".jpg"
	Format string
}

// BorderColor is the padding color added around a marker: black for
// inverted markers, white otherwise, so the padding never merges with the
// marker's own border bits.
func BorderColor(inverted bool) color.RGBA {
	if inverted {
		return color.RGBA{R: 0, G: 0, B: 0, A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}

// Detection is what the board detector found in one snapshot.
type Detection struct {
	Size ImageSize

	// MarkerIDs and MarkerCorners are the raw fiducial detections
	MarkerIDs     []int
	MarkerCorners [][4]Point2f

	// CornerIDs and Corners are the interpolated Charuco corners
	CornerIDs []int
	Corners   []Point2f

	// Interpolated reports whether corner interpolation succeeded
	Interpolated bool
}

// Sample returns the Charuco corners as a calibration sample.
func (d *Detection) Sample() Sample {
	return Sample{
		Corners: append([]Point2f(nil), d.Corners...),
		IDs:     append([]int(nil), d.CornerIDs...),
	}
}

// Sample is one snapshot's corner correspondences. Corners[i] is the image
// position of board corner IDs[i].
type Sample struct {
	Corners []Point2f
	IDs     []int
}

// Valid reports whether the sample pairs positions with ids one to one and
// has more than MinCharucoCorners of them.
func (s Sample) Valid() bool {
	return len(s.Corners) == len(s.IDs) && len(s.IDs) > MinCharucoCorners
}

// Calibration is the solved camera model.
type Calibration struct {
	CameraMatrix [3][3]float64
	DistCoeffs   []float64

	// RVecs and TVecs hold one rotation/translation vector per sample
	RVecs [][3]float64
	TVecs [][3]float64

	ImageSize         ImageSize
	ReprojectionError float64
}

// Detector finds a board in encoded snapshot images.
type Detector interface {
	// Detect decodes data and looks for board markers and corners. An
	// undecodable image returns ErrDecode.
	Detect(data []byte) (*Detection, error)

	Close() error
}

// Solver computes camera intrinsics from accumulated samples.
type Solver interface {
	Calibrate(samples []Sample, size ImageSize) (*Calibration, error)
}

// Viewer displays images for visual inspection and blocks until the
// operator dismisses each one.
type Viewer interface {
	Show(data []byte) error
	Close() error
}

// Backend is the set of capabilities delegated to the vision library.
type Backend interface {
	// RenderMarker renders, optionally inverts and pads a marker and
	// returns it encoded in m.Format.
	RenderMarker(m Marker) ([]byte, error)

	// NewDetector returns a detector for board b.
	NewDetector(b Board) (Detector, error)

	// NewSolver returns a calibration solver for board b.
	NewSolver(b Board) Solver

	// Undistort decodes data, removes lens distortion and re-encodes it in format.
	Undistort(data []byte, cal *Calibration, format string) ([]byte, error)

	// NewViewer opens a display window.
	NewViewer(title string) (Viewer, error)
}
