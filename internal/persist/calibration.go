// Package persist reads and writes the calibration result file.
//
// The file is plain JSON with numeric matrices flattened to nested arrays so
// it can be consumed by any tooling: camera_matrix is 3x3, dist_coeffs is a
// single row, and rvecs/tvecs hold one 3-element array per accepted
// snapshot. image_size, reprojection_error and calibrated_at are metadata.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/danieljhkim/arucal/internal/fsops"
	"github.com/danieljhkim/arucal/internal/vision"
)

// ErrMalformed indicates the file parsed as JSON but has the wrong shape.
var ErrMalformed = errors.New("malformed calibration file")

// CalibrationFile is the on-disk layout of calibration_data.json.
type CalibrationFile struct {
	// CameraMatrix is the 3x3 intrinsic matrix, row-major
	CameraMatrix [][]float64 `json:"camera_matrix"`

	// DistCoeffs is a single row of distortion coefficients
	DistCoeffs [][]float64 `json:"dist_coeffs"`

	// RVecs holds one Rodrigues rotation vector per sample
	RVecs [][]float64 `json:"rvecs"`

	// TVecs holds one translation vector per sample
	TVecs [][]float64 `json:"tvecs"`

	// ImageSize is [width, height] in pixels
	ImageSize []int `json:"image_size,omitempty"`

	// ReprojectionError is the RMS error reported by the solver
	ReprojectionError float64 `json:"reprojection_error"`

	// CalibratedAt is when the solve finished
	CalibratedAt time.Time `json:"calibrated_at"`
}

// Record is a loaded calibration with its timestamp.
type Record struct {
	Calibration  *vision.Calibration
	CalibratedAt time.Time
}

// CalibrationStore persists calibration results.
type CalibrationStore interface {
	// Path returns where the result is stored.
	Path() string

	// Save writes cal, replacing any previous result.
	Save(cal *vision.Calibration, at time.Time) error

	// Load reads the stored result.
	// Returns os.ErrNotExist if nothing has been saved.
	Load() (*Record, error)
}

// FileCalibrationStore implements CalibrationStore as a single JSON file.
type FileCalibrationStore struct {
	fs   fsops.FS
	path string
}

// NewFileCalibrationStore creates a store writing to path.
func NewFileCalibrationStore(fs fsops.FS, path string) *FileCalibrationStore {
	return &FileCalibrationStore{fs: fs, path: path}
}

// Path returns the file location.
func (s *FileCalibrationStore) Path() string {
	return s.path
}

// Save writes cal atomically.
func (s *FileCalibrationStore) Save(cal *vision.Calibration, at time.Time) error {
	file, err := Encode(cal, at)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration: %w", err)
	}
	data = append(data, '\n')

	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	return nil
}

// Load reads and validates the calibration file.
func (s *FileCalibrationStore) Load() (*Record, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	var file CalibrationFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calibration: %w", err)
	}
	return Decode(&file)
}

// Encode converts cal into its file layout.
func Encode(cal *vision.Calibration, at time.Time) (*CalibrationFile, error) {
	if cal == nil {
		return nil, fmt.Errorf("%w: nil calibration", ErrMalformed)
	}
	if len(cal.RVecs) != len(cal.TVecs) {
		return nil, fmt.Errorf("%w: %d rotation and %d translation vectors", ErrMalformed, len(cal.RVecs), len(cal.TVecs))
	}
	if !finite(cal.ReprojectionError) {
		return nil, fmt.Errorf("%w: reprojection error is not finite", ErrMalformed)
	}

	file := &CalibrationFile{
		CameraMatrix:      make([][]float64, 3),
		DistCoeffs:        [][]float64{append([]float64{}, cal.DistCoeffs...)},
		RVecs:             vecRows(cal.RVecs),
		TVecs:             vecRows(cal.TVecs),
		ReprojectionError: cal.ReprojectionError,
		CalibratedAt:      at,
	}
	for r := range file.CameraMatrix {
		file.CameraMatrix[r] = []float64{cal.CameraMatrix[r][0], cal.CameraMatrix[r][1], cal.CameraMatrix[r][2]}
	}
	if cal.ImageSize.Width > 0 && cal.ImageSize.Height > 0 {
		file.ImageSize = []int{cal.ImageSize.Width, cal.ImageSize.Height}
	}
	return file, nil
}

// Decode validates file shapes and converts back to a calibration.
func Decode(file *CalibrationFile) (*Record, error) {
	cal := &vision.Calibration{ReprojectionError: file.ReprojectionError}

	if len(file.CameraMatrix) != 3 {
		return nil, fmt.Errorf("%w: camera_matrix has %d rows, want 3", ErrMalformed, len(file.CameraMatrix))
	}
	for r, row := range file.CameraMatrix {
		if len(row) != 3 {
			return nil, fmt.Errorf("%w: camera_matrix row %d has %d values, want 3", ErrMalformed, r, len(row))
		}
		copy(cal.CameraMatrix[r][:], row)
	}

	if len(file.DistCoeffs) != 1 {
		return nil, fmt.Errorf("%w: dist_coeffs has %d rows, want 1", ErrMalformed, len(file.DistCoeffs))
	}
	cal.DistCoeffs = append([]float64{}, file.DistCoeffs[0]...)

	var err error
	if cal.RVecs, err = vecs("rvecs", file.RVecs); err != nil {
		return nil, err
	}
	if cal.TVecs, err = vecs("tvecs", file.TVecs); err != nil {
		return nil, err
	}
	if len(cal.RVecs) != len(cal.TVecs) {
		return nil, fmt.Errorf("%w: %d rvecs but %d tvecs", ErrMalformed, len(cal.RVecs), len(cal.TVecs))
	}

	switch len(file.ImageSize) {
	case 0:
	case 2:
		cal.ImageSize = vision.ImageSize{Width: file.ImageSize[0], Height: file.ImageSize[1]}
	default:
		return nil, fmt.Errorf("%w: image_size has %d values, want 2", ErrMalformed, len(file.ImageSize))
	}

	return &Record{Calibration: cal, CalibratedAt: file.CalibratedAt}, nil
}

func vecRows(in [][3]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, v := range in {
		out[i] = []float64{v[0], v[1], v[2]}
	}
	return out
}

func vecs(key string, rows [][]float64) ([][3]float64, error) {
	out := make([][3]float64, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%w: %s[%d] has %d values, want 3", ErrMalformed, key, i, len(row))
		}
		out[i] = [3]float64{row[0], row[1], row[2]}
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
