package cv

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/danieljhkim/arucal/internal/vision"
)

type solver struct {
	board vision.Board
}

// NewSolver returns a solver that maps corner ids through board geometry.
func (b *Backend) NewSolver(board vision.Board) vision.Solver {
	return &solver{board: board}
}

// Calibrate runs the library's camera calibration over all samples at once.
func (s *solver) Calibrate(samples []vision.Sample, size vision.ImageSize) (*vision.Calibration, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", vision.ErrSolve)
	}

	objPts := make([][]gocv.Point3f, 0, len(samples))
	imgPts := make([][]gocv.Point2f, 0, len(samples))
	for i, sample := range samples {
		if !sample.Valid() {
			return nil, fmt.Errorf("sample %d has %d corners and %d ids", i, len(sample.Corners), len(sample.IDs))
		}
		obj, err := s.board.ObjectPoints(sample.IDs)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		o := make([]gocv.Point3f, len(obj))
		for j, p := range obj {
			o[j] = gocv.Point3f{X: p.X, Y: p.Y, Z: p.Z}
		}
		im := make([]gocv.Point2f, len(sample.Corners))
		for j, p := range sample.Corners {
			im[j] = gocv.Point2f{X: p.X, Y: p.Y}
		}
		objPts = append(objPts, o)
		imgPts = append(imgPts, im)
	}

	objVec := gocv.NewPoints3fVectorFromPoints(objPts)
	defer objVec.Close()
	imgVec := gocv.NewPoints2fVectorFromPoints(imgPts)
	defer imgVec.Close()

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objVec, imgVec, image.Pt(size.Width, size.Height),
		&cameraMatrix, &distCoeffs, &rvecs, &tvecs, 0)
	if cameraMatrix.Empty() || math.IsNaN(rms) || math.IsInf(rms, 0) {
		return nil, vision.ErrSolve
	}

	cal := &vision.Calibration{
		ImageSize:         size,
		ReprojectionError: rms,
		DistCoeffs:        flatten(distCoeffs),
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			cal.CameraMatrix[r][c] = cameraMatrix.GetDoubleAt(r, c)
		}
	}

	var err error
	if cal.RVecs, err = vectors(rvecs); err != nil {
		return nil, fmt.Errorf("rotation vectors: %w", err)
	}
	if cal.TVecs, err = vectors(tvecs); err != nil {
		return nil, fmt.Errorf("translation vectors: %w", err)
	}
	if len(cal.RVecs) != len(samples) || len(cal.TVecs) != len(samples) {
		return nil, fmt.Errorf("%w: got %d poses for %d samples", vision.ErrSolve, len(cal.RVecs), len(samples))
	}
	return cal, nil
}

// flatten reads a single-row or single-column CV_64F Mat.
func flatten(m gocv.Mat) []float64 {
	if m.Empty() {
		return nil
	}
	out := make([]float64, 0, m.Rows()*m.Cols())
	if m.Rows() == 1 {
		for c := 0; c < m.Cols(); c++ {
			out = append(out, m.GetDoubleAt(0, c))
		}
		return out
	}
	for r := 0; r < m.Rows(); r++ {
		out = append(out, m.GetDoubleAt(r, 0))
	}
	return out
}

// vectors reads per-view 3-vectors, stored either as an Nx1 three-channel
// Mat or as an Nx3 single-channel Mat.
func vectors(m gocv.Mat) ([][3]float64, error) {
	if m.Empty() {
		return nil, nil
	}

	switch {
	case m.Channels() == 3:
		n := max(m.Rows(), m.Cols())
		out := make([][3]float64, n)
		for i := 0; i < n; i++ {
			var v gocv.Vecd
			if m.Rows() >= m.Cols() {
				v = m.GetVecdAt(i, 0)
			} else {
				v = m.GetVecdAt(0, i)
			}
			if len(v) < 3 {
				return nil, fmt.Errorf("vector %d has %d components", i, len(v))
			}
			out[i] = [3]float64{v[0], v[1], v[2]}
		}
		return out, nil
	case m.Channels() == 1 && m.Cols() == 3:
		out := make([][3]float64, m.Rows())
		for i := range out {
			out[i] = [3]float64{m.GetDoubleAt(i, 0), m.GetDoubleAt(i, 1), m.GetDoubleAt(i, 2)}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected layout %dx%d with %d channels", m.Rows(), m.Cols(), m.Channels())
	}
}
