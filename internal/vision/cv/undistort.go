package cv

import (
	"os"
	"runtime"

	"gocv.io/x/gocv"

	"github.com/danieljhkim/arucal/internal/vision"
)

// Undistort removes lens distortion from an encoded image.
func (b *Backend) Undistort(data []byte, cal *vision.Calibration, format string) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	k := cameraMatrixMat(cal)
	defer k.Close()
	d := distCoeffsMat(cal)
	defer d.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Undistort(img, &out, k, d, k)
	return encode(out, format)
}

func cameraMatrixMat(cal *vision.Calibration) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, cal.CameraMatrix[r][c])
		}
	}
	return m
}

// distCoeffsMat returns a 1xN row; an empty Mat means no distortion.
func distCoeffsMat(cal *vision.Calibration) gocv.Mat {
	if len(cal.DistCoeffs) == 0 {
		return gocv.NewMat()
	}
	m := gocv.NewMatWithSize(1, len(cal.DistCoeffs), gocv.MatTypeCV64F)
	for i, v := range cal.DistCoeffs {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

type window struct {
	w *gocv.Window
}

// NewViewer opens a display window titled title. Without a display it
// returns vision.ErrNoDisplay instead of letting the library abort.
func (b *Backend) NewViewer(title string) (vision.Viewer, error) {
	if !vision.HasDisplay(runtime.GOOS, os.Getenv) {
		return nil, vision.ErrNoDisplay
	}
	return &window{w: gocv.NewWindow(title)}, nil
}

// Show displays data and waits for a key press.
func (v *window) Show(data []byte) error {
	img, err := decode(data)
	if err != nil {
		return err
	}
	defer img.Close()

	v.w.IMShow(img)
	v.w.WaitKey(0)
	return nil
}

func (v *window) Close() error {
	v.w.Close()
	return nil
}
