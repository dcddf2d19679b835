// Package cv implements vision.Backend on top of gocv (OpenCV).
//
// This is the only package that links against OpenCV. Marker rendering,
// image codecs, ArUco detection, sub-pixel refinement, the calibration
// solver and lens undistortion are all delegated to the library.
package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/danieljhkim/arucal/internal/dictionary"
	"github.com/danieljhkim/arucal/internal/vision"
)

// Backend is the gocv implementation of vision.Backend.
type Backend struct{}

var _ vision.Backend = (*Backend)(nil)

// NewBackend creates a new Backend.
func NewBackend() *Backend {
	return &Backend{}
}

// arucoCode maps a registry id to the library's predefined dictionary.
func arucoCode(id dictionary.ID) (gocv.ArucoDictionaryCode, error) {
	switch id {
	case dictionary.Dict4x4_50:
		return gocv.ArucoDict4x4_50, nil
	case dictionary.Dict4x4_100:
		return gocv.ArucoDict4x4_100, nil
	case dictionary.Dict4x4_250:
		return gocv.ArucoDict4x4_250, nil
	case dictionary.Dict4x4_1000:
		return gocv.ArucoDict4x4_1000, nil
	case dictionary.Dict5x5_50:
		return gocv.ArucoDict5x5_50, nil
	case dictionary.Dict5x5_100:
		return gocv.ArucoDict5x5_100, nil
	case dictionary.Dict5x5_250:
		return gocv.ArucoDict5x5_250, nil
	case dictionary.Dict5x5_1000:
		return gocv.ArucoDict5x5_1000, nil
	case dictionary.Dict6x6_50:
		return gocv.ArucoDict6x6_50, nil
	case dictionary.Dict6x6_100:
		return gocv.ArucoDict6x6_100, nil
	case dictionary.Dict6x6_250:
		return gocv.ArucoDict6x6_250, nil
	case dictionary.Dict6x6_1000:
		return gocv.ArucoDict6x6_1000, nil
	case dictionary.Dict7x7_50:
		return gocv.ArucoDict7x7_50, nil
	case dictionary.Dict7x7_100:
		return gocv.ArucoDict7x7_100, nil
	case dictionary.Dict7x7_250:
		return gocv.ArucoDict7x7_250, nil
	case dictionary.Dict7x7_1000:
		return gocv.ArucoDict7x7_1000, nil
	case dictionary.DictArucoOriginal:
		return gocv.ArucoDictArucoOriginal, nil
	case dictionary.DictAprilTag16h5:
		return gocv.ArucoDictAprilTag_16h5, nil
	case dictionary.DictAprilTag25h9:
		return gocv.ArucoDictAprilTag_25h9, nil
	case dictionary.DictAprilTag36h10:
		return gocv.ArucoDictAprilTag_36h10, nil
	case dictionary.DictAprilTag36h11:
		return gocv.ArucoDictAprilTag_36h11, nil
	default:
		return 0, fmt.Errorf("no predefined dictionary for %s", id)
	}
}

// decode reads encoded image bytes as a BGR Mat. The caller closes it.
func decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return img, fmt.Errorf("%w: %v", vision.ErrDecode, err)
	}
	if img.Empty() {
		img.Close()
		return img, vision.ErrDecode
	}
	return img, nil
}

// encode writes img in the format named by its extension (".jpg", ".png").
func encode(img gocv.Mat, format string) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.FileExt(format), img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
