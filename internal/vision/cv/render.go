package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/danieljhkim/arucal/internal/vision"
)

// markerBorderBits is the width, in bits, of the black frame the library
// draws around every marker.
const markerBorderBits = 1

// RenderMarker renders m and returns the encoded image.
func (b *Backend) RenderMarker(m vision.Marker) ([]byte, error) {
	code, err := arucoCode(m.Dictionary)
	if err != nil {
		return nil, err
	}

	img := gocv.NewMat()
	defer img.Close()
	gocv.ArucoGenerateImageMarker(code, m.ID, m.SizePx, img, markerBorderBits)
	if img.Empty() {
		return nil, fmt.Errorf("failed to render marker %d of %s", m.ID, m.Dictionary)
	}

	if m.Inverted {
		gocv.BitwiseNot(img, &img)
	}

	if m.Border <= 0 {
		return encode(img, m.Format)
	}

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(img, &padded, m.Border, m.Border, m.Border, m.Border,
		gocv.BorderConstant, vision.BorderColor(m.Inverted))
	return encode(padded, m.Format)
}
