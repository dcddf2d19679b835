package cv

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/danieljhkim/arucal/internal/vision"
)

// minAdjacentMarkers is how many detected markers must surround a corner
// before it is interpolated.
const minAdjacentMarkers = 2

type detector struct {
	board  vision.Board
	aruco  gocv.ArucoDetector
	closed bool
}

// NewDetector returns a Charuco board detector for board.
func (b *Backend) NewDetector(board vision.Board) (vision.Detector, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	code, err := arucoCode(board.Dictionary)
	if err != nil {
		return nil, err
	}

	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()
	return &detector{
		board: board,
		aruco: gocv.NewArucoDetectorWithParams(dict, params),
	}, nil
}

func (d *detector) Close() error {
	if !d.closed {
		d.aruco.Close()
		d.closed = true
	}
	return nil
}

// Detect finds board markers in data, then interpolates and refines the
// chessboard corners between them.
func (d *detector) Detect(data []byte) (*vision.Detection, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	det := &vision.Detection{
		Size: vision.ImageSize{Width: img.Cols(), Height: img.Rows()},
	}

	corners, ids, _ := d.aruco.DetectMarkers(gray)
	views := make([]vision.MarkerView, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) != 4 {
			continue
		}
		var quad [4]vision.Point2f
		for j, p := range corners[i] {
			quad[j] = vision.Point2f{X: p.X, Y: p.Y}
		}
		det.MarkerIDs = append(det.MarkerIDs, id)
		det.MarkerCorners = append(det.MarkerCorners, quad)

		if h, ok := d.homography(id, corners[i]); ok {
			views = append(views, vision.MarkerView{ID: id, H: h})
		}
	}
	if len(views) == 0 {
		return det, nil
	}

	pts, cornerIDs := d.board.InterpolateCorners(views, minAdjacentMarkers)
	if len(cornerIDs) == 0 {
		return det, nil
	}
	refineCorners(gray, pts)

	det.Corners = pts
	det.CornerIDs = cornerIDs
	det.Interpolated = true
	return det, nil
}

// homography maps the board plane onto the image using the four corners of
// one marker. Markers that are not part of the board are rejected.
func (d *detector) homography(id int, imgCorners []gocv.Point2f) (vision.Homography, bool) {
	obj, ok := d.board.MarkerObjectCorners(id)
	if !ok {
		return vision.Homography{}, false
	}

	src := make([]gocv.Point2f, len(obj))
	for i, p := range obj {
		src[i] = gocv.Point2f{X: p.X, Y: p.Y}
	}
	srcVec := gocv.NewPoint2fVectorFromPoints(src)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(imgCorners)
	defer dstVec.Close()

	m := gocv.GetPerspectiveTransform2f(srcVec, dstVec)
	defer m.Close()
	if m.Empty() || m.Rows() != 3 || m.Cols() != 3 {
		return vision.Homography{}, false
	}

	var h vision.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.GetDoubleAt(r, c)
		}
	}
	return h, true
}

// refineCorners moves each corner to its sub-pixel position in gray.
func refineCorners(gray gocv.Mat, pts []vision.Point2f) {
	m := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV32FC2)
	defer m.Close()
	for i, p := range pts {
		m.SetFloatAt(i, 0, p.X)
		m.SetFloatAt(i, 1, p.Y)
	}

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 100, 0.01)
	gocv.CornerSubPix(gray, &m, image.Pt(5, 5), image.Pt(-1, -1), criteria)

	for i := range pts {
		pts[i] = vision.Point2f{X: m.GetFloatAt(i, 0), Y: m.GetFloatAt(i, 1)}
	}
}
