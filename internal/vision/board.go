package vision

import (
	"fmt"
	"math"
	"sort"

	"github.com/danieljhkim/arucal/internal/dictionary"
)

// Board is the geometry of a Charuco board: a chessboard whose white
// squares carry fiducial markers. Board coordinates are in meters with the
// origin at the top-left outer corner, x to the right and y downwards.
type Board struct {
	SquaresX     int
	SquaresY     int
	SquareLength float64
	MarkerLength float64
	Dictionary   dictionary.ID

	// LegacyPattern selects the pre-4.6 layout for boards with an even
	// number of rows, where the top-left square holds a marker.
	LegacyPattern bool
}

// Cell is a board square position.
type Cell struct {
	X, Y int
}

// Validate checks that the board can be built from its dictionary.
func (b Board) Validate() error {
	if b.SquaresX < 2 || b.SquaresY < 2 {
		return fmt.Errorf("board needs at least 2x2 squares, got %dx%d", b.SquaresX, b.SquaresY)
	}
	if b.SquareLength <= 0 || b.MarkerLength <= 0 {
		return fmt.Errorf("square and marker lengths must be positive")
	}
	if b.MarkerLength >= b.SquareLength {
		return fmt.Errorf("marker length %.4f must be smaller than square length %.4f", b.MarkerLength, b.SquareLength)
	}
	spec, ok := dictionary.Lookup(b.Dictionary)
	if !ok {
		return fmt.Errorf("unknown dictionary %s", b.Dictionary)
	}
	if spec.Capacity < b.MarkerCount() {
		return fmt.Errorf("board needs %d markers but %s holds %d", b.MarkerCount(), spec.Name, spec.Capacity)
	}
	return nil
}

// hasMarker reports whether square (x, y) carries a marker.
func (b Board) hasMarker(x, y int) bool {
	if b.LegacyPattern && b.SquaresY%2 == 0 {
		return (y+1)%2 != x%2
	}
	return y%2 != x%2
}

// markerCells lists the marker squares in id order (row-major).
func (b Board) markerCells() []Cell {
	cells := make([]Cell, 0, b.SquaresX*b.SquaresY/2+1)
	for y := 0; y < b.SquaresY; y++ {
		for x := 0; x < b.SquaresX; x++ {
			if b.hasMarker(x, y) {
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}
	return cells
}

// MarkerCount is the number of markers printed on the board.
func (b Board) MarkerCount() int {
	return len(b.markerCells())
}

// CornerCount is the number of inner chessboard corners.
func (b Board) CornerCount() int {
	if b.SquaresX < 2 || b.SquaresY < 2 {
		return 0
	}
	return (b.SquaresX - 1) * (b.SquaresY - 1)
}

// MarkerCell returns the square holding marker id.
func (b Board) MarkerCell(id int) (Cell, bool) {
	cells := b.markerCells()
	if id < 0 || id >= len(cells) {
		return Cell{}, false
	}
	return cells[id], true
}

// MarkerObjectCorners returns the board-space corners of marker id in
// clockwise order starting top-left, matching the detector's corner order.
func (b Board) MarkerObjectCorners(id int) ([4]Point3f, bool) {
	cell, ok := b.MarkerCell(id)
	if !ok {
		return [4]Point3f{}, false
	}
	margin := (b.SquareLength - b.MarkerLength) / 2
	x0 := float64(cell.X)*b.SquareLength + margin
	y0 := float64(cell.Y)*b.SquareLength + margin
	x1 := x0 + b.MarkerLength
	y1 := y0 + b.MarkerLength
	return [4]Point3f{
		{X: float32(x0), Y: float32(y0)},
		{X: float32(x1), Y: float32(y0)},
		{X: float32(x1), Y: float32(y1)},
		{X: float32(x0), Y: float32(y1)},
	}, true
}

// CornerObjectPoint returns the board-space position of inner corner id.
// Corner ids run row-major over the (SquaresX-1) x (SquaresY-1) grid.
func (b Board) CornerObjectPoint(id int) (Point3f, bool) {
	if id < 0 || id >= b.CornerCount() {
		return Point3f{}, false
	}
	gx := id%(b.SquaresX-1) + 1
	gy := id/(b.SquaresX-1) + 1
	return Point3f{
		X: float32(float64(gx) * b.SquareLength),
		Y: float32(float64(gy) * b.SquareLength),
	}, true
}

// AdjacentCorners returns the inner corners touching marker id's square.
func (b Board) AdjacentCorners(id int) []int {
	cell, ok := b.MarkerCell(id)
	if !ok {
		return nil
	}
	var ids []int
	for _, g := range []Cell{{cell.X, cell.Y}, {cell.X + 1, cell.Y}, {cell.X + 1, cell.Y + 1}, {cell.X, cell.Y + 1}} {
		if g.X < 1 || g.Y < 1 || g.X > b.SquaresX-1 || g.Y > b.SquaresY-1 {
			continue
		}
		ids = append(ids, (g.Y-1)*(b.SquaresX-1)+(g.X-1))
	}
	return ids
}

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Project applies h to (x, y). It returns false for points mapped to infinity.
func (h Homography) Project(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + h[8]
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}

// MarkerView is a detected marker with the homography mapping the board
// plane to the image around it.
type MarkerView struct {
	ID int
	H  Homography
}

// InterpolateCorners estimates the image positions of the inner corners
// around the detected markers. Each marker projects its adjacent corners
// through its own homography; a corner is kept when at least minMarkers
// markers contributed, and its position is the mean of their projections.
// Results are ordered by corner id.
func (b Board) InterpolateCorners(views []MarkerView, minMarkers int) ([]Point2f, []int) {
	type acc struct {
		x, y float64
		n    int
	}
	sums := make(map[int]*acc)
	for _, v := range views {
		for _, cid := range b.AdjacentCorners(v.ID) {
			obj, _ := b.CornerObjectPoint(cid)
			px, py, ok := v.H.Project(float64(obj.X), float64(obj.Y))
			if !ok {
				continue
			}
			a, found := sums[cid]
			if !found {
				a = &acc{}
				sums[cid] = a
			}
			a.x += px
			a.y += py
			a.n++
		}
	}

	ids := make([]int, 0, len(sums))
	for cid, a := range sums {
		if a.n >= minMarkers {
			ids = append(ids, cid)
		}
	}
	sort.Ints(ids)

	corners := make([]Point2f, len(ids))
	for i, cid := range ids {
		a := sums[cid]
		corners[i] = Point2f{X: float32(a.x / float64(a.n)), Y: float32(a.y / float64(a.n))}
	}
	return corners, ids
}

// ObjectPoints maps corner ids to board-space points.
func (b Board) ObjectPoints(ids []int) ([]Point3f, error) {
	pts := make([]Point3f, len(ids))
	for i, id := range ids {
		p, ok := b.CornerObjectPoint(id)
		if !ok {
			return nil, fmt.Errorf("corner id %d is not on a %dx%d board", id, b.SquaresX, b.SquaresY)
		}
		pts[i] = p
	}
	return pts, nil
}
