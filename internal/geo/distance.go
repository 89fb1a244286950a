package geo

import (
	"math"

	"github.com/acetools/acemap/pkg/core"
)

// Distance returns the straight-line distance between two landblock-relative
// positions.
//
// Points in the same cell are compared directly. Otherwise the cell offset is
// folded into the X/Y deltas, which gives the same answer as comparing global
// positions without building them. Indoor status is not checked: callers
// must drop indoor points first or the result has no spatial meaning.
func Distance(id1 core.LocationID, p1 core.LocalPosition, id2 core.LocationID, p2 core.LocalPosition) float64 {
	x1, y1 := CellCoords(id1)
	x2, y2 := CellCoords(id2)

	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	dz := p1.Z - p2.Z

	if x1 != x2 || y1 != y2 {
		dx += float64(int(x1)-int(x2)) * BlockLength
		dy += float64(int(y1)-int(y2)) * BlockLength
	}

	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RecordDistance is Distance for two records.
func RecordDistance(a, b core.Record) float64 {
	return Distance(a.LocationID, a.Position, b.LocationID, b.Position)
}
