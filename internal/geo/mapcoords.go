package geo

import (
	"fmt"
	"math"

	"github.com/acetools/acemap/pkg/core"
)

// Map display constants.
const (
	// MapScale is the number of local units per displayed map unit.
	MapScale = 240.0
	// MapOrigin shifts the displayed map so that 0,0 is the world centre.
	MapOrigin = 102.0

	// labelBias is subtracted from each magnitude before printing. The
	// in-game coordinate display truncates toward the lower bound and labels
	// must match it digit for digit.
	labelBias = 0.05

	// IndoorLabel is printed for positions that have no map coordinate.
	IndoorLabel = "inside"
)

// ToMapCoordinate rescales a global position into display map units.
func ToMapCoordinate(pos core.Option[core.GlobalPosition]) core.Option[core.MapCoordinate] {
	g, ok := pos.Get()
	if !ok {
		return core.None[core.MapCoordinate]()
	}
	return core.Some(core.MapCoordinate{
		X: g.X/MapScale - MapOrigin,
		Y: g.Y/MapScale - MapOrigin,
	})
}

// FromMapCoordinate returns the global X and Y for a map coordinate.
func FromMapCoordinate(c core.MapCoordinate) (x, y float64) {
	return (c.X + MapOrigin) * MapScale, (c.Y + MapOrigin) * MapScale
}

// FormatMapCoordinate renders a map coordinate as "12.3N, 45.6W",
// or IndoorLabel when there is none.
func FormatMapCoordinate(coord core.Option[core.MapCoordinate]) string {
	c, ok := coord.Get()
	if !ok {
		return IndoorLabel
	}

	northSouth := "N"
	if c.Y < 0 {
		northSouth = "S"
	}
	eastWest := "E"
	if c.X < 0 {
		eastWest = "W"
	}

	return fmt.Sprintf("%.1f%s, %.1f%s",
		math.Abs(c.Y)-labelBias, northSouth,
		math.Abs(c.X)-labelBias, eastWest,
	)
}

// Label returns the map label for a landblock-relative position.
func Label(id core.LocationID, local core.LocalPosition) string {
	return FormatMapCoordinate(ToMapCoordinate(Resolve(id, local)))
}
