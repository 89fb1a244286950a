package geo

import "github.com/acetools/acemap/pkg/core"

// Resolve maps a landblock-relative position into the global frame.
// Indoor ids resolve to None: their local coordinates are only meaningful
// inside the cell. Z is carried through unchanged since landblocks only
// partition the horizontal plane.
func Resolve(id core.LocationID, local core.LocalPosition) core.Option[core.GlobalPosition] {
	if IsIndoor(id) {
		return core.None[core.GlobalPosition]()
	}

	cellX, cellY := CellCoords(id)
	return core.Some(core.GlobalPosition{
		X: float64(cellX)*BlockLength + local.X,
		Y: float64(cellY)*BlockLength + local.Y,
		Z: local.Z,
	})
}

// ResolveRecord is Resolve for a Record.
func ResolveRecord(r core.Record) core.Option[core.GlobalPosition] {
	return Resolve(r.LocationID, r.Position)
}
