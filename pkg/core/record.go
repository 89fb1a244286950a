// pkg/core/record.go
package core

// Record is a single position report from any upstream source
// (feed message, POI row, command line).
type Record struct {
	LocationID LocationID
	Position   LocalPosition
}

// PointOfInterest is a named world location.
type PointOfInterest struct {
	Name       string
	LocationID LocationID
	Origin     LocalPosition
}

// Record returns the POI's position as a plain Record.
func (p PointOfInterest) Record() Record {
	return Record{LocationID: p.LocationID, Position: p.Origin}
}
