package geo

import "github.com/acetools/acemap/pkg/core"

// World grid constants.
const (
	// BlockLength is the edge length of one landblock in local units.
	BlockLength = 192.0

	// indoorThreshold is the lowest environment selector that marks a cell
	// as indoor or instanced.
	indoorThreshold = 0x100
)

// IsIndoor reports whether id addresses an indoor or instanced cell.
// Such cells have no place in the outdoor grid.
func IsIndoor(id core.LocationID) bool {
	return uint32(id)&0xFFFF >= indoorThreshold
}

// CellCoords returns the landblock grid coordinates packed into id.
func CellCoords(id core.LocationID) (x, y uint8) {
	return uint8(uint32(id) >> 24 & 0xFF), uint8(uint32(id) >> 16 & 0xFF)
}
