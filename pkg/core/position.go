// pkg/core/position.go
package core

// LocationID is the packed 32-bit landblock id carried by every world position.
// Bits 24-31 hold the cell X, bits 16-23 the cell Y, and the low 16 bits select
// the environment (>= 0x100 is an indoor or instanced cell).
type LocationID uint32

// LocalPosition is a position relative to the origin of one landblock.
type LocalPosition struct {
	X float64
	Y float64
	Z float64
}

// GlobalPosition is a position in the continuous frame spanning all outdoor landblocks.
type GlobalPosition struct {
	X float64
	Y float64
	Z float64
}

// MapCoordinate is the origin-centred pair shown to players as N/S and E/W.
type MapCoordinate struct {
	X float64
	Y float64
}
