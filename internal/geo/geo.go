package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/acetools/acemap/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Parsing helpers for positions arriving as text (CLI arguments, POI dumps).
// Values are validated here so that only finite numbers reach the geometry functions.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrInvalidLocationID is returned when a landblock id cannot be parsed into 32 bits
var ErrInvalidLocationID = errors.New("invalid location id provided")

// ParseLocationID parses a landblock id written in decimal, 0x-prefixed hex,
// or as an integral float ("2880634900.0", as some exports write it).
func ParseLocationID(s string) (core.LocationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidLocationID
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, ErrInvalidLocationID
		}
		return core.LocationID(v), nil
	}

	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		return core.LocationID(v), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, ErrInvalidLocationID
	}
	return core.LocationID(uint32(f)), nil
}

// ParseCoordinate parses one finite coordinate value.
func ParseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidCoordinates
	}
	return v, nil
}

// LocalPositionFromString parses "x,y" or "x,y,z" into a LocalPosition.
// A missing z is zero.
func LocalPositionFromString(coords string) (core.LocalPosition, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 || len(coordsSplit) > 3 {
		return core.LocalPosition{}, ErrInvalidCoordinates
	}
	x, err := ParseCoordinate(coordsSplit[0])
	if err != nil {
		return core.LocalPosition{}, err
	}
	y, err := ParseCoordinate(coordsSplit[1])
	if err != nil {
		return core.LocalPosition{}, err
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = ParseCoordinate(coordsSplit[2])
		if err != nil {
			return core.LocalPosition{}, err
		}
	}
	return core.LocalPosition{X: x, Y: y, Z: z}, nil
}

// LocalPositionFromArgs parses three separate x, y, z arguments.
func LocalPositionFromArgs(x, y, z string) (core.LocalPosition, error) {
	return LocalPositionFromString(x + "," + y + "," + z)
}

// IsFinite reports whether every component of p is a finite number.
func IsFinite(p core.LocalPosition) bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// GlobalPoint converts a global position into an XYZ point. Non-finite
// positions give an empty XYZ point.
func GlobalPoint(pos core.GlobalPosition) geom.Point {
	pt, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: pos.X, Y: pos.Y},
			Z:    pos.Z,
			Type: geom.DimXYZ,
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return pt
}

// GlobalPointWKT renders the global position of a record as WKT,
// or IndoorLabel when the record has none.
func GlobalPointWKT(id core.LocationID, local core.LocalPosition) string {
	g, ok := Resolve(id, local).Get()
	if !ok {
		return IndoorLabel
	}
	return GlobalPoint(g).AsText()
}
