package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOption_ZeroValueIsNone(t *testing.T) {
	var o Option[GlobalPosition]

	assert.True(t, o.IsNone())
	assert.False(t, o.IsSome())
	v, ok := o.Get()
	assert.False(t, ok)
	assert.Equal(t, GlobalPosition{}, v)
}

func TestOption_Some(t *testing.T) {
	o := Some(MapCoordinate{X: 1.5, Y: -2})

	assert.True(t, o.IsSome())
	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, MapCoordinate{X: 1.5, Y: -2}, v)
}

func TestPointOfInterest_Record(t *testing.T) {
	p := PointOfInterest{
		Name:       "Shoushi",
		LocationID: 0xDE510019,
		Origin:     LocalPosition{X: 1, Y: 2, Z: 3},
	}

	r := p.Record()
	assert.Equal(t, LocationID(0xDE510019), r.LocationID)
	assert.Equal(t, LocalPosition{X: 1, Y: 2, Z: 3}, r.Position)
}
