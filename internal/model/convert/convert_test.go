package convert

import (
	"testing"
	"time"

	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPOIRoundTrip(t *testing.T) {
	row := model.POI{Name: "Zaikhal", ObjCellID: 0x80900013, OriginX: 51.2, OriginY: 66.7, OriginZ: 120}

	p := POIToCore(row)
	assert.Equal(t, "Zaikhal", p.Name)
	assert.Equal(t, core.LocationID(0x80900013), p.LocationID)
	assert.Equal(t, core.LocalPosition{X: 51.2, Y: 66.7, Z: 120}, p.Origin)

	assert.Equal(t, row, CoreToPOI(p))
}

func TestSliceConversions(t *testing.T) {
	rows := []model.POI{{Name: "a", ObjCellID: 1}, {Name: "b", ObjCellID: 2}}

	pois := POIsToCore(rows)
	require.Len(t, pois, 2)
	assert.Equal(t, "b", pois[1].Name)
	assert.Equal(t, rows, CoreToPOIs(pois))

	assert.Empty(t, POIsToCore(nil))
}

func TestRecordToSample_Outdoor(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := core.Record{LocationID: 0x5B9C0000, Position: core.LocalPosition{X: 104.737, Y: 107.132004, Z: 14.005}}

	s := RecordToSample(r, "positions", now, []byte(`{"locationId":1536950272}`))

	assert.Equal(t, now, s.ReceivedAt)
	assert.Equal(t, "positions", s.Topic)
	assert.Equal(t, uint32(0x5B9C0000), s.LocationID)
	assert.False(t, s.Indoor)
	assert.Equal(t, "23.2N, 28.7W", s.Label)
	assert.False(t, s.Global.IsEmpty())
	coords, ok := s.Global.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 91*192+104.737, coords.X, 1e-9)
	assert.JSONEq(t, `{"locationId":1536950272}`, string(s.Raw))
}

func TestRecordToSample_Indoor(t *testing.T) {
	r := core.Record{LocationID: 0xABB30102, Position: core.LocalPosition{X: 1, Y: 2, Z: 3}}

	s := RecordToSample(r, "positions", time.Now(), []byte(`{}`))

	assert.True(t, s.Indoor)
	assert.Equal(t, "inside", s.Label)
	assert.True(t, s.Global.IsEmpty())
}
