package poidb

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/acetools/acemap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var samplePOIs = []core.PointOfInterest{
	{Name: "Holtburg", LocationID: 0xA9B40019, Origin: core.LocalPosition{X: 84, Y: 7.1, Z: 94.005}},
	{Name: "Yaraq", LocationID: 0x7D64000D, Origin: core.LocalPosition{X: 48.3, Y: -12.5, Z: 0}},
}

func TestMarshalUnmarshal(t *testing.T) {
	got, err := Unmarshal(Marshal(samplePOIs))
	require.NoError(t, err)
	assert.Equal(t, samplePOIs, got)
}

func TestMarshal_Empty(t *testing.T) {
	assert.Empty(t, Marshal(nil))

	got, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarshal_WireLayout(t *testing.T) {
	b := Marshal([]core.PointOfInterest{{Name: "A", LocationID: 1}})

	// outer: tag(1, bytes) len body
	// body: tag(1, bytes) 1 'A' tag(2, varint) 1
	want := []byte{0x0a, 0x05, 0x0a, 0x01, 'A', 0x10, 0x01}
	assert.Equal(t, want, b)
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	var poi []byte
	poi = protowire.AppendTag(poi, fieldName, protowire.BytesType)
	poi = protowire.AppendString(poi, "Cragstone")
	poi = protowire.AppendTag(poi, 9, protowire.VarintType)
	poi = protowire.AppendVarint(poi, 42)
	poi = protowire.AppendTag(poi, fieldOriginY, protowire.Fixed64Type)
	poi = protowire.AppendFixed64(poi, math.Float64bits(3.5))

	var b []byte
	b = protowire.AppendTag(b, 7, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = protowire.AppendTag(b, fieldPOIs, protowire.BytesType)
	b = protowire.AppendBytes(b, poi)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cragstone", got[0].Name)
	assert.Equal(t, 3.5, got[0].Origin.Y)
}

func TestUnmarshal_Truncated(t *testing.T) {
	b := Marshal(samplePOIs)

	_, err := Unmarshal(b[:len(b)-3])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Unmarshal([]byte{0x0a, 0x03, 0x0a, 0x09})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pois_db.binpb")

	require.NoError(t, WriteFile(path, samplePOIs))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, samplePOIs, got)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.binpb"))
	assert.Error(t, err)
}
