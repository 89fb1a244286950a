package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fieldMap(p *influxdb2_write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tagMap(p *influxdb2_write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestServerURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8086", ServerURL(config.InfluxConfig{Protocol: "http", Host: "localhost", Port: "8086"}))
}

func TestPositionPoint_Outdoor(t *testing.T) {
	r := core.Record{LocationID: 0x5B9C0000, Position: core.LocalPosition{X: 104.737, Y: 107.132004, Z: 14.005}}

	p := PositionPoint("positions", r, ts)

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, ts, p.Time())
	assert.Equal(t, map[string]string{"topic": "positions", "landblock": "5B9C", "indoor": "false"}, tagMap(p))

	fields := fieldMap(p)
	assert.Equal(t, "23.2N, 28.7W", fields["label"])
	assert.Equal(t, int64(0x5B9C0000), fields["location_id"])
	assert.InDelta(t, 91*192+104.737, fields["global_x"], 1e-9)
	assert.Contains(t, fields, "map_x")
	assert.Contains(t, fields, "map_y")
}

func TestPositionPoint_Indoor(t *testing.T) {
	r := core.Record{LocationID: 0xABB30102, Position: core.LocalPosition{X: 1, Y: 2, Z: 3}}

	p := PositionPoint("positions", r, ts)

	assert.Equal(t, "true", tagMap(p)["indoor"])
	fields := fieldMap(p)
	assert.Equal(t, "inside", fields["label"])
	assert.NotContains(t, fields, "global_x")
	assert.NotContains(t, fields, "map_x")
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Bucket:     "positions",
		BackupPath: path,
	})

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	r := core.Record{LocationID: 0x5B9C0000, Position: core.LocalPosition{X: 1, Y: 2, Z: 3}}
	require.NoError(t, m.WriteRecord("positions", r, ts))
	require.NoError(t, m.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "position,")
	assert.Contains(t, lines[0], "landblock=5B9C")
	assert.Contains(t, lines[0], "location_id=1536950272i")
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(PositionPoint("t", core.Record{}, ts))
	assert.Error(t, err)
}

func TestWritePoint_ValidWithoutWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Bucket: "positions"})
	m.IsValid = true
	err := m.WritePoint(PositionPoint("t", core.Record{}, ts))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positions")
}

func TestOpenBackup_AppendsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")

	for i := 0; i < 2; i++ {
		m := NewManager(zerolog.Nop(), config.InfluxConfig{BackupPath: path})
		require.NoError(t, m.OpenBackup())
		require.NoError(t, m.OpenBackup())
		require.NoError(t, m.WritePoint(PositionPoint("t", core.Record{LocationID: 0x01010001}, ts)))
		require.NoError(t, m.Close())
	}

	assert.Len(t, readBackup(t, path), 2)
}
