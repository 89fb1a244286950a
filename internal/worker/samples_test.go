package worker

import (
	"context"
	"testing"
	"time"

	"github.com/acetools/acemap/internal/database"
	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/internal/model/convert"
	"github.com/acetools/acemap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSampleDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.PositionSample{}))
	return db
}

func sample(id core.LocationID) model.PositionSample {
	r := core.Record{LocationID: id, Position: core.LocalPosition{X: 10, Y: 20, Z: 30}}
	return convert.RecordToSample(r, "positions", time.Unix(1700000000, 0).UTC(), []byte(`{"k":1}`))
}

func TestSampleWriter_Flush(t *testing.T) {
	db := newSampleDB(t)
	w := NewSampleWriter(db, 0, nil)

	require.NoError(t, w.Add(sample(0x5B9C0000)))
	require.NoError(t, w.Add(sample(0xABB30102)))
	assert.Equal(t, 2, w.Pending())

	n, err := w.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, w.Pending())

	var rows []model.PositionSample
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, uint32(0x5B9C0000), rows[0].LocationID)
	assert.False(t, rows[0].Indoor)
	assert.True(t, rows[1].Indoor)
	assert.Equal(t, "inside", rows[1].Label)
	assert.JSONEq(t, `{"k":1}`, string(rows[0].Raw))

	n, err = w.Flush()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSampleWriter_FailedFlushKeepsSamples(t *testing.T) {
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)
	w := NewSampleWriter(db, 0, nil)

	require.NoError(t, w.Add(sample(0x5B9C0000)))
	require.NoError(t, w.Add(sample(0xABB30102)))

	// no table yet
	n, err := w.Flush()
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, w.Pending())

	require.NoError(t, w.Add(sample(0x12340000)))
	require.NoError(t, db.AutoMigrate(&model.PositionSample{}))

	n, err = w.Flush()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var rows []model.PositionSample
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, uint32(0x5B9C0000), rows[0].LocationID)
	assert.Equal(t, uint32(0x12340000), rows[2].LocationID)
}

func TestSampleWriter_AddRespectsLimit(t *testing.T) {
	w := NewSampleWriter(nil, 1, nil)

	require.NoError(t, w.Add(sample(1)))
	assert.ErrorIs(t, w.Add(sample(2)), ErrSampleQueueFull)
}

func TestSampleWriter_RunFlushesOnCancel(t *testing.T) {
	db := newSampleDB(t)
	w := NewSampleWriter(db, 0, nil)
	require.NoError(t, w.Add(sample(0x5B9C0000)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	var count int64
	require.NoError(t, db.Model(&model.PositionSample{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
