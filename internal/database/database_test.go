package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "acemap"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=acemap sslmode=disable", dsn)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(config.DBConfig{Host: "127.0.0.1", Port: "3306", Username: "acemu", Password: "secret", Database: "ace_world"})
	assert.Equal(t, "acemu:secret@tcp(127.0.0.1:3306)/ace_world?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}

func TestGetSqliteDB_MemoryIsolated(t *testing.T) {
	a, err := GetSqliteDB("")
	require.NoError(t, err)
	b, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, a.AutoMigrate(&model.POI{}))
	require.NoError(t, a.Create(&model.POI{Name: "Holtburg", ObjCellID: 0xA9B40019}).Error)

	assert.False(t, b.Migrator().HasTable(&model.POI{}))
}

func TestManager_ConnectSetupSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pois.db")
	m := NewManager(zerolog.Nop())

	require.NoError(t, m.Connect(config.StoreConfig{Type: "sqlite", SQLitePath: path}, config.DBConfig{}))
	t.Cleanup(func() { _ = m.Close() })
	assert.True(t, m.IsValid)
	assert.Equal(t, path, m.SqliteFilePath)

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable("pois"))
	assert.True(t, m.DB.Migrator().HasTable("position_samples"))
}

func TestManager_ConnectUnknownType(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Connect(config.StoreConfig{Type: "oracle"}, config.DBConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store type")
	assert.False(t, m.IsValid)
}

func TestManager_SetupWithoutConnect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}

func TestManager_SetupRefusesUnvalidatedDB(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	m := NewManager(zerolog.Nop())
	m.DB = db

	assert.Error(t, m.Setup())
	assert.False(t, db.Migrator().HasTable("pois"))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.POI{}))
	require.NoError(t, db.Create(&model.POI{Name: "Arwic", ObjCellID: 0xC6A90009}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := GetSqliteDB(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.POI{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk_EmptyPath(t *testing.T) {
	assert.Error(t, DumpMemoryDBToDisk(nil, ""))
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")
	assert.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, RemoveIfExists(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
