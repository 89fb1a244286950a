// Package etl pulls outdoor points of interest out of the ace_world
// database and writes them to the POIsDB snapshot and the SQLite POI store.
package etl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/acetools/acemap/internal/database"
	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/internal/model/convert"
	"github.com/acetools/acemap/internal/poi"
	"github.com/acetools/acemap/internal/poidb"
	"github.com/acetools/acemap/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OutdoorPOIsQuery joins named POIs to their spawn positions, keeping only
// outdoor cells.
const OutdoorPOIsQuery = `SELECT
	poi.name AS name,
	wpp.obj_Cell_Id AS obj_cell_id,
	wpp.origin_X AS origin_x,
	wpp.origin_Y AS origin_y,
	wpp.origin_Z AS origin_z
FROM points_of_interest poi
JOIN weenie_properties_position wpp ON poi.weenie_Class_Id = wpp.object_Id
WHERE (wpp.obj_Cell_Id & 0xFFFF) < 0x100`

// Deps holds everything Run needs.
type Deps struct {
	World        *gorm.DB
	ProtobufPath string
	SQLitePath   string
	JSONPath     string // optional outdoor_pois.json
	Logger       zerolog.Logger
}

// Result reports what Run wrote.
type Result struct {
	Extracted int
	Snapshot  int
	Stored    int64
}

// Extract runs OutdoorPOIsQuery against the world database.
func Extract(ctx context.Context, world *gorm.DB) ([]core.PointOfInterest, error) {
	var rows []model.POI
	if err := world.WithContext(ctx).Raw(OutdoorPOIsQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query pois: %w", err)
	}
	return convert.POIsToCore(rows), nil
}

// Run extracts POIs, writes and verifies the protobuf snapshot, then
// rebuilds the SQLite store from scratch and verifies its row count.
func Run(ctx context.Context, d Deps) (Result, error) {
	var res Result
	log := d.Logger

	pois, err := Extract(ctx, d.World)
	if err != nil {
		return res, err
	}
	res.Extracted = len(pois)
	log.Info().Int("count", len(pois)).Msg("Found POIs in the database")

	if err := poidb.WriteFile(d.ProtobufPath, pois); err != nil {
		return res, err
	}
	log.Info().Int("count", len(pois)).Str("path", d.ProtobufPath).Msg("Wrote POIs to protobuf file")

	check, err := poidb.ReadFile(d.ProtobufPath)
	if err != nil {
		return res, err
	}
	res.Snapshot = len(check)
	log.Info().Int("count", len(check)).Msg("Read POIs from protobuf file")
	if len(check) != len(pois) {
		return res, fmt.Errorf("snapshot count mismatch: wrote %d, read %d", len(pois), len(check))
	}

	if d.JSONPath != "" {
		if err := writeJSON(d.JSONPath, pois); err != nil {
			return res, err
		}
		log.Info().Str("path", d.JSONPath).Msg("Wrote POIs to JSON file")
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	mem, err := database.GetSqliteDB("")
	if err != nil {
		return res, fmt.Errorf("open in-memory sqlite: %w", err)
	}
	if sqlDB, err := mem.DB(); err == nil {
		defer sqlDB.Close()
	}
	staging := poi.NewSQLStore(mem)
	if err := staging.Migrate(); err != nil {
		return res, err
	}
	if err := staging.Replace(check); err != nil {
		return res, err
	}

	start := time.Now()
	if err := database.DumpMemoryDBToDisk(mem, d.SQLitePath); err != nil {
		return res, err
	}
	log.Info().Int("count", len(check)).Str("path", d.SQLitePath).Dur("duration", time.Since(start)).Msg("Wrote POIs to SQLite")

	db, err := database.GetSqliteDB(d.SQLitePath)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", d.SQLitePath, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	n, err := poi.NewSQLStore(db).Count()
	if err != nil {
		return res, err
	}
	res.Stored = n
	log.Info().Int64("count", n).Msg("Read POIs from SQLite")
	if n != int64(len(pois)) {
		return res, fmt.Errorf("sqlite count mismatch: wrote %d, read %d", len(pois), n)
	}

	return res, nil
}

func writeJSON(path string, pois []core.PointOfInterest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return poi.WriteJSON(f, pois)
}
