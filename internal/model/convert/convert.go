// Package convert provides functions to convert between GORM models and core types
package convert

import (
	"time"

	"github.com/acetools/acemap/internal/geo"
	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// POIToCore converts a GORM POI row to a core.PointOfInterest.
func POIToCore(p model.POI) core.PointOfInterest {
	return core.PointOfInterest{
		Name:       p.Name,
		LocationID: core.LocationID(p.ObjCellID),
		Origin:     core.LocalPosition{X: p.OriginX, Y: p.OriginY, Z: p.OriginZ},
	}
}

// CoreToPOI converts a core.PointOfInterest to a GORM POI row.
func CoreToPOI(p core.PointOfInterest) model.POI {
	return model.POI{
		Name:      p.Name,
		ObjCellID: uint32(p.LocationID),
		OriginX:   p.Origin.X,
		OriginY:   p.Origin.Y,
		OriginZ:   p.Origin.Z,
	}
}

// POIsToCore converts a slice of rows.
func POIsToCore(rows []model.POI) []core.PointOfInterest {
	out := make([]core.PointOfInterest, len(rows))
	for i, r := range rows {
		out[i] = POIToCore(r)
	}
	return out
}

// CoreToPOIs converts a slice of core POIs.
func CoreToPOIs(pois []core.PointOfInterest) []model.POI {
	out := make([]model.POI, len(pois))
	for i, p := range pois {
		out[i] = CoreToPOI(p)
	}
	return out
}

// RecordToSample builds a PositionSample for a decoded feed record.
// raw is the original message payload.
func RecordToSample(r core.Record, topic string, receivedAt time.Time, raw []byte) model.PositionSample {
	sample := model.PositionSample{
		ReceivedAt: receivedAt,
		Topic:      topic,
		LocationID: uint32(r.LocationID),
		X:          r.Position.X,
		Y:          r.Position.Y,
		Z:          r.Position.Z,
		Indoor:     geo.IsIndoor(r.LocationID),
		Label:      geo.Label(r.LocationID, r.Position),
		Global:     geom.NewEmptyPoint(geom.DimXYZ),
		Raw:        datatypes.JSON(raw),
	}
	if g, ok := geo.ResolveRecord(r).Get(); ok {
		sample.Global = geo.GlobalPoint(g)
	}
	return sample
}
