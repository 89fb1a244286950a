package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&POI{},
	&PositionSample{},
}

// POI is one outdoor point of interest. The column layout matches the
// pois table written by the original extract tooling, so existing
// pois.db files open unchanged.
type POI struct {
	Name      string  `json:"name" gorm:"column:name;index"`
	ObjCellID uint32  `json:"obj_cell_id" gorm:"column:obj_cell_id"`
	OriginX   float64 `json:"origin_x" gorm:"column:origin_x"`
	OriginY   float64 `json:"origin_y" gorm:"column:origin_y"`
	OriginZ   float64 `json:"origin_z" gorm:"column:origin_z"`
}

func (*POI) TableName() string {
	return "pois"
}

// PositionSample is a feed record kept for later inspection.
// Global is an empty point for indoor records.
type PositionSample struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	ReceivedAt time.Time      `json:"receivedAt" gorm:"index"`
	Topic      string         `json:"topic" gorm:"size:255"`
	LocationID uint32         `json:"locationId" gorm:"index"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Z          float64        `json:"z"`
	Indoor     bool           `json:"indoor"`
	Label      string         `json:"label" gorm:"size:32"`
	Global     geom.Point     `json:"global"`
	Raw        datatypes.JSON `json:"raw"`
}

func (*PositionSample) TableName() string {
	return "position_samples"
}
