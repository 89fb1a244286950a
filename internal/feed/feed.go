// Package feed delivers raw position records from a message source and
// decodes them into core records.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acetools/acemap/internal/geo"
	"github.com/acetools/acemap/pkg/core"
	jsoniter "github.com/json-iterator/go"
)

// Message is one payload received from a source.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time
}

// Source produces messages until its context is cancelled or it fails.
type Source interface {
	// Run blocks, calling handle for every message. It returns nil when
	// ctx is cancelled or Close is called.
	Run(ctx context.Context, handle func(Message)) error
	Close() error
}

// ErrMalformedRecord is returned by DecodeRecord for payloads that are not
// a usable position record.
var ErrMalformedRecord = errors.New("malformed record")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireRecord accepts both the feed names and the ace_world column names.
type wireRecord struct {
	LocationID *jsoniter.Number `json:"locationId"`
	ObjCellID  *jsoniter.Number `json:"obj_Cell_Id"`
	X          *float64         `json:"x"`
	Y          *float64         `json:"y"`
	Z          *float64         `json:"z"`
	OriginX    *float64         `json:"origin_X"`
	OriginY    *float64         `json:"origin_Y"`
	OriginZ    *float64         `json:"origin_Z"`
}

func pick(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// DecodeRecord parses a JSON position record.
func DecodeRecord(payload []byte) (core.Record, error) {
	var w wireRecord
	if err := json.Unmarshal(payload, &w); err != nil {
		return core.Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	idNum := w.LocationID
	if idNum == nil {
		idNum = w.ObjCellID
	}
	if idNum == nil {
		return core.Record{}, fmt.Errorf("%w: missing locationId", ErrMalformedRecord)
	}
	id, err := geo.ParseLocationID(idNum.String())
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: locationId %s: %v", ErrMalformedRecord, idNum.String(), err)
	}

	x, y, z := pick(w.X, w.OriginX), pick(w.Y, w.OriginY), pick(w.Z, w.OriginZ)
	if x == nil || y == nil || z == nil {
		return core.Record{}, fmt.Errorf("%w: missing coordinate", ErrMalformedRecord)
	}

	pos := core.LocalPosition{X: *x, Y: *y, Z: *z}
	if !geo.IsFinite(pos) {
		return core.Record{}, fmt.Errorf("%w: non-finite coordinate", ErrMalformedRecord)
	}
	return core.Record{LocationID: id, Position: pos}, nil
}
