// Package poidb reads and writes the POIsDB binary snapshot.
//
// The layout is the protobuf encoding of
//
//	message POI {
//	  string name = 1;
//	  uint32 obj_cell_id = 2;
//	  double origin_x = 3;
//	  double origin_y = 4;
//	  double origin_z = 5;
//	}
//	message POIsDB { repeated POI pois = 1; }
//
// so snapshots stay readable by any protobuf runtime.
package poidb

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/acetools/acemap/pkg/core"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldPOIs protowire.Number = 1

	fieldName      protowire.Number = 1
	fieldObjCellID protowire.Number = 2
	fieldOriginX   protowire.Number = 3
	fieldOriginY   protowire.Number = 4
	fieldOriginZ   protowire.Number = 5
)

// ErrTruncated is returned when a snapshot ends mid-field.
var ErrTruncated = errors.New("poidb: truncated or malformed snapshot")

// Marshal encodes pois as a POIsDB message.
func Marshal(pois []core.PointOfInterest) []byte {
	var b []byte
	for _, p := range pois {
		b = protowire.AppendTag(b, fieldPOIs, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPOI(p))
	}
	return b
}

// proto3 omits default scalar values.
func marshalPOI(p core.PointOfInterest) []byte {
	var b []byte
	if p.Name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, p.Name)
	}
	if p.LocationID != 0 {
		b = protowire.AppendTag(b, fieldObjCellID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.LocationID))
	}
	for _, f := range []struct {
		num protowire.Number
		v   float64
	}{
		{fieldOriginX, p.Origin.X},
		{fieldOriginY, p.Origin.Y},
		{fieldOriginZ, p.Origin.Z},
	} {
		if math.Float64bits(f.v) == 0 {
			continue
		}
		b = protowire.AppendTag(b, f.num, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f.v))
	}
	return b
}

// Unmarshal decodes a POIsDB message. Unknown fields are skipped.
func Unmarshal(b []byte) ([]core.PointOfInterest, error) {
	var pois []core.PointOfInterest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		if num == fieldPOIs && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
			}
			p, err := unmarshalPOI(raw)
			if err != nil {
				return nil, err
			}
			pois = append(pois, p)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return pois, nil
}

func unmarshalPOI(b []byte) (core.PointOfInterest, error) {
	var p core.PointOfInterest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return p, fmt.Errorf("%w: name: %v", ErrTruncated, protowire.ParseError(n))
			}
			p.Name = s
			b = b[n:]
		case num == fieldObjCellID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("%w: obj_cell_id: %v", ErrTruncated, protowire.ParseError(n))
			}
			// uint32 fields keep the low 32 bits
			p.LocationID = core.LocationID(uint32(v))
			b = b[n:]
		case (num == fieldOriginX || num == fieldOriginY || num == fieldOriginZ) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return p, fmt.Errorf("%w: origin: %v", ErrTruncated, protowire.ParseError(n))
			}
			f := math.Float64frombits(v)
			switch num {
			case fieldOriginX:
				p.Origin.X = f
			case fieldOriginY:
				p.Origin.Y = f
			default:
				p.Origin.Z = f
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

// WriteFile writes pois to path as a POIsDB snapshot.
func WriteFile(path string, pois []core.PointOfInterest) error {
	if err := os.WriteFile(path, Marshal(pois), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a POIsDB snapshot from path.
func ReadFile(path string) ([]core.PointOfInterest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pois, err := Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pois, nil
}
