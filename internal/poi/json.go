package poi

import (
	"bytes"
	"fmt"
	"io"

	"github.com/acetools/acemap/pkg/core"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonPOI uses the ace_world column names.
type jsonPOI struct {
	Name      string  `json:"name"`
	ObjCellID uint32  `json:"obj_Cell_Id"`
	OriginX   float64 `json:"origin_X"`
	OriginY   float64 `json:"origin_Y"`
	OriginZ   float64 `json:"origin_Z"`
}

type jsonFile struct {
	POIs []jsonPOI `json:"pois"`
}

// LoadJSON reads either a {"pois": [...]} document or the bare array
// written by WriteJSON. Indoor POIs are kept; callers filter with
// FilterOutdoor or NewIndex.
func LoadJSON(r io.Reader) ([]core.PointOfInterest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pois json: %w", err)
	}

	var f jsonFile
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		err = json.Unmarshal(data, &f.POIs)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode pois json: %w", err)
	}

	out := make([]core.PointOfInterest, len(f.POIs))
	for i, p := range f.POIs {
		out[i] = core.PointOfInterest{
			Name:       p.Name,
			LocationID: core.LocationID(p.ObjCellID),
			Origin:     core.LocalPosition{X: p.OriginX, Y: p.OriginY, Z: p.OriginZ},
		}
	}
	return out, nil
}

// WriteJSON writes pois as a bare JSON array, the outdoor_pois.json layout.
// LoadJSON reads it back.
func WriteJSON(w io.Writer, pois []core.PointOfInterest) error {
	out := make([]jsonPOI, len(pois))
	for i, p := range pois {
		out[i] = jsonPOI{
			Name:      p.Name,
			ObjCellID: uint32(p.LocationID),
			OriginX:   p.Origin.X,
			OriginY:   p.Origin.Y,
			OriginZ:   p.Origin.Z,
		}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode pois json: %w", err)
	}
	return nil
}
