// Package poi holds the outdoor point-of-interest set and its loaders.
package poi

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/acetools/acemap/internal/geo"
	"github.com/acetools/acemap/pkg/core"
)

var (
	// ErrNotFound is returned when a name is not in the index.
	ErrNotFound = errors.New("poi not found")
	// ErrIndoor is returned when a nearest-POI query starts indoors.
	ErrIndoor = errors.New("position is indoors")
)

// FilterOutdoor returns the POIs whose location is not indoors, in input order.
func FilterOutdoor(pois []core.PointOfInterest) []core.PointOfInterest {
	out := make([]core.PointOfInterest, 0, len(pois))
	for _, p := range pois {
		if !geo.IsIndoor(p.LocationID) {
			out = append(out, p)
		}
	}
	return out
}

// Index maps POI names to outdoor POIs. A later POI with the same name
// replaces an earlier one. Index is read-only after construction.
type Index struct {
	byName map[string]core.PointOfInterest
	names  []string
}

// NewIndex builds an Index from pois, dropping indoor entries.
func NewIndex(pois []core.PointOfInterest) *Index {
	idx := &Index{byName: make(map[string]core.PointOfInterest, len(pois))}
	for _, p := range FilterOutdoor(pois) {
		idx.byName[p.Name] = p
	}
	idx.names = make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		idx.names = append(idx.names, name)
	}
	sort.Strings(idx.names)
	return idx
}

// Len returns the number of POIs in the index.
func (idx *Index) Len() int {
	return len(idx.names)
}

// Names returns the POI names in sorted order.
func (idx *Index) Names() []string {
	out := make([]string, len(idx.names))
	copy(out, idx.names)
	return out
}

// Get looks up a POI by name.
func (idx *Index) Get(name string) (core.PointOfInterest, error) {
	p, ok := idx.byName[name]
	if !ok {
		return core.PointOfInterest{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Distance returns the distance between two named POIs.
func (idx *Index) Distance(a, b string) (float64, error) {
	pa, err := idx.Get(a)
	if err != nil {
		return 0, err
	}
	pb, err := idx.Get(b)
	if err != nil {
		return 0, err
	}
	return geo.Distance(pa.LocationID, pa.Origin, pb.LocationID, pb.Origin), nil
}

// Label returns the map label of a named POI.
func (idx *Index) Label(name string) (string, error) {
	p, err := idx.Get(name)
	if err != nil {
		return "", err
	}
	return geo.Label(p.LocationID, p.Origin), nil
}

// Nearest returns the POI closest to r and its distance.
// Ties go to the alphabetically first name.
func (idx *Index) Nearest(r core.Record) (core.PointOfInterest, float64, error) {
	if geo.IsIndoor(r.LocationID) {
		return core.PointOfInterest{}, 0, ErrIndoor
	}
	if len(idx.names) == 0 {
		return core.PointOfInterest{}, 0, ErrNotFound
	}

	var best core.PointOfInterest
	bestDist := math.Inf(1)
	for _, name := range idx.names {
		p := idx.byName[name]
		d := geo.RecordDistance(r, p.Record())
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	if math.IsInf(bestDist, 1) {
		return core.PointOfInterest{}, 0, ErrNotFound
	}
	return best, bestDist, nil
}
