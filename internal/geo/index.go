package geo

import (
	"cmp"
	"slices"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Index answers which county contains a WGS-84 point.
type Index struct {
	entries []indexEntry
}

type indexEntry struct {
	name  string
	geom  orb.MultiPolygon
	bound orb.Bound
}

// NewIndex builds an index over the counties. Records sharing a name are
// merged into one county.
func NewIndex(counties []domain.County) *Index {
	byName := make(map[string]orb.MultiPolygon)
	for _, c := range counties {
		byName[c.Name] = append(byName[c.Name], c.Geometry...)
	}

	ix := &Index{entries: make([]indexEntry, 0, len(byName))}
	for name, geom := range byName {
		if len(geom) == 0 {
			continue
		}
		ix.entries = append(ix.entries, indexEntry{name: name, geom: geom, bound: geom.Bound()})
	}
	slices.SortFunc(ix.entries, func(a, b indexEntry) int { return cmp.Compare(a.name, b.name) })
	return ix
}

// Len returns the number of indexed counties.
func (ix *Index) Len() int { return len(ix.entries) }

// Names returns the indexed county names in sorted order.
func (ix *Index) Names() []string {
	names := make([]string, len(ix.entries))
	for i, e := range ix.entries {
		names[i] = e.name
	}
	return names
}

// Locate returns the county containing p. A point on a shared border goes to
// the alphabetically first county.
func (ix *Index) Locate(p orb.Point) (string, bool) {
	for _, e := range ix.entries {
		if !e.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(e.geom, p) {
			return e.name, true
		}
	}
	return "", false
}
