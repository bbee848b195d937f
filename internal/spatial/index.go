// Package spatial assigns trip endpoints and clusters to containing ZIP polygons.
package spatial

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

type entry struct {
	code  string
	bound orb.Bound
	poly  orb.MultiPolygon
}

// Index answers point-in-polygon queries over a set of ZIP polygons.
// Entries are kept sorted by ZIP code so overlapping polygons resolve to the lowest code.
type Index struct {
	entries []entry
}

// NewIndex builds an index over zips. ZIPs without geometry are ignored.
func NewIndex(zips []model.ZIP) *Index {
	idx := &Index{entries: make([]entry, 0, len(zips))}
	for _, z := range zips {
		mp := ToOrb(z.Geom)
		if len(mp) == 0 {
			continue
		}
		idx.entries = append(idx.entries, entry{code: z.Code, bound: mp.Bound(), poly: mp})
	}
	sort.SliceStable(idx.entries, func(i, j int) bool {
		return idx.entries[i].code < idx.entries[j].code
	})
	return idx
}

// Len returns the number of indexed polygons.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Lookup returns the ZIP code whose polygon contains c. Points on a polygon
// edge count as inside, so a point on a shared edge goes to the lower code.
func (idx *Index) Lookup(c model.Coord) (string, bool) {
	p := orb.Point{c.Lon, c.Lat}
	for _, e := range idx.entries {
		if !e.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(e.poly, p) {
			return e.code, true
		}
	}
	return "", false
}

// ToOrb converts a go-geom multipolygon into orb's representation.
func ToOrb(mp *geom.MultiPolygon) orb.MultiPolygon {
	if mp == nil {
		return nil
	}
	out := make(orb.MultiPolygon, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		poly := make(orb.Polygon, 0, p.NumLinearRings())
		for j := 0; j < p.NumLinearRings(); j++ {
			coords := p.LinearRing(j).Coords()
			ring := make(orb.Ring, len(coords))
			for k, c := range coords {
				ring[k] = orb.Point{c.X(), c.Y()}
			}
			poly = append(poly, ring)
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	return out
}
