// Package aggregate groups trips into rounded-coordinate station clusters and
// counts rides per cluster and per destination ZIP.
package aggregate

import (
	"math"
	"sort"

	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/spatial"
)

// Precision is the number of decimal digits kept when clustering (about 11m).
const Precision = 4

var scale = math.Pow10(Precision)

// Round rounds v to Precision decimal digits, half to even. Rounding an
// already-rounded value returns it unchanged.
func Round(v float64) float64 {
	return math.RoundToEven(v*scale) / scale
}

// RoundCoord rounds both components of c.
func RoundCoord(c model.Coord) model.Coord {
	return model.Coord{Lat: Round(c.Lat), Lon: Round(c.Lon)}
}

// CountStarts groups trip origins by rounded coordinate and counts them.
func CountStarts(trips []model.Trip) map[model.Coord]int {
	counts := make(map[model.Coord]int)
	for _, t := range trips {
		counts[RoundCoord(t.Start)]++
	}
	return counts
}

// Clusters turns a count map into clusters ordered by (lat, lon).
func Clusters(counts map[model.Coord]int) []model.Cluster {
	out := make([]model.Cluster, 0, len(counts))
	for c, n := range counts {
		out = append(out, model.Cluster{Coord: c, StartRides: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.Lat != out[j].Coord.Lat {
			return out[i].Coord.Lat < out[j].Coord.Lat
		}
		return out[i].Coord.Lon < out[j].Coord.Lon
	})
	return out
}

// DestCounts counts joined trips per destination ZIP.
func DestCounts(joined []spatial.JoinedTrip) map[string]int {
	counts := make(map[string]int)
	for _, j := range joined {
		counts[j.DestZIP]++
	}
	return counts
}

// ApplyDestCounts sets DestRides on each ZIP, zero where no trip ends.
func ApplyDestCounts(zips []model.ZIP, counts map[string]int) {
	for i := range zips {
		zips[i].DestRides = counts[zips[i].Code]
	}
}

// Total sums ride counts across clusters.
func Total(clusters []model.Cluster) int {
	var n int
	for _, c := range clusters {
		n += c.StartRides
	}
	return n
}
