package spatial

import (
	"go.uber.org/zap"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// JoinedTrip is a trip whose origin and destination both fell inside a ZIP polygon.
type JoinedTrip struct {
	model.Trip
	OriginZIP string
	DestZIP   string
}

// JoinStats counts the outcome of Assign.
type JoinStats struct {
	Trips     int `json:"trips" yaml:"trips"`
	Joined    int `json:"joined" yaml:"joined"`
	Unmatched int `json:"unmatched" yaml:"unmatched"`
}

// UsedZIPs returns the set of ZIP codes containing any trip origin or destination.
func UsedZIPs(idx *Index, trips []model.Trip) map[string]bool {
	used := make(map[string]bool)
	for _, t := range trips {
		if code, ok := idx.Lookup(t.Start); ok {
			used[code] = true
		}
		if code, ok := idx.Lookup(t.End); ok {
			used[code] = true
		}
	}
	return used
}

// Restrict keeps only the ZIPs present in used, preserving order.
func Restrict(zips []model.ZIP, used map[string]bool) []model.ZIP {
	out := make([]model.ZIP, 0, len(used))
	for _, z := range zips {
		if used[z.Code] {
			out = append(out, z)
		}
	}
	return out
}

// Assign matches each trip's endpoints to ZIPs. Trips missing either ZIP are dropped.
func Assign(idx *Index, trips []model.Trip) ([]JoinedTrip, JoinStats) {
	stats := JoinStats{Trips: len(trips)}
	out := make([]JoinedTrip, 0, len(trips))
	for _, t := range trips {
		o, ok := idx.Lookup(t.Start)
		if !ok {
			stats.Unmatched++
			continue
		}
		d, ok := idx.Lookup(t.End)
		if !ok {
			stats.Unmatched++
			continue
		}
		out = append(out, JoinedTrip{Trip: t, OriginZIP: o, DestZIP: d})
	}
	stats.Joined = len(out)

	zap.L().Debug("spatial: assigned trips to ZIPs",
		zap.Int("trips", stats.Trips),
		zap.Int("joined", stats.Joined),
		zap.Int("unmatched", stats.Unmatched),
	)
	return out, stats
}

// Trips unwraps joined trips.
func Trips(joined []JoinedTrip) []model.Trip {
	out := make([]model.Trip, len(joined))
	for i, j := range joined {
		out[i] = j.Trip
	}
	return out
}

// AssignClusters sets ZIP on every cluster whose rounded point lies inside a polygon.
// Returns the number of clusters left without a ZIP.
func AssignClusters(idx *Index, clusters []model.Cluster) int {
	var missed int
	for i := range clusters {
		code, ok := idx.Lookup(clusters[i].Coord)
		if !ok {
			clusters[i].ZIP = nil
			missed++
			continue
		}
		clusters[i].ZIP = &code
	}
	return missed
}
