// Package stations resolves human-readable station names for rounded-coordinate clusters.
package stations

import (
	"context"
	"sort"

	"github.com/sells-group/bikeshare-matrix/internal/aggregate"
	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Row is one (name, coordinate) pair observed in the trip database with its trip count.
type Row struct {
	Name  string
	Lat   float64
	Lng   float64
	Trips int64
}

// Source reads station rows from a trip database.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
	Close() error
}

// stationQuery groups on raw coordinates; rounding happens in Go so it matches
// the cluster rounding exactly. Only NULL names are skipped; an empty name
// still marks the coordinate as a station.
const stationQuery = `
	SELECT start_station_name, start_lat, start_lng, COUNT(*) AS trips
	FROM trips
	WHERE start_station_name IS NOT NULL
	  AND start_lat IS NOT NULL
	  AND start_lng IS NOT NULL
	GROUP BY start_station_name, start_lat, start_lng`

// Table maps rounded coordinates to one station name.
type Table map[model.Coord]string

// BuildTable rounds rows to cluster precision and keeps, per coordinate, the name
// with the most trips. Ties go to the lexically smaller name.
func BuildTable(rows []Row) Table {
	type key struct {
		coord model.Coord
		name  string
	}
	counts := make(map[key]int64)
	for _, r := range rows {
		c := aggregate.RoundCoord(model.Coord{Lat: r.Lat, Lon: r.Lng})
		counts[key{c, r.Name}] += r.Trips
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].name < keys[j].name })

	best := make(map[model.Coord]int64)
	table := make(Table)
	for _, k := range keys {
		n := counts[k]
		if cur, ok := best[k.coord]; ok && cur >= n {
			continue
		}
		best[k.coord] = n
		table[k.coord] = k.name
	}
	return table
}

// Resolve left-joins clusters against table on the rounded coordinate. Every
// input cluster is returned; unmatched clusters keep a nil StationName.
func Resolve(clusters []model.Cluster, table Table) []model.Cluster {
	out := make([]model.Cluster, len(clusters))
	for i, c := range clusters {
		if name, ok := table[c.Coord]; ok {
			n := name
			c.StationName = &n
		} else {
			c.StationName = nil
		}
		out[i] = c
	}
	return out
}

// Load reads all rows from src and builds the lookup table.
func Load(ctx context.Context, src Source) (Table, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTable(rows), nil
}
