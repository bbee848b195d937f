// Package trips loads bike-share trip records from CSV.
package trips

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Region is an inclusive latitude/longitude bounding box.
type Region struct {
	MinLat float64 `mapstructure:"min_lat" yaml:"min_lat" validate:"gte=-90,lte=90"`
	MaxLat float64 `mapstructure:"max_lat" yaml:"max_lat" validate:"gte=-90,lte=90,gtefield=MinLat"`
	MinLng float64 `mapstructure:"min_lng" yaml:"min_lng" validate:"gte=-180,lte=180"`
	MaxLng float64 `mapstructure:"max_lng" yaml:"max_lng" validate:"gte=-180,lte=180,gtefield=MinLng"`
}

// DefaultRegion covers the Washington, DC metro area.
var DefaultRegion = Region{MinLat: 38.4, MaxLat: 39.3, MinLng: -77.6, MaxLng: -76.6}

// Contains reports whether c lies inside the region, edges included.
func (r Region) Contains(c model.Coord) bool {
	return c.Lat >= r.MinLat && c.Lat <= r.MaxLat && c.Lon >= r.MinLng && c.Lon <= r.MaxLng
}

// LoadStats counts what happened to each CSV row.
type LoadStats struct {
	Rows        int `json:"rows" yaml:"rows"`
	Incomplete  int `json:"incomplete" yaml:"incomplete"`
	OutOfRegion int `json:"out_of_region" yaml:"out_of_region"`
	Kept        int `json:"kept" yaml:"kept"`
}

// Dropped is the number of rows that did not become trips.
func (s LoadStats) Dropped() int {
	return s.Incomplete + s.OutOfRegion
}

// record mirrors the trip CSV columns we read. Values stay strings so blank and
// malformed cells can be dropped instead of failing the decode.
type record struct {
	StartLat string `csv:"start_lat"`
	StartLng string `csv:"start_lng"`
	EndLat   string `csv:"end_lat"`
	EndLng   string `csv:"end_lng"`
}

var (
	fullColumns  = []string{"start_lat", "start_lng", "end_lat", "end_lng"}
	startColumns = []string{"start_lat", "start_lng"}
)

// LoadFile opens path and calls Load.
func LoadFile(path string, region Region) ([]model.Trip, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, eris.Wrapf(err, "trips: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Load(f, region)
}

// Load reads trips with both endpoints inside region. Rows with a missing or
// unparsable coordinate are dropped and counted.
func Load(r io.Reader, region Region) ([]model.Trip, LoadStats, error) {
	var out []model.Trip
	stats, err := decode(r, fullColumns, func(rec record) bool {
		start, ok1 := parseCoord(rec.StartLat, rec.StartLng)
		end, ok2 := parseCoord(rec.EndLat, rec.EndLng)
		if !ok1 || !ok2 {
			return false
		}
		if !region.Contains(start) || !region.Contains(end) {
			return true
		}
		out = append(out, model.Trip{Start: start, End: end})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	stats.OutOfRegion = stats.Rows - stats.Incomplete - len(out)
	stats.Kept = len(out)

	zap.L().Info("trips: loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("incomplete", stats.Incomplete),
		zap.Int("out_of_region", stats.OutOfRegion),
		zap.Int("kept", stats.Kept),
	)
	return out, stats, nil
}

// LoadStartsFile opens path and calls LoadStarts.
func LoadStartsFile(path string) ([]model.Trip, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, eris.Wrapf(err, "trips: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadStarts(f)
}

// LoadStarts reads trips requiring only a start coordinate, with no region filter.
// End is left zero.
func LoadStarts(r io.Reader) ([]model.Trip, LoadStats, error) {
	var out []model.Trip
	stats, err := decode(r, startColumns, func(rec record) bool {
		start, ok := parseCoord(rec.StartLat, rec.StartLng)
		if !ok {
			return false
		}
		out = append(out, model.Trip{Start: start})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	stats.Kept = len(out)
	return out, stats, nil
}

// decode streams records to fn. fn returns false for incomplete rows.
func decode(r io.Reader, required []string, fn func(record) bool) (LoadStats, error) {
	var stats LoadStats

	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return stats, eris.New("trips: empty CSV")
	}
	if err != nil {
		return stats, eris.Wrap(err, "trips: read header")
	}
	if err := requireColumns(dec.Header(), required); err != nil {
		return stats, err
	}

	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, eris.Wrapf(err, "trips: decode row %d", stats.Rows+1)
		}
		stats.Rows++
		if !fn(rec) {
			stats.Incomplete++
		}
	}
	return stats, nil
}

func requireColumns(header, required []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("trips: missing required columns %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseCoord(lat, lng string) (model.Coord, bool) {
	la, ok := parseFloat(lat)
	if !ok {
		return model.Coord{}, false
	}
	lo, ok := parseFloat(lng)
	if !ok {
		return model.Coord{}, false
	}
	return model.Coord{Lat: la, Lon: lo}, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
