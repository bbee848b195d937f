// Package employers loads geocoded employer locations for the hotspot overlay.
package employers

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

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Employer is a named, geocoded workplace.
type Employer struct {
	Name  string
	Coord model.Coord
}

type record struct {
	Name string `csv:"name"`
	Lat  string `csv:"lat"`
	Lon  string `csv:"lon"`
}

// LoadFile opens path and calls Load.
func LoadFile(path string) ([]Employer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "employers: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Load(f)
}

// Load reads employers, dropping rows without a usable lat/lon.
func Load(r io.Reader) ([]Employer, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "employers: read header")
	}

	var out []Employer
	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "employers: decode row")
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(rec.Lat), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(rec.Lon), 64)
		if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}
		out = append(out, Employer{Name: strings.TrimSpace(rec.Name), Coord: model.Coord{Lat: lat, Lon: lon}})
	}
	return out, nil
}

// Select keeps employers whose name case-insensitively equals one of keys.
func Select(all []Employer, keys []string) []Employer {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[strings.ToLower(strings.TrimSpace(k))] = true
	}
	var out []Employer
	for _, e := range all {
		if want[strings.ToLower(e.Name)] {
			out = append(out, e)
		}
	}
	return out
}
