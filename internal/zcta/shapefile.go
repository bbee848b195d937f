// Package zcta reads ZIP Code Tabulation Area boundaries from a Census TIGER shapefile.
package zcta

import (
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// DefaultZIPField is the ZIP attribute in the 2020-vintage ZCTA shapefiles.
const DefaultZIPField = "ZCTA5CE20"

// Options configures Read.
type Options struct {
	ZIPField string   // attribute holding the ZIP code
	Bounds   *shp.Box // skip shapes whose box does not intersect; nil reads all
}

// ReadStats counts shapefile records by outcome.
type ReadStats struct {
	Records  int
	Outside  int
	Skipped  int
	Polygons int
}

// Read loads ZIP polygons from shpPath, ordered by ZIP code.
func Read(shpPath string, opts Options) ([]model.ZIP, ReadStats, error) {
	var stats ReadStats
	if opts.ZIPField == "" {
		opts.ZIPField = DefaultZIPField
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, stats, eris.Wrapf(err, "zcta: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	zipIdx := fieldIndex(reader, opts.ZIPField)
	if zipIdx < 0 {
		return nil, stats, eris.Errorf("zcta: field %s not found in %s", opts.ZIPField, shpPath)
	}

	var zips []model.ZIP
	for reader.Next() {
		stats.Records++
		_, shape := reader.Shape()
		if shape == nil {
			stats.Skipped++
			continue
		}
		if opts.Bounds != nil && !intersects(shape.BBox(), *opts.Bounds) {
			stats.Outside++
			continue
		}

		code := strings.TrimSpace(strings.TrimRight(reader.Attribute(zipIdx), "\x00"))
		if code == "" {
			stats.Skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			stats.Skipped++
			continue
		}
		mp := PolygonToMultiPolygon(poly)
		if mp == nil {
			stats.Skipped++
			continue
		}
		zips = append(zips, model.ZIP{Code: code, Geom: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, stats, eris.Wrapf(err, "zcta: read shapefile %s", shpPath)
	}

	sort.SliceStable(zips, func(i, j int) bool { return zips[i].Code < zips[j].Code })
	stats.Polygons = len(zips)

	zap.L().Info("zcta: shapefile loaded",
		zap.String("path", shpPath),
		zap.Int("records", stats.Records),
		zap.Int("outside", stats.Outside),
		zap.Int("skipped", stats.Skipped),
		zap.Int("polygons", stats.Polygons),
	)
	return zips, stats, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func intersects(a, b shp.Box) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX && a.MinY <= b.MaxY && a.MaxY >= b.MinY
}
