package report

import (
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bikeshare-matrix/internal/employers"
	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/spatial"
)

// GeoJSON layer file names in the figures directory.
const (
	ClustersLayer = "clusters.geojson"
	ZIPsLayer     = "zips.geojson"
	HotspotsLayer = "hotspots.geojson"
)

// CategoryLayer names the layer file for one category, e.g. net_sink_zip_named.geojson.
func CategoryLayer(cat model.Category, named bool) string {
	slug := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(string(cat)))
	if named {
		slug += "_named"
	}
	return slug + ".geojson"
}

// ClusterFeatures builds a point layer. Features are ordered by ascending start
// rides so renderers draw the busiest clusters last.
func ClusterFeatures(clusters []model.Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	ordered := ByStartsDesc(clusters)
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]
		f := geojson.NewFeature(orb.Point{c.Coord.Lon, c.Coord.Lat})
		f.Properties["start_rides"] = c.StartRides
		if c.Size != "" {
			f.Properties["dot_class"] = string(c.Size)
		}
		if c.Category != "" {
			f.Properties["matrix_cat"] = string(c.Category)
		}
		if c.ZIP != nil {
			f.Properties["zip"] = *c.ZIP
		}
		if c.StationName != nil {
			f.Properties["start_station_name"] = *c.StationName
		}
		fc.Append(f)
	}
	return fc
}

// ZIPFeatures builds the destination-density polygon layer.
func ZIPFeatures(zips []model.ZIP) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range zips {
		mp := spatial.ToOrb(z.Geom)
		if len(mp) == 0 {
			continue
		}
		f := geojson.NewFeature(mp)
		f.Properties["zip"] = z.Code
		f.Properties["dest_rides"] = z.DestRides
		f.Properties["zip_class"] = string(z.Density)
		fc.Append(f)
	}
	return fc
}

// EmployerFeatures appends key employers to fc as labelled points.
func EmployerFeatures(fc *geojson.FeatureCollection, emps []employers.Employer) *geojson.FeatureCollection {
	for _, e := range emps {
		f := geojson.NewFeature(orb.Point{e.Coord.Lon, e.Coord.Lat})
		f.Properties["name"] = e.Name
		f.Properties["kind"] = "key_employer"
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON marshals fc to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "report: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
