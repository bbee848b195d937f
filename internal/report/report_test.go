package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bikeshare-matrix/internal/classify"
	"github.com/sells-group/bikeshare-matrix/internal/employers"
	"github.com/sells-group/bikeshare-matrix/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func densityPtr(d model.DensityClass) *model.DensityClass { return &d }

func fixture() []model.Cluster {
	return []model.Cluster{
		{Coord: model.Coord{Lat: 38.8973, Lon: -77.0063}, StartRides: 90, StationName: strPtr("Union Station"),
			ZIP: strPtr("20002"), DestRides: intPtr(100), Size: model.SizeLarge, ZIPClass: densityPtr(model.DensityDark),
			Category: model.CategoryHighTurnoverHub},
		{Coord: model.Coord{Lat: 38.9, Lon: -77.01}, StartRides: 1,
			ZIP: strPtr("20002"), DestRides: intPtr(100), Size: model.SizeSmall, ZIPClass: densityPtr(model.DensityDark),
			Category: model.CategoryNetSinkZIP},
		{Coord: model.Coord{Lat: 38.91, Lon: -77.02}, StartRides: 3, StationName: strPtr("Dupont"),
			ZIP: strPtr("20001"), DestRides: intPtr(300), Size: model.SizeSmall, ZIPClass: densityPtr(model.DensityDark),
			Category: model.CategoryNetSinkZIP},
		{Coord: model.Coord{Lat: 38.92, Lon: -77.03}, StartRides: 5, StationName: strPtr("Nowhere"),
			Size: model.SizeMedium, Category: model.CategoryBalanced},
	}
}

func TestByStartsDesc(t *testing.T) {
	got := ByStartsDesc(fixture())
	var rides []int
	for _, c := range got {
		rides = append(rides, c.StartRides)
	}
	assert.Equal(t, []int{90, 5, 3, 1}, rides)
}

func TestTop(t *testing.T) {
	cl := fixture()
	assert.Len(t, Top(cl, 2), 2)
	assert.Len(t, Top(cl, 10), 4)
	assert.Len(t, Top(cl, 0), 4, "zero means all")
	assert.Len(t, Top(cl, -1), 4)
}

func TestNamedUnnamed(t *testing.T) {
	cl := fixture()
	assert.Len(t, Filter(cl, Named), 3)
	assert.Len(t, Filter(cl, Unnamed), 1)
}

func TestInspect(t *testing.T) {
	got := Inspect(fixture(), model.CategoryNetSinkZIP)
	require.Len(t, got, 2)
	assert.Equal(t, "20001", *got[0].ZIP)
	assert.Equal(t, "20002", *got[1].ZIP)
}

func TestInspect_TieOnDestUsesStarts(t *testing.T) {
	cl := []model.Cluster{
		{StartRides: 1, DestRides: intPtr(5), Category: model.CategoryLowTraffic},
		{StartRides: 9, Category: model.CategoryLowTraffic},
		{StartRides: 4, DestRides: intPtr(5), Category: model.CategoryLowTraffic},
	}
	got := Inspect(cl, model.CategoryLowTraffic)
	require.Len(t, got, 3)
	assert.Equal(t, []int{4, 1, 9}, []int{got[0].StartRides, got[1].StartRides, got[2].StartRides})
}

func TestPresentCategoriesAndParse(t *testing.T) {
	assert.Equal(t, []model.Category{
		model.CategoryHighTurnoverHub, model.CategoryNetSinkZIP, model.CategoryBalanced,
	}, PresentCategories(fixture()))

	cat, ok := ParseCategory(" net sink zip ")
	require.True(t, ok)
	assert.Equal(t, model.CategoryNetSinkZIP, cat)

	_, ok = ParseCategory("hot")
	assert.False(t, ok)
}

func TestCountCategories(t *testing.T) {
	got := CountCategories(fixture())
	assert.Equal(t, []CategoryCount{
		{Category: model.CategoryHighTurnoverHub, Named: 1, Total: 1},
		{Category: model.CategoryNetSinkZIP, Named: 1, Unnamed: 1, Total: 2},
		{Category: model.CategoryBalanced, Named: 1, Total: 1},
	}, got)
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, fixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "lat_r,lon_r,start_rides,dot_class,zip,zip_class,dest_rides,matrix_cat", lines[0])
	assert.Equal(t, "38.8973,-77.0063,90,large,20002,dark,100,High-turnover hub", lines[1])
	assert.Equal(t, "38.92,-77.03,5,medium,,,,Balanced", lines[4])
}

func TestWriteNamed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNamed(&buf, fixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], ",matrix_cat,start_station_name"))
	assert.True(t, strings.HasSuffix(lines[1], ",Union Station"))
	assert.NotContains(t, buf.String(), "38.9,-77.01,")
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), MatrixCSV)
	require.NoError(t, WriteCSVFile(path, fixture(), WriteMatrix))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Net sink ZIP")

	err = WriteCSVFile(filepath.Join(t.TempDir(), "missing", "x.csv"), fixture(), WriteMatrix)
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	con := NewConsole(&buf)

	con.Heading("Top clusters")
	con.Table(Top(ByStartsDesc(fixture()), 2), ColStartRides, ColZIP, ColCategory, ColStation)
	con.Printf("total %d\n", 12345)
	con.CategoryCounts(CountCategories(fixture()))
	con.CategorySamples(fixture(), 1)

	out := buf.String()
	assert.Contains(t, out, "=== Top clusters ===")
	assert.Contains(t, out, "Union Station")
	assert.Contains(t, out, "total 12,345")
	assert.Contains(t, out, "Net sink ZIP  (n=2)")
	assert.Contains(t, out, "named")
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab   ", pad("ab", 5))
	assert.Equal(t, "ab...", pad("abcdefg", 5))
	assert.Equal(t, "-", deref(nil))
}

func TestCategoryLayer(t *testing.T) {
	assert.Equal(t, "net_sink_zip_named.geojson", CategoryLayer(model.CategoryNetSinkZIP, true))
	assert.Equal(t, "high_turnover_hub.geojson", CategoryLayer(model.CategoryHighTurnoverHub, false))
}

func TestClusterFeatures(t *testing.T) {
	fc := ClusterFeatures(fixture())
	require.Len(t, fc.Features, 4)
	// busiest last
	assert.Equal(t, 1, fc.Features[0].Properties["start_rides"])
	assert.Equal(t, 90, fc.Features[3].Properties["start_rides"])
	assert.Equal(t, "Union Station", fc.Features[3].Properties["start_station_name"])
}

func TestZIPAndEmployerFeatures(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0},
	}}})
	zips := []model.ZIP{
		{Code: "20001", Geom: mp, DestRides: 7, Density: model.DensityDark},
		{Code: "20002"},
	}
	fc := ZIPFeatures(zips)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "20001", fc.Features[0].Properties["zip"])

	fc = EmployerFeatures(fc, []employers.Employer{{Name: "Amazon HQ2", Coord: model.Coord{Lat: 38.858, Lon: -77.051}}})
	assert.Len(t, fc.Features, 2)

	path := filepath.Join(t.TempDir(), ZIPsLayer)
	require.NoError(t, WriteGeoJSON(path, fc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), WorkbookName)
	zips := []model.ZIP{{Code: "20001", DestRides: 300, Density: model.DensityDark}}
	require.NoError(t, WriteWorkbook(path, fixture(), zips, CountCategories(fixture())))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	for _, name := range []string{"Clusters", "ZIPs", "Summary"} {
		assert.Contains(t, f.Sheet, name)
	}
	clusters := f.Sheet["Clusters"]
	require.Len(t, clusters.Rows, 5)
	assert.Equal(t, "lat_r", clusters.Rows[0].Cells[0].String())
	assert.Equal(t, "Union Station", clusters.Rows[1].Cells[8].String())
	assert.Len(t, f.Sheet["Summary"].Rows, 4)
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	s := Summary{
		RunID:      "run-1",
		Clusters:   4,
		Named:      3,
		Thresholds: classify.Result{Size: classify.Thresholds{Low: 1, High: 10}},
		Categories: CountCategories(fixture()),
	}
	require.NoError(t, WriteYAML(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "run-1", back["run_id"])
	assert.Equal(t, 3, back["named"])
}
