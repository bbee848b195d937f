package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Output file names in the processed-data directory.
const (
	MatrixCSV = "cluster_matrix_tags.csv"
	NamedCSV  = "named_cluster_matrix.csv"
)

// matrixRow is one line of cluster_matrix_tags.csv. Nil pointers write as empty cells.
type matrixRow struct {
	Lat        float64 `csv:"lat_r"`
	Lon        float64 `csv:"lon_r"`
	StartRides int     `csv:"start_rides"`
	DotClass   string  `csv:"dot_class"`
	ZIP        *string `csv:"zip"`
	ZIPClass   *string `csv:"zip_class"`
	DestRides  *int    `csv:"dest_rides"`
	Category   string  `csv:"matrix_cat"`
}

type namedRow struct {
	matrixRow
	StationName string `csv:"start_station_name"`
}

func toMatrixRow(c model.Cluster) matrixRow {
	row := matrixRow{
		Lat:        c.Coord.Lat,
		Lon:        c.Coord.Lon,
		StartRides: c.StartRides,
		DotClass:   string(c.Size),
		ZIP:        c.ZIP,
		DestRides:  c.DestRides,
		Category:   string(c.Category),
	}
	if c.ZIPClass != nil {
		zc := string(*c.ZIPClass)
		row.ZIPClass = &zc
	}
	return row
}

// WriteMatrix writes every cluster with its labels.
func WriteMatrix(w io.Writer, clusters []model.Cluster) error {
	return encodeRows(w, matrixRow{}, len(clusters), func(i int) any {
		return toMatrixRow(clusters[i])
	})
}

// WriteNamed writes only clusters with a resolved station name.
func WriteNamed(w io.Writer, clusters []model.Cluster) error {
	named := Filter(clusters, Named)
	return encodeRows(w, namedRow{}, len(named), func(i int) any {
		return namedRow{matrixRow: toMatrixRow(named[i]), StationName: *named[i].StationName}
	})
}

// WriteCSVFile creates path and writes with fn.
func WriteCSVFile(path string, clusters []model.Cluster, fn func(io.Writer, []model.Cluster) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := fn(f, clusters); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "report: write %s", path)
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}

func encodeRows(w io.Writer, header any, n int, row func(int) any) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(header); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for i := 0; i < n; i++ {
		if err := enc.Encode(row(i)); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}
