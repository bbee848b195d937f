package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// WorkbookName is the XLSX export in the processed-data directory.
const WorkbookName = "matrix.xlsx"

// WriteWorkbook saves clusters, ZIPs and the category breakdown as three sheets.
func WriteWorkbook(path string, clusters []model.Cluster, zips []model.ZIP, counts []CategoryCount) error {
	f := xlsx.NewFile()

	sh, err := f.AddSheet("Clusters")
	if err != nil {
		return eris.Wrap(err, "report: add clusters sheet")
	}
	addHeader(sh, "lat_r", "lon_r", "start_rides", "dot_class", "zip", "zip_class", "dest_rides", "matrix_cat", "start_station_name")
	for _, c := range clusters {
		row := sh.AddRow()
		row.AddCell().SetFloat(c.Coord.Lat)
		row.AddCell().SetFloat(c.Coord.Lon)
		row.AddCell().SetInt(c.StartRides)
		row.AddCell().SetString(string(c.Size))
		optString(row, c.ZIP)
		if c.ZIPClass != nil {
			row.AddCell().SetString(string(*c.ZIPClass))
		} else {
			row.AddCell()
		}
		if c.DestRides != nil {
			row.AddCell().SetInt(*c.DestRides)
		} else {
			row.AddCell()
		}
		row.AddCell().SetString(string(c.Category))
		optString(row, c.StationName)
	}

	sh, err = f.AddSheet("ZIPs")
	if err != nil {
		return eris.Wrap(err, "report: add zips sheet")
	}
	addHeader(sh, "zip", "dest_rides", "zip_class")
	for _, z := range zips {
		row := sh.AddRow()
		row.AddCell().SetString(z.Code)
		row.AddCell().SetInt(z.DestRides)
		row.AddCell().SetString(string(z.Density))
	}

	sh, err = f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addHeader(sh, "matrix_cat", "named", "unnamed", "total")
	for _, cc := range counts {
		row := sh.AddRow()
		row.AddCell().SetString(string(cc.Category))
		row.AddCell().SetInt(cc.Named)
		row.AddCell().SetInt(cc.Unnamed)
		row.AddCell().SetInt(cc.Total)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addHeader(sh *xlsx.Sheet, names ...string) {
	row := sh.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func optString(row *xlsx.Row, s *string) {
	cell := row.AddCell()
	if s != nil {
		cell.SetString(*s)
	}
}
