package stations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

func coord(lat, lon float64) model.Coord { return model.Coord{Lat: lat, Lon: lon} }

func TestBuildTable(t *testing.T) {
	table := BuildTable([]Row{
		{Name: "Union Station", Lat: 38.89731, Lng: -77.00631, Trips: 10},
		{Name: "Union Station", Lat: 38.89729, Lng: -77.00629, Trips: 5},
		{Name: "Union Stn Temp", Lat: 38.8973, Lng: -77.0063, Trips: 12},
		{Name: "B Street", Lat: 38.9, Lng: -77.0, Trips: 3},
		{Name: "A Street", Lat: 38.9, Lng: -77.0, Trips: 3},
	})

	assert.Len(t, table, 2)
	// 15 trips across two raw coordinates beat 12 under the other name.
	assert.Equal(t, "Union Station", table[coord(38.8973, -77.0063)])
	assert.Equal(t, "A Street", table[coord(38.9, -77.0)])
}

func TestResolve(t *testing.T) {
	table := Table{coord(38.9, -77.0): "A Street"}
	stale := "stale"
	clusters := []model.Cluster{
		{Coord: coord(38.9, -77.0), StartRides: 3},
		{Coord: coord(38.91, -77.0), StartRides: 2, StationName: &stale},
	}

	got := Resolve(clusters, table)
	require.Len(t, got, len(clusters))
	require.NotNil(t, got[0].StationName)
	assert.Equal(t, "A Street", *got[0].StationName)
	assert.Nil(t, got[1].StationName)
	assert.Equal(t, 2, got[1].StartRides)

	// input untouched
	assert.Nil(t, clusters[0].StationName)
}

func TestResolve_RowCountPreserved(t *testing.T) {
	table := BuildTable([]Row{
		{Name: "X", Lat: 1, Lng: 1, Trips: 1},
		{Name: "Y", Lat: 1, Lng: 1, Trips: 1},
		{Name: "Z", Lat: 1, Lng: 1, Trips: 1},
	})
	clusters := []model.Cluster{{Coord: coord(1, 1)}, {Coord: coord(2, 2)}, {Coord: coord(1, 1)}}
	assert.Len(t, Resolve(clusters, table), 3)
}

func writeTripDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.db")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	_, err = conn.Exec(`CREATE TABLE trips (
		ride_id TEXT, start_station_name TEXT, start_lat REAL, start_lng REAL)`)
	require.NoError(t, err)
	stmts := []string{
		`INSERT INTO trips VALUES ('1', 'Union Station', 38.8973, -77.0063)`,
		`INSERT INTO trips VALUES ('2', 'Union Station', 38.8973, -77.0063)`,
		`INSERT INTO trips VALUES ('3', 'Dupont Circle', 38.9096, -77.0434)`,
		`INSERT INTO trips VALUES ('4', NULL, 38.9, -77.0)`,
		`INSERT INTO trips VALUES ('5', '', 38.9, -77.0)`,
	}
	for _, s := range stmts {
		_, err := conn.Exec(s)
		require.NoError(t, err)
	}
	return path
}

func TestSQLiteSource(t *testing.T) {
	path := writeTripDB(t)
	src, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3, "NULL names are skipped, empty names are kept")

	table, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Union Station", table[coord(38.8973, -77.0063)])
	assert.Equal(t, "Dupont Circle", table[coord(38.9096, -77.0434)])

	name, ok := table[coord(38.9, -77.0)]
	assert.True(t, ok)
	assert.Empty(t, name)
}

func TestSQLiteSource_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE other (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	src, err := NewSQLite(path)
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	_, err = src.Rows(context.Background())
	assert.Error(t, err)
}

func TestPostgresSource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT start_station_name, start_lat, start_lng").
		WillReturnRows(mock.NewRows([]string{"start_station_name", "start_lat", "start_lng", "trips"}).
			AddRow("Union Station", 38.8973, -77.0063, int64(7)).
			AddRow("Dupont Circle", 38.9096, -77.0434, int64(2)))
	mock.ExpectClose()

	src := NewPostgres(mock)
	table, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, table, 2)
	assert.Equal(t, "Union Station", table[coord(38.8973, -77.0063)])

	require.NoError(t, src.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT start_station_name").WillReturnError(assert.AnError)

	_, err = NewPostgres(mock).Rows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stations: query postgres")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)

	_, err = Open(context.Background(), DriverPostgres, "")
	assert.Error(t, err)
}
