package stations

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSource reads station rows from a SQLite trip database.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLite opens the SQLite database at path read-only.
func NewSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, eris.Wrap(err, "stations: open sqlite")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "stations: open sqlite %s", path)
	}
	return &SQLiteSource{db: db}, nil
}

// Rows implements Source.
func (s *SQLiteSource) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, stationQuery)
	if err != nil {
		return nil, eris.Wrap(err, "stations: query sqlite")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.Lat, &r.Lng, &r.Trips); err != nil {
			return nil, eris.Wrap(err, "stations: scan sqlite row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "stations: iterate sqlite rows")
}

// Close implements Source.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
