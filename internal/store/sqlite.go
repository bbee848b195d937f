package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Geometry columns hold EWKB with SRID 4326.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	summary    TEXT NOT NULL,
	clusters   INTEGER NOT NULL,
	zips       INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	lat_r        REAL NOT NULL,
	lon_r        REAL NOT NULL,
	start_rides  INTEGER NOT NULL,
	station_name TEXT,
	zip          TEXT,
	dest_rides   INTEGER,
	dot_class    TEXT NOT NULL,
	zip_class    TEXT,
	matrix_cat   TEXT NOT NULL,
	geom         BLOB NOT NULL,
	PRIMARY KEY (run_id, lat_r, lon_r)
);

CREATE TABLE IF NOT EXISTS run_zips (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	zip        TEXT NOT NULL,
	dest_rides INTEGER NOT NULL,
	zip_class  TEXT NOT NULL,
	geom       BLOB,
	PRIMARY KEY (run_id, zip)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_clusters_cat ON run_clusters(run_id, matrix_cat);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, runID string, summary any, clusters []model.Cluster, zips []model.ZIP) (*Run, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal summary")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, summary, clusters, zips, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(summaryJSON), len(clusters), len(zips), now,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run %s", runID)
	}

	clusterStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_clusters (run_id, lat_r, lon_r, start_rides, station_name, zip,
			dest_rides, dot_class, zip_class, matrix_cat, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare cluster insert")
	}
	defer clusterStmt.Close() //nolint:errcheck

	for _, c := range clusters {
		wkb, err := pointWKB(c.Coord)
		if err != nil {
			return nil, err
		}
		if _, err := clusterStmt.ExecContext(ctx,
			runID, c.Coord.Lat, c.Coord.Lon, c.StartRides, c.StationName, c.ZIP,
			c.DestRides, string(c.Size), zipClassString(c.ZIPClass), string(c.Category), wkb,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert cluster %f,%f", c.Coord.Lat, c.Coord.Lon)
		}
	}

	zipStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_zips (run_id, zip, dest_rides, zip_class, geom) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare zip insert")
	}
	defer zipStmt.Close() //nolint:errcheck

	for _, z := range zips {
		var wkb []byte
		if z.Geom != nil {
			wkb, err = ewkb.Marshal(z.Geom, ewkb.NDR)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: encode zip %s", z.Code)
			}
		}
		if _, err := zipStmt.ExecContext(ctx, runID, z.Code, z.DestRides, string(z.Density), wkb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert zip %s", z.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit run")
	}

	return &Run{
		ID:        runID,
		Summary:   summaryJSON,
		Clusters:  len(clusters),
		ZIPs:      len(zips),
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, summary, clusters, zips, created_at FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, summary, clusters, zips, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RunClusters(ctx context.Context, runID string) ([]model.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lat_r, lon_r, start_rides, station_name, zip, dest_rides, dot_class, zip_class, matrix_cat
		FROM run_clusters WHERE run_id = ? ORDER BY lat_r, lon_r`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list clusters for run %s", runID)
	}
	defer rows.Close()

	var out []model.Cluster
	for rows.Next() {
		var (
			c                   model.Cluster
			name, zip, zipClass sql.NullString
			dest                sql.NullInt64
			size, category      string
		)
		if err := rows.Scan(&c.Coord.Lat, &c.Coord.Lon, &c.StartRides, &name, &zip, &dest,
			&size, &zipClass, &category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster")
		}
		c.Size = model.SizeClass(size)
		c.Category = model.Category(category)
		if name.Valid {
			c.StationName = &name.String
		}
		if zip.Valid {
			c.ZIP = &zip.String
		}
		if dest.Valid {
			d := int(dest.Int64)
			c.DestRides = &d
		}
		if zipClass.Valid {
			zc := model.DensityClass(zipClass.String)
			c.ZIPClass = &zc
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list clusters iterate")
}

// helpers

func pointWKB(c model.Coord) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: encode point")
	}
	return data, nil
}

func zipClassString(d *model.DensityClass) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var summary string
	err := row.Scan(&r.ID, &summary, &r.Clusters, &r.ZIPs, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Summary = json.RawMessage(summary)
	return &r, nil
}
