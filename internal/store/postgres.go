package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/bikeshare-matrix/internal/db"
	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, e.g. a pgxmock pool in tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Geometry is stored as EWKB bytes so the schema works without PostGIS.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	summary    JSONB NOT NULL,
	clusters   INTEGER NOT NULL,
	zips       INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	lat_r        DOUBLE PRECISION NOT NULL,
	lon_r        DOUBLE PRECISION NOT NULL,
	start_rides  INTEGER NOT NULL,
	station_name TEXT,
	zip          TEXT,
	dest_rides   INTEGER,
	dot_class    TEXT NOT NULL,
	zip_class    TEXT,
	matrix_cat   TEXT NOT NULL,
	geom         BYTEA NOT NULL,
	PRIMARY KEY (run_id, lat_r, lon_r)
);

CREATE TABLE IF NOT EXISTS run_zips (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	zip        TEXT NOT NULL,
	dest_rides INTEGER NOT NULL,
	zip_class  TEXT NOT NULL,
	geom       BYTEA,
	PRIMARY KEY (run_id, zip)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_clusters_cat ON run_clusters(run_id, matrix_cat);
`

var (
	clusterColumns = []string{
		"run_id", "lat_r", "lon_r", "start_rides", "station_name", "zip",
		"dest_rides", "dot_class", "zip_class", "matrix_cat", "geom",
	}
	zipColumns = []string{"run_id", "zip", "dest_rides", "zip_class", "geom"}
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, runID string, summary any, clusters []model.Cluster, zips []model.ZIP) (*Run, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal summary")
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO runs (id, summary, clusters, zips, created_at) VALUES ($1, $2, $3, $4, $5)`,
		runID, summaryJSON, len(clusters), len(zips), now,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run %s", runID)
	}

	clusterRows := make([][]any, 0, len(clusters))
	for _, c := range clusters {
		wkb, err := pointWKB(c.Coord)
		if err != nil {
			return nil, err
		}
		clusterRows = append(clusterRows, []any{
			runID, c.Coord.Lat, c.Coord.Lon, c.StartRides, c.StationName, c.ZIP,
			c.DestRides, string(c.Size), zipClassString(c.ZIPClass), string(c.Category), wkb,
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "run_clusters", clusterColumns, clusterRows); err != nil {
		return nil, eris.Wrapf(err, "postgres: copy clusters for run %s", runID)
	}

	zipRows := make([][]any, 0, len(zips))
	for _, z := range zips {
		var wkb []byte
		if z.Geom != nil {
			wkb, err = ewkb.Marshal(z.Geom, ewkb.NDR)
			if err != nil {
				return nil, eris.Wrapf(err, "postgres: encode zip %s", z.Code)
			}
		}
		zipRows = append(zipRows, []any{runID, z.Code, z.DestRides, string(z.Density), wkb})
	}
	if _, err := db.CopyFrom(ctx, tx, "run_zips", zipColumns, zipRows); err != nil {
		return nil, eris.Wrapf(err, "postgres: copy zips for run %s", runID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit run")
	}

	return &Run{
		ID:        runID,
		Summary:   summaryJSON,
		Clusters:  len(clusters),
		ZIPs:      len(zips),
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var summary []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, summary, clusters, zips, created_at FROM runs WHERE id = $1`, runID,
	).Scan(&r.ID, &summary, &r.Clusters, &r.ZIPs, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Summary = json.RawMessage(summary)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, summary, clusters, zips, created_at FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summary []byte
		if err := rows.Scan(&r.ID, &summary, &r.Clusters, &r.ZIPs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Summary = json.RawMessage(summary)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RunClusters(ctx context.Context, runID string) ([]model.Cluster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lat_r, lon_r, start_rides, station_name, zip, dest_rides, dot_class, zip_class, matrix_cat
		FROM run_clusters WHERE run_id = $1 ORDER BY lat_r, lon_r`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list clusters for run %s", runID)
	}
	defer rows.Close()

	var out []model.Cluster
	for rows.Next() {
		var (
			c                   model.Cluster
			name, zip, zipClass *string
			dest                *int
			size, category      string
		)
		if err := rows.Scan(&c.Coord.Lat, &c.Coord.Lon, &c.StartRides, &name, &zip, &dest,
			&size, &zipClass, &category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cluster")
		}
		c.Size = model.SizeClass(size)
		c.Category = model.Category(category)
		c.StationName = name
		c.ZIP = zip
		c.DestRides = dest
		if zipClass != nil {
			zc := model.DensityClass(*zipClass)
			c.ZIPClass = &zc
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list clusters iterate")
}
