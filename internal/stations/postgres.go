package stations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bikeshare-matrix/internal/db"
)

// PostgresSource reads station rows from a Postgres copy of the trip table.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// ConnectPostgres opens and pings a pool for dsn.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	if dsn == "" {
		return nil, eris.New("stations: no database_url configured for postgres driver")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "stations: create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "stations: ping database")
	}
	return NewPostgres(pool), nil
}

// Rows implements Source.
func (s *PostgresSource) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx, stationQuery)
	if err != nil {
		return nil, eris.Wrap(err, "stations: query postgres")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.Lat, &r.Lng, &r.Trips); err != nil {
			return nil, eris.Wrap(err, "stations: scan postgres row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "stations: iterate postgres rows")
	}
	return out, nil
}

// Close implements Source.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
