package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the results store and applies the schema. For sqlite,
// target is a file path; for postgres, a connection string.
func Open(ctx context.Context, driver, target string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		st, err = NewSQLite(target)
	case DriverPostgres:
		st, err = NewPostgres(ctx, target, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
