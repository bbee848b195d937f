package stations

import (
	"context"

	"github.com/rotisserie/eris"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns a Source for the configured driver. For sqlite, target is a file
// path; for postgres, a connection string.
func Open(ctx context.Context, driver, target string) (Source, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(target)
	case DriverPostgres:
		return ConnectPostgres(ctx, target)
	default:
		return nil, eris.Errorf("stations: unsupported driver %q", driver)
	}
}
