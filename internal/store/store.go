// Package store persists matrix runs, their clusters and ZIPs.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID        string          `json:"id"`
	Summary   json.RawMessage `json:"summary"`
	Clusters  int             `json:"clusters"`
	ZIPs      int             `json:"zips"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store defines the persistence interface for matrix results.
type Store interface {
	SaveRun(ctx context.Context, runID string, summary any, clusters []model.Cluster, zips []model.ZIP) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	RunClusters(ctx context.Context, runID string) ([]model.Cluster, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
