package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/bikeshare-matrix/internal/aggregate"
	"github.com/sells-group/bikeshare-matrix/internal/employers"
	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/trips"
)

// HotspotOptions configures Hotspots.
type HotspotOptions struct {
	TripsPath     string
	EmployersPath string // optional
	KeyEmployers  []string
}

// HotspotResult holds start clusters and highlighted employers.
type HotspotResult struct {
	Trips     trips.LoadStats
	Clusters  []model.Cluster
	Employers []employers.Employer
}

// Hotspots clusters every trip with a start coordinate, without region or ZIP
// filtering, and selects the key employers to overlay.
func Hotspots(opts HotspotOptions) (*HotspotResult, error) {
	loaded, stats, err := trips.LoadStartsFile(opts.TripsPath)
	if err != nil {
		return nil, err
	}
	res := &HotspotResult{
		Trips:    stats,
		Clusters: aggregate.Clusters(aggregate.CountStarts(loaded)),
	}

	if opts.EmployersPath != "" {
		all, err := employers.LoadFile(opts.EmployersPath)
		if err != nil {
			return nil, err
		}
		res.Employers = employers.Select(all, opts.KeyEmployers)
	}

	zap.L().Info("hotspots complete",
		zap.String("component", "pipeline"),
		zap.Int("trips", stats.Kept),
		zap.Int("clusters", len(res.Clusters)),
		zap.Int("key_employers", len(res.Employers)),
	)
	return res, nil
}
