// Package pipeline runs the trip → ZIP join → cluster → matrix pipeline end to end.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bikeshare-matrix/internal/aggregate"
	"github.com/sells-group/bikeshare-matrix/internal/classify"
	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/spatial"
	"github.com/sells-group/bikeshare-matrix/internal/stations"
	"github.com/sells-group/bikeshare-matrix/internal/trips"
	"github.com/sells-group/bikeshare-matrix/internal/zcta"
)

// StationOpener opens the station-name source. A nil opener skips name resolution.
type StationOpener func(ctx context.Context) (stations.Source, error)

// Options configures Run.
type Options struct {
	TripsPath string
	ZCTAPath  string
	ZIPField  string
	Region    trips.Region
	Policy    classify.UnmatchedPolicy
	Stations  StationOpener
}

// Result is everything a matrix run produces.
type Result struct {
	RunID      string
	StartedAt  time.Time
	Trips      trips.LoadStats
	Shapes     zcta.ReadStats
	Join       spatial.JoinStats
	Clusters   []model.Cluster
	ZIPs       []model.ZIP
	Thresholds classify.Result
	Stations   int // distinct named coordinates in the lookup table
}

// Run loads the three inputs in parallel, then joins, aggregates, classifies and
// resolves names sequentially.
func Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.New().String(), StartedAt: time.Now().UTC()}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID))

	var (
		loaded  []model.Trip
		allZIPs []model.ZIP
		table   stations.Table
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loaded, res.Trips, err = trips.LoadFile(opts.TripsPath, opts.Region)
		return err
	})
	g.Go(func() error {
		var err error
		allZIPs, res.Shapes, err = zcta.Read(opts.ZCTAPath, zcta.Options{
			ZIPField: opts.ZIPField,
			Bounds:   regionBox(opts.Region),
		})
		return err
	})
	if opts.Stations != nil {
		g.Go(func() error {
			src, err := opts.Stations(gCtx)
			if err != nil {
				return err
			}
			defer src.Close() //nolint:errcheck
			table, err = stations.Load(gCtx, src)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: load inputs")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled")
	}

	// Restrict polygons to ZIPs touched by any trip endpoint before joining.
	used := spatial.UsedZIPs(spatial.NewIndex(allZIPs), loaded)
	zips := spatial.Restrict(allZIPs, used)
	idx := spatial.NewIndex(zips)
	log.Info("restricted ZIP polygons", zap.Int("loaded", len(allZIPs)), zap.Int("used", len(zips)))

	joined, joinStats := spatial.Assign(idx, loaded)
	res.Join = joinStats

	clusters := aggregate.Clusters(aggregate.CountStarts(spatial.Trips(joined)))
	aggregate.ApplyDestCounts(zips, aggregate.DestCounts(joined))

	missed := spatial.AssignClusters(idx, clusters)
	logUnmatched := log.Info
	if missed > 0 {
		logUnmatched = log.Warn
	}
	logUnmatched("clusters outside every ZIP polygon",
		zap.Int("clusters", missed),
		zap.String("policy", string(opts.Policy)),
	)

	res.Thresholds = classify.Run(clusters, zips, opts.Policy)

	if table != nil {
		clusters = stations.Resolve(clusters, table)
		res.Stations = len(table)
	}

	res.Clusters = clusters
	res.ZIPs = zips

	log.Info("matrix complete",
		zap.Int("trips", res.Trips.Kept),
		zap.Int("joined", res.Join.Joined),
		zap.Int("clusters", len(clusters)),
		zap.Int("zips", len(zips)),
		zap.Float64("start_p25", res.Thresholds.Size.Low),
		zap.Float64("start_p75", res.Thresholds.Size.High),
		zap.Float64("dest_p25", res.Thresholds.Density.Low),
		zap.Float64("dest_p75", res.Thresholds.Density.High),
	)
	return res, nil
}

func regionBox(r trips.Region) *shp.Box {
	return &shp.Box{MinX: r.MinLng, MinY: r.MinLat, MaxX: r.MaxLng, MaxY: r.MaxLat}
}
