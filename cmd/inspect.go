package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/pipeline"
	"github.com/sells-group/bikeshare-matrix/internal/report"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the clusters of one matrix category",
	Long: `Lists clusters in a category ordered by rides ending in their ZIP, then by
rides starting at the cluster, to pinpoint docks that need racks, rebalancing
or signage.

Examples:
  # Recompute and list visitor drop-zones
  inspect --category "Net sink ZIP"

  # Read a stored run and export named sinks as a map layer
  inspect --run 1f0c... --category "Net sink ZIP" --named --geojson`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.String("category", string(model.CategoryNetSinkZIP), "matrix category")
	f.String("run", "", "read clusters from a stored run instead of recomputing")
	f.Bool("named", false, "only clusters with a resolved station name")
	f.Int("limit", 15, "rows to print (0 = all)")
	f.Bool("geojson", false, "write the selection as a GeoJSON layer under figures/")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catFlag, _ := cmd.Flags().GetString("category")
	runID, _ := cmd.Flags().GetString("run")
	namedOnly, _ := cmd.Flags().GetBool("named")
	limit, _ := cmd.Flags().GetInt("limit")
	writeLayer, _ := cmd.Flags().GetBool("geojson")

	cat, err := parseCategoryFlag(catFlag)
	if err != nil {
		return eris.Wrap(err, "inspect")
	}

	var clusters []model.Cluster
	if runID != "" {
		clusters, err = storedClusters(cmd, runID)
	} else {
		var res *pipeline.Result
		res, err = runPipeline(ctx, cfg, true)
		if err == nil {
			clusters = res.Clusters
		}
	}
	if err != nil {
		return eris.Wrap(err, "inspect")
	}

	selected := report.Inspect(clusters, cat)
	if namedOnly {
		selected = report.Filter(selected, report.Named)
	}

	con := report.NewConsole(os.Stdout)
	con.Printf("%d clusters match %q\n", len(selected), string(cat))
	rows := report.Top(selected, limit)
	cols := []string{report.ColStartRides, report.ColDestRides, report.ColZIP, report.ColLat, report.ColLon}
	if namedOnly {
		cols = append(cols, report.ColStation)
	}
	con.Table(rows, cols...)

	if writeLayer {
		if err := os.MkdirAll(cfg.FiguresDir(), 0o755); err != nil {
			return eris.Wrapf(err, "inspect: create %s", cfg.FiguresDir())
		}
		path := filepath.Join(cfg.FiguresDir(), report.CategoryLayer(cat, namedOnly))
		if err := report.WriteGeoJSON(path, report.ClusterFeatures(selected)); err != nil {
			return eris.Wrap(err, "inspect")
		}
		con.Printf("wrote %s\n", path)
	}
	return nil
}

func storedClusters(cmd *cobra.Command, runID string) ([]model.Cluster, error) {
	st, err := openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck
	if _, err := st.GetRun(cmd.Context(), runID); err != nil {
		return nil, err
	}
	return st.RunClusters(cmd.Context(), runID)
}
