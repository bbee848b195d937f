package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bikeshare-matrix/internal/classify"
	"github.com/sells-group/bikeshare-matrix/internal/config"
	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/pipeline"
	"github.com/sells-group/bikeshare-matrix/internal/report"
	"github.com/sells-group/bikeshare-matrix/internal/stations"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Build and export the cluster traffic matrix",
	Long: `Loads trips, ZIP polygons and station names, classifies every start cluster,
prints ranked summaries and writes the matrix files.

Outputs (processed_data/):
  cluster_matrix_tags.csv   every cluster with size, ZIP class and category
  named_cluster_matrix.csv  clusters with a resolved station name
  matrix_summary.yaml       thresholds and per-category counts
  matrix.xlsx               workbook (report.xlsx)
  analysis.db               results store (report.store)

Outputs (figures/):
  clusters.geojson, zips.geojson  map layers (report.geojson)`,
	RunE: runMatrix,
}

func init() {
	f := matrixCmd.Flags()
	f.Bool("no-names", false, "skip station name resolution")
	f.Bool("no-export", false, "print summaries only")

	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	noNames, _ := cmd.Flags().GetBool("no-names")
	noExport, _ := cmd.Flags().GetBool("no-export")

	res, err := runPipeline(ctx, cfg, !noNames)
	if err != nil {
		return eris.Wrap(err, "matrix")
	}

	printMatrix(report.NewConsole(os.Stdout), res, cfg.Report)

	if noExport {
		return nil
	}
	written, err := pipeline.Export(ctx, res, exportOptions(cfg))
	if err != nil {
		return eris.Wrap(err, "matrix: export")
	}
	fmt.Fprintf(os.Stderr, "\nRun %s wrote %d files to %s\n", res.RunID, len(written), cfg.ProcessedDir())
	return nil
}

// runPipeline runs the matrix pipeline with options derived from c.
func runPipeline(ctx context.Context, c *config.Config, withNames bool) (*pipeline.Result, error) {
	policy, err := classify.ParseUnmatchedPolicy(c.Matrix.UnmatchedPolicy)
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		TripsPath: c.TripsPath(),
		ZCTAPath:  c.ZCTAPath(),
		ZIPField:  c.Inputs.ZIPField,
		Region:    c.Region,
		Policy:    policy,
	}
	if withNames {
		opts.Stations = stationOpener(c.Stations, c.StationsPath())
	}
	return pipeline.Run(ctx, opts)
}

func stationOpener(sc config.StationsConfig, path string) pipeline.StationOpener {
	return func(ctx context.Context) (stations.Source, error) {
		target := path
		if sc.Driver == stations.DriverPostgres {
			target = sc.DatabaseURL
		}
		return stations.Open(ctx, sc.Driver, target)
	}
}

func exportOptions(c *config.Config) pipeline.ExportOptions {
	driver, target := c.StoreTarget()
	return pipeline.ExportOptions{
		ProcessedDir: c.ProcessedDir(),
		FiguresDir:   c.FiguresDir(),
		StoreDriver:  driver,
		StoreTarget:  target,
		XLSX:         c.Report.XLSX,
		GeoJSON:      c.Report.GeoJSON,
	}
}

// printMatrix writes the console report: per-category samples, top clusters,
// unnamed clusters, the named/unnamed breakdown and top named per category.
func printMatrix(con *report.Console, res *pipeline.Result, rc config.ReportConfig) {
	con.Printf("Trips: %d rows, %d kept, %d joined to ZIPs\n", res.Trips.Rows, res.Trips.Kept, res.Join.Joined)
	con.Printf("Clusters: %d across %d ZIPs\n", len(res.Clusters), len(res.ZIPs))
	con.Printf("Start rides p25/p75: %.1f / %.1f   Dest rides p25/p75: %.1f / %.1f\n",
		res.Thresholds.Size.Low, res.Thresholds.Size.High,
		res.Thresholds.Density.Low, res.Thresholds.Density.High)

	con.CategorySamples(res.Clusters, rc.CategoryTop)

	ranked := report.ByStartsDesc(res.Clusters)
	con.Heading("Top clusters by start rides")
	con.Table(report.Top(ranked, rc.TopN), report.ColStartRides, report.ColZIP, report.ColCategory, report.ColStation)

	unnamed := report.Filter(ranked, report.Unnamed)
	con.Printf("\nUnnamed clusters: %d\n", len(unnamed))
	con.Table(report.Top(unnamed, rc.UnnamedTopN), report.ColStartRides, report.ColLat, report.ColLon, report.ColZIP, report.ColCategory)

	con.Heading("Named vs unnamed by category")
	con.CategoryCounts(report.CountCategories(res.Clusters))

	named := report.Filter(ranked, report.Named)
	for _, cat := range report.PresentCategories(named) {
		con.Heading(string(cat))
		con.Table(report.Top(report.Filter(named, report.InCategory(cat)), rc.CategoryTop),
			report.ColStation, report.ColStartRides, report.ColZIP)
	}
}

// parseCategoryFlag resolves a --category value.
func parseCategoryFlag(s string) (model.Category, error) {
	cat, ok := report.ParseCategory(s)
	if !ok {
		return "", eris.Errorf("unknown category %q", s)
	}
	return cat, nil
}
