package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bikeshare-matrix/internal/pipeline"
	"github.com/sells-group/bikeshare-matrix/internal/report"
)

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Cluster ride starts and overlay key employers",
	Long: `Clusters every trip with a start coordinate (no region or ZIP filter) and
writes figures/hotspots.geojson with the clusters plus the key employers
listed under employers.key.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		noEmployers, _ := cmd.Flags().GetBool("no-employers")
		limit, _ := cmd.Flags().GetInt("limit")

		opts := pipeline.HotspotOptions{
			TripsPath:    cfg.TripsPath(),
			KeyEmployers: cfg.Employers.Key,
		}
		if !noEmployers {
			opts.EmployersPath = cfg.EmployersPath()
		}

		res, err := pipeline.Hotspots(opts)
		if err != nil {
			return eris.Wrap(err, "hotspots")
		}

		con := report.NewConsole(os.Stdout)
		con.Printf("%d trips with a start point, %d clusters, %d key employers\n",
			res.Trips.Kept, len(res.Clusters), len(res.Employers))
		con.Heading("Ride start hotspots")
		con.Table(report.Top(report.ByStartsDesc(res.Clusters), limit), report.ColStartRides, report.ColLat, report.ColLon)

		if err := os.MkdirAll(cfg.FiguresDir(), 0o755); err != nil {
			return eris.Wrapf(err, "hotspots: create %s", cfg.FiguresDir())
		}
		fc := report.EmployerFeatures(report.ClusterFeatures(res.Clusters), res.Employers)
		path := filepath.Join(cfg.FiguresDir(), report.HotspotsLayer)
		if err := report.WriteGeoJSON(path, fc); err != nil {
			return eris.Wrap(err, "hotspots")
		}
		con.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	hotspotsCmd.Flags().Bool("no-employers", false, "skip the key employer overlay")
	hotspotsCmd.Flags().Int("limit", 15, "hotspots to print (0 = all)")
	rootCmd.AddCommand(hotspotsCmd)
}
