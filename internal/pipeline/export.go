package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bikeshare-matrix/internal/report"
	"github.com/sells-group/bikeshare-matrix/internal/store"
)

// ExportOptions chooses where and what Export writes.
type ExportOptions struct {
	ProcessedDir string
	FiguresDir   string
	StoreDriver  string
	StoreTarget  string // empty disables the results store
	XLSX         bool
	GeoJSON      bool
}

// SummaryFile is the YAML digest written next to the CSVs.
const SummaryFile = "matrix_summary.yaml"

// Summary builds the machine-readable digest of r.
func (r *Result) Summary() report.Summary {
	return report.Summary{
		RunID:       r.RunID,
		GeneratedAt: r.StartedAt,
		Trips:       r.Trips,
		Join:        r.Join,
		ZIPs:        len(r.ZIPs),
		Clusters:    len(r.Clusters),
		Named:       len(report.Filter(r.Clusters, report.Named)),
		Thresholds:  r.Thresholds,
		Categories:  report.CountCategories(r.Clusters),
	}
}

// Export writes the matrix CSVs and summary, and optionally the workbook, GeoJSON
// layers and results store. Returns the paths written.
func Export(ctx context.Context, r *Result, opts ExportOptions) ([]string, error) {
	log := zap.L().With(zap.String("component", "pipeline.export"), zap.String("run_id", r.RunID))

	if err := os.MkdirAll(opts.ProcessedDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create %s", opts.ProcessedDir)
	}

	var written []string
	summary := r.Summary()

	matrixPath := filepath.Join(opts.ProcessedDir, report.MatrixCSV)
	if err := report.WriteCSVFile(matrixPath, r.Clusters, report.WriteMatrix); err != nil {
		return written, err
	}
	written = append(written, matrixPath)

	namedPath := filepath.Join(opts.ProcessedDir, report.NamedCSV)
	if err := report.WriteCSVFile(namedPath, r.Clusters, report.WriteNamed); err != nil {
		return written, err
	}
	written = append(written, namedPath)

	summaryPath := filepath.Join(opts.ProcessedDir, SummaryFile)
	if err := report.WriteYAML(summaryPath, summary); err != nil {
		return written, err
	}
	written = append(written, summaryPath)

	if opts.XLSX {
		p := filepath.Join(opts.ProcessedDir, report.WorkbookName)
		if err := report.WriteWorkbook(p, r.Clusters, r.ZIPs, summary.Categories); err != nil {
			return written, err
		}
		written = append(written, p)
	}

	if opts.GeoJSON {
		if err := os.MkdirAll(opts.FiguresDir, 0o755); err != nil {
			return written, eris.Wrapf(err, "pipeline: create %s", opts.FiguresDir)
		}
		clustersPath := filepath.Join(opts.FiguresDir, report.ClustersLayer)
		if err := report.WriteGeoJSON(clustersPath, report.ClusterFeatures(r.Clusters)); err != nil {
			return written, err
		}
		zipsPath := filepath.Join(opts.FiguresDir, report.ZIPsLayer)
		if err := report.WriteGeoJSON(zipsPath, report.ZIPFeatures(r.ZIPs)); err != nil {
			return written, err
		}
		written = append(written, clustersPath, zipsPath)
	}

	if opts.StoreTarget != "" {
		st, err := store.Open(ctx, opts.StoreDriver, opts.StoreTarget)
		if err != nil {
			return written, err
		}
		defer st.Close() //nolint:errcheck
		if _, err := st.SaveRun(ctx, r.RunID, summary, r.Clusters, r.ZIPs); err != nil {
			return written, err
		}
		if opts.StoreDriver != store.DriverPostgres {
			written = append(written, opts.StoreTarget)
		}
		log.Info("saved run to results store", zap.String("driver", opts.StoreDriver))
	}

	log.Info("exported matrix", zap.Strings("files", written))
	return written, nil
}
