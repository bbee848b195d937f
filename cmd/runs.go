package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bikeshare-matrix/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored matrix runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

// openStore opens the configured results store.
func openStore(ctx context.Context) (store.Store, error) {
	driver, target := cfg.StoreTarget()
	if target == "" {
		return nil, eris.New("no results store configured (report.store)")
	}
	return store.Open(ctx, driver, target)
}

func formatRunsList(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLUSTERS\tZIPS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.ID, r.Clusters, r.ZIPs, r.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush() //nolint:errcheck
}
