package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"audit-analytics/internal/stats"
	"audit-analytics/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportOut  string
	reportMode string
	reportYear int
	reportNest bool
	reportOpen bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the 12-month heat matrix as an HTML page",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}

		labels := make(map[string]string, len(snap.Templates))
		for _, t := range snap.Templates {
			labels[t.ID] = t.Name
		}
		rows, err := stats.BuildMatrix(stats.EntitiesFromAreas(snap.Areas), snap.SubmittedRuns(), stats.BucketSpec{
			Mode:        stats.BucketMode(reportMode),
			Year:        reportYear,
			Ref:         time.Now().In(cfg.Location),
			Loc:         cfg.Location,
			Nest:        reportNest,
			ChildLabels: labels,
		})
		if err != nil {
			return err
		}

		out := reportOut
		if out == "" {
			out = filepath.Join(cfg.DataPath, fmt.Sprintf("heat-%s.html", hotelID))
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		title := fmt.Sprintf("Audit scores: %s", hotelID)
		if err := visuals.HeatReport(f, rows, title); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", out, err)
		}
		log.Info().Str("path", out).Int("rows", len(rows)).Msg("Report written")

		if reportOpen {
			return browser.OpenFile(out)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default <DATA_PATH>/heat-<hotel>.html)")
	reportCmd.Flags().StringVar(&reportMode, "mode", string(stats.BucketRolling), "rolling or calendar")
	reportCmd.Flags().IntVar(&reportYear, "year", time.Now().Year(), "year for calendar mode")
	reportCmd.Flags().BoolVar(&reportNest, "nest", true, "add one row per template under each area")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in the default browser")
	rootCmd.AddCommand(reportCmd)
}
