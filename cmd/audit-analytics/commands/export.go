package commands

import (
	"fmt"
	"os"

	"audit-analytics/internal/export"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	exportFlags windowFlags
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dashboard to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := exportFlags.request()
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		d, err := computeDashboard(cmd.Context(), snap, req)
		if err != nil {
			return err
		}

		data, err := export.Workbook(d)
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = fmt.Sprintf("audit-%s-%s.xlsx", hotelID, d.Period)
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		log.Info().Str("path", out).Int("bytes", len(data)).Msg("Workbook written")
		return nil
	},
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default audit-<hotel>-<period>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
