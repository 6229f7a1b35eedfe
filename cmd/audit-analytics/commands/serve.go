package commands

import (
	"errors"

	"audit-analytics/internal/backend"
	"audit-analytics/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := mcp.Options{
			Store:          store,
			CacheDir:       cfg.CacheDir,
			DefaultHotelID: hotelID,
			Location:       cfg.Location,
			FailureTopN:    cfg.FailureTopN,
			PairTopN:       cfg.PairTopN,
			MermaidCharts:  cfg.EnableMermaidCharts,
			DefaultPeriod:  cfg.DefaultPeriod,
		}

		src, closeSrc, err := backend.NewSource(cfg.Backend)
		switch {
		case err == nil:
			defer closeSrc()
			opts.Source = src
		case errors.Is(err, backend.ErrNotConfigured):
			log.Warn().Msg("No backend configured; tools only see cached hotels")
		default:
			return err
		}

		return mcp.NewServer(opts).Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
