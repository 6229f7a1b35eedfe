package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/backend"
	"audit-analytics/internal/config"
	"audit-analytics/internal/dataset"
	"audit-analytics/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	hotelID string
	cfg     *config.AppConfig
	store   *dataset.Store
)

var rootCmd = &cobra.Command{
	Use:   "audit-analytics",
	Short: "Audit scoring and analytics for hotel operations",
	Long: `Turns checklist audit runs into scores, time-windowed averages, rankings,
common-failure analysis and 12-month heat matrices. Without a subcommand it serves
the analytics as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if hotelID == "" {
			hotelID = cfg.DefaultHotelID
		}
		store = dataset.NewStore()

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("hotel_id", hotelID).
			Msg("audit-analytics starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute runs the CLI until ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&hotelID, "hotel", "", "hotel to analyze (default DEFAULT_HOTEL_ID)")
}

var errNoHotel = errors.New("no hotel selected: pass --hotel or set DEFAULT_HOTEL_ID")

// loadSnapshot reads the hotel from the local cache, syncing from the backend
// first when nothing is cached yet.
func loadSnapshot(ctx context.Context) (*audit.Snapshot, error) {
	if hotelID == "" {
		return nil, errNoHotel
	}
	if err := store.Load(cfg.CacheDir, hotelID); err != nil {
		return nil, err
	}
	if snap := store.Snapshot(hotelID); snap != nil {
		log.Debug().
			Str("hotel_id", hotelID).
			Time("fetched_at", snap.FetchedAt).
			Time("latest_run", store.LatestRun(hotelID)).
			Msg("Using cached snapshot")
		return snap, nil
	}

	log.Info().Str("hotel_id", hotelID).Msg("No cached data, syncing from backend")
	if err := syncHotel(ctx, cfg.Backend); err != nil {
		return nil, err
	}
	return store.Snapshot(hotelID), nil
}

// syncHotel fetches the hotel from the backend, replaces the cached copy with it
// and persists the result.
func syncHotel(ctx context.Context, bc backend.Config) error {
	src, closeSrc, err := backend.NewSource(bc)
	if err != nil {
		return err
	}
	defer closeSrc()

	start := time.Now()
	snap, err := src.Fetch(ctx, hotelID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	added, removed := store.Replace(snap)
	if err := store.Save(cfg.CacheDir, hotelID); err != nil {
		return err
	}

	log.Info().
		Str("hotel_id", hotelID).
		Int("runs_added", added).
		Int("runs_removed", removed).
		Int("runs", store.Count(hotelID)).
		Time("latest_run", store.LatestRun(hotelID)).
		Dur("elapsed", time.Since(start)).
		Msg("Sync complete")
	return nil
}
