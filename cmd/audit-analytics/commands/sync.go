package commands

import (
	"github.com/spf13/cobra"
)

var syncDBURL string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the hotel from the backend into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hotelID == "" {
			return errNoHotel
		}
		bc := cfg.Backend
		if syncDBURL != "" {
			bc.DatabaseURL = syncDBURL
		}
		if err := store.Load(cfg.CacheDir, hotelID); err != nil {
			return err
		}
		return syncHotel(cmd.Context(), bc)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncDBURL, "db-url", "", "read straight from Postgres instead of the HTTP backend (default DATABASE_URL)")
	rootCmd.AddCommand(syncCmd)
}
