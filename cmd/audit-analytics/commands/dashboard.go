package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/stats"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// windowFlags are shared by every command that analyzes a period.
type windowFlags struct {
	period string
	from   string
	to     string
	mode   string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.period, "period", "", "analysis period (default DEFAULT_PERIOD or this_month): this_month, last_3_months, this_year, rolling_12m, last_30_days, ..., custom")
	cmd.Flags().StringVar(&w.from, "from", "", "custom period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.to, "to", "", "custom period end, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.mode, "group-by", string(stats.GroupAuto), "failure grouping: auto, question, tag, classification")
}

func (w *windowFlags) request() (stats.DashboardRequest, error) {
	period := cfg.DefaultPeriod
	switch {
	case w.period != "":
		p, err := stats.ParsePeriod(w.period)
		if err != nil {
			return stats.DashboardRequest{}, err
		}
		period = p
	case w.from != "" || w.to != "":
		period = stats.PeriodCustom
	}

	var err error
	req := stats.DashboardRequest{
		Period:      period,
		Ref:         time.Now(),
		Loc:         cfg.Location,
		FailureTopN: cfg.FailureTopN,
		PairTopN:    cfg.PairTopN,
		Mode:        stats.GroupingMode(w.mode),
	}
	if req.From, err = parseDateFlag("from", w.from); err != nil {
		return req, err
	}
	if req.To, err = parseDateFlag("to", w.to); err != nil {
		return req, err
	}
	return req, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}

// computeDashboard runs the independent dashboard parts concurrently.
func computeDashboard(ctx context.Context, snap *audit.Snapshot, req stats.DashboardRequest) (stats.Dashboard, error) {
	start := time.Now()
	plan, err := stats.PlanDashboard(snap, req)
	if err != nil {
		return stats.Dashboard{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, part := range plan.Parts() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return part()
		})
	}
	if err := g.Wait(); err != nil {
		return stats.Dashboard{}, err
	}

	log.Debug().Str("hotel_id", snap.HotelID).Dur("elapsed", time.Since(start)).Msg("Dashboard computed")
	return plan.Result(), nil
}

var dashboardFlags windowFlags

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the hotel dashboard as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := dashboardFlags.request()
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	},
}

func init() {
	dashboardFlags.register(dashboardCmd)
	rootCmd.AddCommand(dashboardCmd)
}
