package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/report"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/warehouse"
)

var reportView string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print KPI summaries from the warehouse",
	Long: `Print KPI summaries computed from the merged sales and spend
relation. Ratio metrics with a zero denominator print as a dash: a
dash means undefined, a zero means spend that produced nothing.

Views:
  channel   - KPIs aggregated per channel
  campaign  - KPIs aggregated per campaign
  day       - KPIs per day and channel
  all       - everything

Example:
  marketing-etl report --view channel`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportView, "view", "channel",
		"report view: channel, campaign, day, all")
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch reportView {
	case "channel", "campaign", "day", "all":
	default:
		return fmt.Errorf("unknown report view: %s", reportView)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	r := report.NewRenderer(os.Stdout, !noColor)

	if reportView == "channel" || reportView == "all" {
		rows, err := warehouse.KPIByChannel(ctx, pool)
		if err != nil {
			return err
		}
		r.ChannelKPIs(rows)
	}
	if reportView == "campaign" || reportView == "all" {
		rows, err := warehouse.KPIByCampaign(ctx, pool)
		if err != nil {
			return err
		}
		r.CampaignKPIs(rows)
	}
	if reportView == "day" || reportView == "all" {
		rows, err := warehouse.KPIByDayChannel(ctx, pool)
		if err != nil {
			return err
		}
		r.DayChannelKPIs(rows)
	}

	return nil
}
