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

var (
	insightsTopN            int
	insightsSegment         string
	insightsWasteMinSpend   float64
	insightsWasteMaxClicks  int64
	insightsWasteMaxRevenue float64
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Run the analytical queries over the warehouse",
	Long: `Run the full set of insight queries: top products, the
hero/free-rider product classification, customer retention and monthly
cohorts, customer segmentation, and the spend-waste review.

The waste thresholds flag campaigns whose total spend exceeds the
minimum while clicks and attributed revenue stay under their ceilings.

Example:
  marketing-etl insights --top 20 --segment gender`,
	RunE: runInsights,
}

func init() {
	insightsCmd.Flags().IntVar(&insightsTopN, "top", 0,
		"number of products in the top-N ranking")
	insightsCmd.Flags().StringVar(&insightsSegment, "segment", "gender",
		"segmentation dimension (gender, location, subscription, frequency, age_band)")
	insightsCmd.Flags().Float64Var(&insightsWasteMinSpend, "waste-min-spend", 0,
		"spend floor for waste flagging")
	insightsCmd.Flags().Int64Var(&insightsWasteMaxClicks, "waste-max-clicks", 0,
		"click ceiling for waste flagging")
	insightsCmd.Flags().Float64Var(&insightsWasteMaxRevenue, "waste-max-revenue", 0,
		"revenue ceiling for waste flagging")
}

func runInsights(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if insightsTopN > 0 {
		cfg.Insights.TopN = insightsTopN
	}
	if insightsWasteMinSpend > 0 {
		cfg.Insights.WasteMinSpend = insightsWasteMinSpend
	}
	if insightsWasteMaxClicks > 0 {
		cfg.Insights.WasteMaxClicks = insightsWasteMaxClicks
	}
	if insightsWasteMaxRevenue > 0 {
		cfg.Insights.WasteMaxRevenue = insightsWasteMaxRevenue
	}

	if err := cfg.ValidateInsights(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	r := report.NewRenderer(os.Stdout, !noColor)

	top, err := warehouse.TopProducts(ctx, pool, cfg.Insights.TopN)
	if err != nil {
		return err
	}
	r.TopProducts(top)

	classes, err := warehouse.ClassifyProducts(ctx, pool)
	if err != nil {
		return err
	}
	r.ProductClasses(classes)

	retention, err := warehouse.Retention(ctx, pool)
	if err != nil {
		return err
	}
	cohorts, err := warehouse.CohortRetentionByMonth(ctx, pool)
	if err != nil {
		return err
	}
	r.Retention(retention, cohorts)

	segments, err := warehouse.Segments(ctx, pool, insightsSegment)
	if err != nil {
		return err
	}
	r.Segments(insightsSegment, segments)

	waste, err := warehouse.SpendWaste(ctx, pool,
		cfg.Insights.WasteMinSpend, cfg.Insights.WasteMaxClicks, cfg.Insights.WasteMaxRevenue)
	if err != nil {
		return err
	}
	r.SpendWaste(waste)

	return nil
}
