package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/source"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/warehouse"
)

var (
	loadTransactions string
	loadCampaigns    string
	loadSpend        string
	loadPromotions   string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load raw CSV sources into the staging tables",
	Long: `Read the four raw CSV sources and replace the staging tables with
their contents, verbatim. Staging is truncate-and-reload: the last load
wins. No transformation happens here; malformed values travel through
and are handled during build.

A source missing one of its expected columns aborts the whole load.

Example:
  marketing-etl load --transactions data/raw/transactions.csv \
    --campaigns data/raw/campaign_details.csv \
    --spend data/raw/channel_spend.csv \
    --promotions data/raw/promotion_reference.csv`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadTransactions, "transactions", "",
		"path to the raw transactions CSV")
	loadCmd.Flags().StringVar(&loadCampaigns, "campaigns", "",
		"path to the campaign details CSV")
	loadCmd.Flags().StringVar(&loadSpend, "spend", "",
		"path to the daily channel spend CSV")
	loadCmd.Flags().StringVar(&loadPromotions, "promotions", "",
		"path to the promotion reference CSV")
}

// readSourceBatches reads all four configured raw sources. Shared by
// load and by build --load.
func readSourceBatches() ([]*source.RawBatch, error) {
	sources := []struct {
		name string
		path string
	}{
		{source.Transactions, cfg.Load.Transactions},
		{source.Campaigns, cfg.Load.Campaigns},
		{source.Spend, cfg.Load.Spend},
		{source.Promotions, cfg.Load.Promotions},
	}

	batches := make([]*source.RawBatch, 0, len(sources))
	for _, s := range sources {
		batch, err := source.ReadFile(s.name, s.path)
		if err != nil {
			var mismatch *source.SchemaMismatchError
			if errors.As(err, &mismatch) {
				return nil, fmt.Errorf("schema mismatch in %s: %w", s.path, err)
			}
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadTransactions != "" {
		cfg.Load.Transactions = loadTransactions
	}
	if loadCampaigns != "" {
		cfg.Load.Campaigns = loadCampaigns
	}
	if loadSpend != "" {
		cfg.Load.Spend = loadSpend
	}
	if loadPromotions != "" {
		cfg.Load.Promotions = loadPromotions
	}

	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	batches, err := readSourceBatches()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// One transaction so a partial load never becomes visible.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	counts, err := warehouse.LoadStaging(ctx, tx, batches)
	if err != nil {
		return err
	}
	if err := db.SaveLoadMetadata(ctx, tx, counts); err != nil {
		return fmt.Errorf("failed to record load metadata: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	logging.Info().Int("rows", total).Msg("Staging load complete")
	return nil
}
