//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/source"
)

// Stats collects per-cycle row and anomaly counts. Per-row anomalies
// are tolerated and counted here; only structural problems abort a run.
type Stats struct {
	DistinctDates     int
	UnparseableDates  int
	DatesInserted     int
	CustomersInserted int64
	ProductsInserted  int64
	ZeroQuantityItems int64
	CampaignsInserted int64
	Sales             SalesFactResult
	Spend             SpendFactResult
}

// Rebuild runs the full transformation pipeline over the currently
// staged data inside a single transaction: truncate facts and the
// rebuilt dimensions, resolve dates, build dimensions, build facts.
// Either the whole cycle commits or the previous state stands; the
// reporting layer never observes old dimension keys joined against new
// facts. dim_date and dim_customer are insert-if-absent and are not
// truncated; their keys are stable across reloads by construction.
func Rebuild(ctx context.Context, pool *pgxpool.Pool) (Stats, error) {
	var stats Stats

	tx, err := pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stats, err = rebuild(ctx, tx)
	if err != nil {
		return stats, err
	}

	if err := db.SaveBuildMetadata(ctx, tx); err != nil {
		return stats, fmt.Errorf("failed to record build metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("failed to commit rebuild: %w", err)
	}

	logStats(stats)
	return stats, nil
}

// LoadAndRebuild stages the given batches and rebuilds the warehouse
// under one transaction: either the new staging contents and the
// rebuilt star schema both land, or neither does.
func LoadAndRebuild(ctx context.Context, pool *pgxpool.Pool, batches []*source.RawBatch) (map[string]int, Stats, error) {
	var stats Stats

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	counts, err := LoadStaging(ctx, tx, batches)
	if err != nil {
		return nil, stats, err
	}

	stats, err = rebuild(ctx, tx)
	if err != nil {
		return nil, stats, err
	}

	if err := db.SaveLoadMetadata(ctx, tx, counts); err != nil {
		return nil, stats, fmt.Errorf("failed to record load metadata: %w", err)
	}
	if err := db.SaveBuildMetadata(ctx, tx); err != nil {
		return nil, stats, fmt.Errorf("failed to record build metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, stats, fmt.Errorf("failed to commit load and rebuild: %w", err)
	}

	logStats(stats)
	return counts, stats, nil
}

func rebuild(ctx context.Context, q db.Queryer) (Stats, error) {
	var stats Stats

	// One statement: fact tables reference the rebuilt dimensions, so
	// they must be truncated together. RESTART IDENTITY plus ordered
	// inserts keeps surrogate keys identical across identical inputs.
	_, err := q.Exec(ctx, `
        TRUNCATE fact_sales, fact_spend, dim_product, dim_campaign RESTART IDENTITY
    `)
	if err != nil {
		return stats, fmt.Errorf("failed to truncate fact and dimension tables: %w", err)
	}

	dates, err := BuildDateDimension(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("date dimension: %w", err)
	}
	stats.DistinctDates = dates.Distinct
	stats.UnparseableDates = dates.Unparseable
	stats.DatesInserted = dates.DatesInserted

	stats.CustomersInserted, err = BuildCustomerDimension(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("customer dimension: %w", err)
	}

	stats.ProductsInserted, stats.ZeroQuantityItems, err = BuildProductDimension(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("product dimension: %w", err)
	}

	stats.CampaignsInserted, err = BuildCampaignDimension(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("campaign dimension: %w", err)
	}

	stats.Sales, err = BuildSalesFacts(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("sales facts: %w", err)
	}

	stats.Spend, err = BuildSpendFacts(ctx, q)
	if err != nil {
		return stats, fmt.Errorf("spend facts: %w", err)
	}

	return stats, nil
}

func logStats(stats Stats) {
	dims := logging.Stage("dimensions")
	dims.Info().
		Int("distinct_dates", stats.DistinctDates).
		Int("unparseable_dates", stats.UnparseableDates).
		Int("dates_inserted", stats.DatesInserted).
		Int64("customers_inserted", stats.CustomersInserted).
		Int64("products", stats.ProductsInserted).
		Int64("campaigns", stats.CampaignsInserted).
		Msg("Dimensions rebuilt")

	facts := logging.Stage("facts")
	facts.Info().
		Int64("sales", stats.Sales.Inserted).
		Int64("sales_dropped_date_miss", stats.Sales.DroppedDateMiss).
		Int64("sales_dropped_other", stats.Sales.DroppedNoMatch).
		Int64("sales_unattributed", stats.Sales.NullCampaign).
		Int64("spend", stats.Spend.Inserted).
		Int64("spend_dropped_date_miss", stats.Spend.DroppedDateMiss).
		Int64("spend_dropped_other", stats.Spend.DroppedNoMatch).
		Int64("spend_unattributed", stats.Spend.NullCampaign).
		Msg("Facts rebuilt")

	if stats.ZeroQuantityItems > 0 {
		dims.Warn().
			Int64("groups", stats.ZeroQuantityItems).
			Msg("Product groups excluded for zero total quantity")
	}
}
