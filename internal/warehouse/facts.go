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

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
)

// SalesFactResult reports sales fact-building outcomes for one cycle.
type SalesFactResult struct {
	Inserted        int64
	DroppedDateMiss int64
	DroppedNoMatch  int64 // product miss, missing customer id, or unparseable measures
	NullCampaign    int64
}

// SpendFactResult reports spend fact-building outcomes for one cycle.
type SpendFactResult struct {
	Inserted        int64
	DroppedDateMiss int64
	DroppedNoMatch  int64
	NullCampaign    int64
}

// BuildSalesFacts populates fact_sales from staged transactions with a
// single set-based insert. Date and product lookups are inner joins:
// there is no unknown-member sentinel, so a miss drops the row. The
// campaign lookup is a left join: a miss keeps the sale with a null
// campaign reference. Measures are copied verbatim after safe casts.
func BuildSalesFacts(ctx context.Context, q db.Queryer) (SalesFactResult, error) {
	var res SalesFactResult

	tag, err := q.Exec(ctx, `
        INSERT INTO fact_sales (date_key, customer_id, product_key, campaign_key,
                                quantity, revenue, cost, shipping_type, payment_method, prior_purchases)
        SELECT dm.date_key,
               s.customer_id,
               p.product_key,
               c.campaign_key,
               safe_int(s.quantity),
               ROUND(safe_numeric(s.purchase_amount), 2),
               ROUND(safe_numeric(s.cost_price), 2),
               NULLIF(s.shipping_type, ''),
               NULLIF(s.payment_method, ''),
               safe_int(s.prior_purchases)
        FROM stg_transactions s
        JOIN stg_date_map dm ON dm.raw_value = s.transaction_date
        JOIN dim_product p ON p.item_name = s.item AND p.category = s.category
        LEFT JOIN dim_campaign c ON c.campaign_name = s.campaign_name
        WHERE s.customer_id <> ''
          AND safe_int(s.quantity) IS NOT NULL
          AND safe_numeric(s.purchase_amount) IS NOT NULL
          AND safe_numeric(s.cost_price) IS NOT NULL
        ORDER BY s.stg_seq
    `)
	if err != nil {
		return res, fmt.Errorf("failed to build sales facts: %w", err)
	}
	res.Inserted = tag.RowsAffected()

	// Data-quality counts; logged, never surfaced as errors.
	err = q.QueryRow(ctx, `
        SELECT COUNT(*) FROM stg_transactions s
        LEFT JOIN stg_date_map dm ON dm.raw_value = s.transaction_date
        WHERE dm.raw_value IS NULL
    `).Scan(&res.DroppedDateMiss)
	if err != nil {
		return res, fmt.Errorf("failed to count date misses: %w", err)
	}

	var staged int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM stg_transactions").Scan(&staged); err != nil {
		return res, fmt.Errorf("failed to count staged transactions: %w", err)
	}
	res.DroppedNoMatch = staged - res.Inserted - res.DroppedDateMiss

	err = q.QueryRow(ctx, "SELECT COUNT(*) FROM fact_sales WHERE campaign_key IS NULL").
		Scan(&res.NullCampaign)
	if err != nil {
		return res, fmt.Errorf("failed to count unattributed sales: %w", err)
	}

	return res, nil
}

// BuildSpendFacts populates fact_spend from staged daily channel spend.
// Same join semantics as sales: date miss drops the row, campaign miss
// yields a null reference.
func BuildSpendFacts(ctx context.Context, q db.Queryer) (SpendFactResult, error) {
	var res SpendFactResult

	tag, err := q.Exec(ctx, `
        INSERT INTO fact_spend (date_key, campaign_key, spend, impressions, clicks, observed_ctr)
        SELECT dm.date_key,
               c.campaign_key,
               ROUND(safe_numeric(s.spend), 2),
               safe_int(s.impressions),
               safe_int(s.clicks),
               ROUND(safe_numeric(s.observed_ctr), 6)
        FROM stg_channel_spend s
        JOIN stg_date_map dm ON dm.raw_value = s.spend_date
        LEFT JOIN dim_campaign c ON c.campaign_name = s.campaign_name
        WHERE safe_numeric(s.spend) IS NOT NULL
        ORDER BY s.stg_seq
    `)
	if err != nil {
		return res, fmt.Errorf("failed to build spend facts: %w", err)
	}
	res.Inserted = tag.RowsAffected()

	err = q.QueryRow(ctx, `
        SELECT COUNT(*) FROM stg_channel_spend s
        LEFT JOIN stg_date_map dm ON dm.raw_value = s.spend_date
        WHERE dm.raw_value IS NULL
    `).Scan(&res.DroppedDateMiss)
	if err != nil {
		return res, fmt.Errorf("failed to count date misses: %w", err)
	}

	var staged int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM stg_channel_spend").Scan(&staged); err != nil {
		return res, fmt.Errorf("failed to count staged spend: %w", err)
	}
	res.DroppedNoMatch = staged - res.Inserted - res.DroppedDateMiss

	err = q.QueryRow(ctx, "SELECT COUNT(*) FROM fact_spend WHERE campaign_key IS NULL").
		Scan(&res.NullCampaign)
	if err != nil {
		return res, fmt.Errorf("failed to count unattributed spend: %w", err)
	}

	return res, nil
}
