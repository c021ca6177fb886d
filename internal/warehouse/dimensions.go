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

// BuildCustomerDimension inserts a first-seen attribute snapshot for
// every distinct customer identifier in the staged transactions.
// Existing customers are never overwritten (insert-if-absent), so
// attribute values survive conflicting later batches.
func BuildCustomerDimension(ctx context.Context, q db.Queryer) (int64, error) {
	tag, err := q.Exec(ctx, `
        INSERT INTO dim_customer (customer_id, age, gender, location, subscription_status, frequency_band)
        SELECT DISTINCT ON (customer_id)
               customer_id,
               safe_int(age),
               NULLIF(gender, ''),
               NULLIF(location, ''),
               NULLIF(subscription_status, ''),
               NULLIF(purchase_frequency, '')
        FROM stg_transactions
        WHERE customer_id <> ''
        ORDER BY customer_id, stg_seq
        ON CONFLICT (customer_id) DO NOTHING
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to build customer dimension: %w", err)
	}
	return tag.RowsAffected(), nil
}

// BuildProductDimension groups staged transactions by (item, category)
// and derives whole-unit price and cost as totals over total quantity.
// Rows with unparseable measures are excluded, and groups whose total
// quantity is zero are excluded entirely (division guard) and reported
// as anomalies.
func BuildProductDimension(ctx context.Context, q db.Queryer) (inserted int64, zeroQuantityGroups int64, err error) {
	tag, err := q.Exec(ctx, `
        INSERT INTO dim_product (item_name, category, unit_price, unit_cost)
        SELECT item, category,
               ROUND(SUM(amount) / SUM(qty)),
               ROUND(SUM(cost) / SUM(qty))
        FROM (
            SELECT item, category,
                   safe_numeric(purchase_amount) AS amount,
                   safe_numeric(cost_price)      AS cost,
                   safe_int(quantity)            AS qty
            FROM stg_transactions
            WHERE item <> '' AND category <> ''
        ) t
        WHERE amount IS NOT NULL AND cost IS NOT NULL AND qty IS NOT NULL
        GROUP BY item, category
        HAVING SUM(qty) > 0
        ORDER BY item, category
        ON CONFLICT (item_name, category) DO NOTHING
    `)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build product dimension: %w", err)
	}

	// Data-quality anomaly: (item, category) groups whose usable rows
	// sum to zero quantity cannot have a unit price.
	err = q.QueryRow(ctx, `
        SELECT COUNT(*) FROM (
            SELECT item, category
            FROM (
                SELECT item, category,
                       safe_numeric(purchase_amount) AS amount,
                       safe_numeric(cost_price)      AS cost,
                       safe_int(quantity)            AS qty
                FROM stg_transactions
                WHERE item <> '' AND category <> ''
            ) t
            WHERE amount IS NOT NULL AND cost IS NOT NULL AND qty IS NOT NULL
            GROUP BY item, category
            HAVING SUM(qty) <= 0
        ) z
    `).Scan(&zeroQuantityGroups)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count zero-quantity groups: %w", err)
	}

	return tag.RowsAffected(), zeroQuantityGroups, nil
}

// BuildCampaignDimension inserts one row per distinct campaign name
// across the staged inputs, ordered by name so surrogate keys are
// deterministic. The channel is the leading non-digit run of the name
// with trailing separators trimmed; the campaign details source wins
// for the optional promo code.
func BuildCampaignDimension(ctx context.Context, q db.Queryer) (int64, error) {
	tag, err := q.Exec(ctx, `
        INSERT INTO dim_campaign (campaign_name, channel, promo_code)
        WITH names AS (
            SELECT campaign_name, NULLIF(promo_code, '') AS promo_code, 0 AS pri
            FROM stg_campaign_details WHERE campaign_name <> ''
            UNION ALL
            SELECT campaign_name, NULL, 1 FROM stg_transactions WHERE campaign_name <> ''
            UNION ALL
            SELECT campaign_name, NULL, 1 FROM stg_channel_spend WHERE campaign_name <> ''
        ),
        dedup AS (
            SELECT DISTINCT ON (campaign_name) campaign_name, promo_code
            FROM names
            ORDER BY campaign_name, pri
        )
        SELECT campaign_name,
               COALESCE(NULLIF(BTRIM(SUBSTRING(campaign_name FROM '^[^0-9]*'), ' _-'), ''), campaign_name),
               promo_code
        FROM dedup
        ORDER BY campaign_name
        ON CONFLICT (campaign_name) DO NOTHING
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to build campaign dimension: %w", err)
	}
	return tag.RowsAffected(), nil
}
