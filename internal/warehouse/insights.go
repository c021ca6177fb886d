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
	"time"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
)

// Product classification labels. Every product lands in exactly one,
// comparing its units sold and margin against the unweighted arithmetic
// mean across all products.
const (
	ClassHero           = "hero"
	ClassFreeRider      = "free_rider"
	ClassPremium        = "premium"
	ClassUnderperformer = "underperformer"
)

// ProductRank is one row of the top-products query.
type ProductRank struct {
	ProductKey int64
	ItemName   string
	Category   string
	Units      int64
	Revenue    float64
	Margin     float64
}

// ProductClass is one row of the hero/free-rider classification.
type ProductClass struct {
	ProductKey     int64
	ItemName       string
	Category       string
	Units          float64
	Margin         float64
	Classification string
}

// RetentionSummary is the overall repeat-purchase summary.
type RetentionSummary struct {
	Customers       int64
	RepeatCustomers int64
	RetentionRate   *float64
}

// CohortRetention is one month's cohort with its next-month retention.
type CohortRetention struct {
	CohortMonth   time.Time
	NewCustomers  int64
	Retained      int64
	RetentionRate *float64
}

// SegmentSummary is one row of a customer segmentation query.
type SegmentSummary struct {
	Segment   string
	Customers int64
	Orders    int64
	Revenue   float64
	AOV       *float64
}

// CampaignWaste is one row of the spend-waste flagging query.
type CampaignWaste struct {
	CampaignKey  int64
	CampaignName string
	Channel      string
	Spend        float64
	Clicks       int64
	Revenue      float64
	Flagged      bool
}

// segmentColumns whitelists the segmentation dimensions; age_band is
// derived, the rest are dim_customer columns.
var segmentColumns = map[string]string{
	"gender":       "COALESCE(c.gender, '(unknown)')",
	"location":     "COALESCE(c.location, '(unknown)')",
	"subscription": "COALESCE(c.subscription_status, '(unknown)')",
	"frequency":    "COALESCE(c.frequency_band, '(unknown)')",
	"age_band": `CASE
                    WHEN c.age IS NULL THEN '(unknown)'
                    WHEN c.age < 25 THEN 'under 25'
                    WHEN c.age < 35 THEN '25-34'
                    WHEN c.age < 45 THEN '35-44'
                    WHEN c.age < 55 THEN '45-54'
                    ELSE '55+'
                 END`,
}

// SegmentDimensions lists the supported segmentation dimensions.
func SegmentDimensions() []string {
	return []string{"gender", "location", "subscription", "frequency", "age_band"}
}

// TopProducts returns the n best-selling products by revenue. Ordering
// is strict descending on revenue with ties broken by ascending product
// key, so repeated runs return the same ranking.
func TopProducts(ctx context.Context, q db.Queryer, n int) ([]ProductRank, error) {
	rows, err := q.Query(ctx, `
        SELECT p.product_key, p.item_name, p.category,
               SUM(f.quantity)                 AS units,
               ROUND(SUM(f.revenue), 2)        AS revenue,
               ROUND(SUM(f.revenue - f.cost), 2) AS margin
        FROM fact_sales f
        JOIN dim_product p ON p.product_key = f.product_key
        GROUP BY p.product_key, p.item_name, p.category
        ORDER BY SUM(f.revenue) DESC, p.product_key ASC
        LIMIT $1
    `, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var out []ProductRank
	for rows.Next() {
		var r ProductRank
		if err := rows.Scan(&r.ProductKey, &r.ItemName, &r.Category, &r.Units, &r.Revenue, &r.Margin); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClassifyProducts buckets every product into one of the four
// hero/free-rider labels. The baseline is the unweighted arithmetic
// mean of units sold and margin across all products (not weighted, not
// a median), and products with no surviving facts count as zeros so the
// partition is exhaustive.
func ClassifyProducts(ctx context.Context, q db.Queryer) ([]ProductClass, error) {
	rows, err := q.Query(ctx, `
        WITH product_perf AS (
            SELECT p.product_key, p.item_name, p.category,
                   COALESCE(SUM(f.quantity), 0)::NUMERIC       AS units,
                   COALESCE(SUM(f.revenue - f.cost), 0)        AS margin
            FROM dim_product p
            LEFT JOIN fact_sales f ON f.product_key = p.product_key
            GROUP BY p.product_key, p.item_name, p.category
        ),
        baseline AS (
            SELECT AVG(units) AS avg_units, AVG(margin) AS avg_margin
            FROM product_perf
        )
        SELECT pp.product_key, pp.item_name, pp.category,
               pp.units, ROUND(pp.margin, 2),
               CASE
                   WHEN pp.units >= b.avg_units AND pp.margin >= b.avg_margin THEN 'hero'
                   WHEN pp.units >= b.avg_units AND pp.margin <  b.avg_margin THEN 'free_rider'
                   WHEN pp.units <  b.avg_units AND pp.margin >= b.avg_margin THEN 'premium'
                   ELSE 'underperformer'
               END AS classification
        FROM product_perf pp
        CROSS JOIN baseline b
        ORDER BY pp.product_key
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to classify products: %w", err)
	}
	defer rows.Close()

	var out []ProductClass
	for rows.Next() {
		var r ProductClass
		if err := rows.Scan(&r.ProductKey, &r.ItemName, &r.Category, &r.Units, &r.Margin, &r.Classification); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Retention returns the overall repeat-purchase summary: the share of
// purchasing customers who bought on two or more distinct days.
func Retention(ctx context.Context, q db.Queryer) (RetentionSummary, error) {
	var res RetentionSummary
	err := q.QueryRow(ctx, `
        WITH per_customer AS (
            SELECT customer_id, COUNT(DISTINCT date_key) AS active_days
            FROM fact_sales
            GROUP BY customer_id
        )
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE active_days >= 2),
               ROUND(COUNT(*) FILTER (WHERE active_days >= 2)::NUMERIC / NULLIF(COUNT(*), 0), 4)
        FROM per_customer
    `).Scan(&res.Customers, &res.RepeatCustomers, &res.RetentionRate)
	if err != nil {
		return res, fmt.Errorf("failed to query retention: %w", err)
	}
	return res, nil
}

// CohortRetentionByMonth returns monthly first-purchase cohorts with
// their next-month retention.
func CohortRetentionByMonth(ctx context.Context, q db.Queryer) ([]CohortRetention, error) {
	rows, err := q.Query(ctx, `
        WITH first_purchase AS (
            SELECT f.customer_id,
                   DATE_TRUNC('month', MIN(d.full_date))::date AS cohort_month
            FROM fact_sales f
            JOIN dim_date d ON d.date_key = f.date_key
            GROUP BY f.customer_id
        ),
        next_month AS (
            SELECT fp.cohort_month, COUNT(DISTINCT fp.customer_id) AS retained
            FROM first_purchase fp
            JOIN fact_sales f ON f.customer_id = fp.customer_id
            JOIN dim_date d ON d.date_key = f.date_key
            WHERE DATE_TRUNC('month', d.full_date)::date = (fp.cohort_month + INTERVAL '1 month')::date
            GROUP BY fp.cohort_month
        )
        SELECT fp.cohort_month,
               COUNT(*) AS new_customers,
               COALESCE(MAX(nm.retained), 0) AS retained,
               ROUND(COALESCE(MAX(nm.retained), 0)::NUMERIC / NULLIF(COUNT(*), 0), 4) AS retention_rate
        FROM first_purchase fp
        LEFT JOIN next_month nm ON nm.cohort_month = fp.cohort_month
        GROUP BY fp.cohort_month
        ORDER BY fp.cohort_month
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort retention: %w", err)
	}
	defer rows.Close()

	var out []CohortRetention
	for rows.Next() {
		var r CohortRetention
		if err := rows.Scan(&r.CohortMonth, &r.NewCustomers, &r.Retained, &r.RetentionRate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Segments aggregates revenue, orders, and AOV over one customer
// dimension attribute.
func Segments(ctx context.Context, q db.Queryer, dimension string) ([]SegmentSummary, error) {
	expr, ok := segmentColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown segment dimension: %s", dimension)
	}

	rows, err := q.Query(ctx, fmt.Sprintf(`
        SELECT %s AS segment,
               COUNT(DISTINCT f.customer_id)             AS customers,
               COUNT(*)                                  AS orders,
               ROUND(SUM(f.revenue), 2)                  AS revenue,
               ROUND(SUM(f.revenue) / NULLIF(COUNT(*), 0), 4) AS aov
        FROM fact_sales f
        JOIN dim_customer c ON c.customer_id = f.customer_id
        GROUP BY 1
        ORDER BY SUM(f.revenue) DESC, segment ASC
    `, expr))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s segments: %w", dimension, err)
	}
	defer rows.Close()

	var out []SegmentSummary
	for rows.Next() {
		var r SegmentSummary
		if err := rows.Scan(&r.Segment, &r.Customers, &r.Orders, &r.Revenue, &r.AOV); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SpendWaste flags campaigns whose total spend exceeds minSpend while
// clicks stay under maxClicks and revenue under maxRevenue. Reads the
// merged relation so the numbers agree with every other KPI.
func SpendWaste(ctx context.Context, q db.Queryer, minSpend float64, maxClicks int64, maxRevenue float64) ([]CampaignWaste, error) {
	rows, err := q.Query(ctx, `
        SELECT c.campaign_key, c.campaign_name, c.channel,
               ROUND(SUM(m.spend), 2)   AS spend,
               SUM(m.clicks)            AS clicks,
               ROUND(SUM(m.revenue), 2) AS revenue,
               (SUM(m.spend) > $1 AND SUM(m.clicks) < $2 AND SUM(m.revenue) < $3) AS flagged
        FROM vw_daily_campaign_merged m
        JOIN dim_campaign c ON c.campaign_key = m.campaign_key
        GROUP BY c.campaign_key, c.campaign_name, c.channel
        ORDER BY SUM(m.spend) DESC, c.campaign_key ASC
    `, minSpend, maxClicks, maxRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to query spend waste: %w", err)
	}
	defer rows.Close()

	var out []CampaignWaste
	for rows.Next() {
		var r CampaignWaste
		if err := rows.Scan(&r.CampaignKey, &r.CampaignName, &r.Channel, &r.Spend, &r.Clicks, &r.Revenue, &r.Flagged); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
