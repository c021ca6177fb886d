//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse implements the dimensional model and the ETL
// transformation pipeline: staging, dimension building, fact building,
// KPI aggregation, and the analytical insight queries.
package warehouse

import (
	"context"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
)

// Schema SQL for the marketing analytics warehouse.
//
// Staging tables hold verbatim TEXT columns; all typing happens during
// dimension/fact building through the safe_* cast helpers so that a
// malformed value excludes its row instead of failing the statement.
// The KPI views are the reporting contract: NULLIF guards every ratio
// denominator and the ROUND precisions (2 for money, 6 for CTR, 4 for
// other ratios) are fixed.
const createSchemaSQL = `
-- Cast helpers: NULL on unparseable input, never an error.
CREATE OR REPLACE FUNCTION safe_numeric(v TEXT) RETURNS NUMERIC AS $$
BEGIN
    RETURN v::NUMERIC;
EXCEPTION WHEN others THEN
    RETURN NULL;
END;
$$ LANGUAGE plpgsql IMMUTABLE;

CREATE OR REPLACE FUNCTION safe_int(v TEXT) RETURNS BIGINT AS $$
BEGIN
    RETURN v::BIGINT;
EXCEPTION WHEN others THEN
    RETURN NULL;
END;
$$ LANGUAGE plpgsql IMMUTABLE;

-- Staging: truncate-and-reload, no referential integrity.
-- stg_seq preserves file order so "first seen" is well defined.
CREATE TABLE IF NOT EXISTS stg_transactions (
    stg_seq             BIGSERIAL PRIMARY KEY,
    transaction_date    TEXT,
    customer_id         TEXT,
    age                 TEXT,
    gender              TEXT,
    item                TEXT,
    category            TEXT,
    quantity            TEXT,
    purchase_amount     TEXT,
    cost_price          TEXT,
    location            TEXT,
    shipping_type       TEXT,
    payment_method      TEXT,
    prior_purchases     TEXT,
    subscription_status TEXT,
    purchase_frequency  TEXT,
    campaign_name       TEXT
);

CREATE TABLE IF NOT EXISTS stg_campaign_details (
    stg_seq       BIGSERIAL PRIMARY KEY,
    campaign_name TEXT,
    promo_code    TEXT,
    start_date    TEXT,
    end_date      TEXT,
    budget        TEXT
);

CREATE TABLE IF NOT EXISTS stg_channel_spend (
    stg_seq       BIGSERIAL PRIMARY KEY,
    spend_date    TEXT,
    campaign_name TEXT,
    spend         TEXT,
    impressions   TEXT,
    clicks        TEXT,
    observed_ctr  TEXT
);

CREATE TABLE IF NOT EXISTS stg_promotion_reference (
    stg_seq      BIGSERIAL PRIMARY KEY,
    promo_code   TEXT,
    promo_type   TEXT,
    discount_pct TEXT,
    description  TEXT
);

-- Date resolution: distinct raw date strings mapped to date keys.
-- Populated in Go (the only place parsing tolerance is needed) so the
-- fact-building joins stay fully set-based.
CREATE TABLE IF NOT EXISTS stg_date_map (
    raw_value TEXT PRIMARY KEY,
    date_key  BIGINT NOT NULL
);

-- Date Dimension: date_key is Unix seconds of midnight UTC, a pure
-- function of the calendar date.
CREATE TABLE IF NOT EXISTS dim_date (
    date_key     BIGINT PRIMARY KEY,
    full_date    DATE NOT NULL UNIQUE,
    day_of_month INTEGER NOT NULL,
    week_of_year INTEGER NOT NULL,
    month        INTEGER NOT NULL,
    year         INTEGER NOT NULL,
    season       TEXT NOT NULL
);

-- Customer Dimension: external identifier, first-seen attributes win.
CREATE TABLE IF NOT EXISTS dim_customer (
    customer_id         TEXT PRIMARY KEY,
    age                 INTEGER,
    gender              TEXT,
    location            TEXT,
    subscription_status TEXT,
    frequency_band      TEXT
);

-- Product Dimension: surrogate key, one row per (item, category).
-- Unit price/cost are totals divided by total quantity, whole units.
CREATE TABLE IF NOT EXISTS dim_product (
    product_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    item_name   TEXT NOT NULL,
    category    TEXT NOT NULL,
    unit_price  NUMERIC(12,0),
    unit_cost   NUMERIC(12,0),
    UNIQUE (item_name, category)
);

-- Campaign Dimension: surrogate key, channel derived from the name.
CREATE TABLE IF NOT EXISTS dim_campaign (
    campaign_key  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    campaign_name TEXT NOT NULL UNIQUE,
    channel       TEXT NOT NULL,
    promo_code    TEXT
);

-- Sale Fact: one row per transaction line. A null campaign_key means
-- the sale could not be attributed to any campaign.
CREATE TABLE IF NOT EXISTS fact_sales (
    sale_key        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    date_key        BIGINT NOT NULL REFERENCES dim_date (date_key),
    customer_id     TEXT NOT NULL REFERENCES dim_customer (customer_id),
    product_key     BIGINT NOT NULL REFERENCES dim_product (product_key),
    campaign_key    BIGINT REFERENCES dim_campaign (campaign_key),
    quantity        INTEGER NOT NULL,
    revenue         NUMERIC(12,2) NOT NULL,
    cost            NUMERIC(12,2) NOT NULL,
    shipping_type   TEXT,
    payment_method  TEXT,
    prior_purchases INTEGER
);

-- Spend Fact: one row per (date, campaign) ad-spend observation.
CREATE TABLE IF NOT EXISTS fact_spend (
    spend_key    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    date_key     BIGINT NOT NULL REFERENCES dim_date (date_key),
    campaign_key BIGINT REFERENCES dim_campaign (campaign_key),
    spend        NUMERIC(12,2) NOT NULL,
    impressions  BIGINT,
    clicks       BIGINT,
    observed_ctr NUMERIC(10,6)
);

CREATE INDEX IF NOT EXISTS idx_fact_sales_date ON fact_sales (date_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_customer ON fact_sales (customer_id);
CREATE INDEX IF NOT EXISTS idx_fact_sales_product ON fact_sales (product_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_campaign ON fact_sales (campaign_key);
CREATE INDEX IF NOT EXISTS idx_fact_spend_date ON fact_spend (date_key);
CREATE INDEX IF NOT EXISTS idx_fact_spend_campaign ON fact_spend (campaign_key);
CREATE INDEX IF NOT EXISTS idx_dim_product_item ON dim_product (item_name, category);
CREATE INDEX IF NOT EXISTS idx_dim_campaign_name ON dim_campaign (campaign_name);

-- Merged per-(date, campaign) relation: the single merge point all
-- channel/campaign KPIs are built on. Full outer join with zero-fill:
-- a (date, campaign) seen on only one side still produces a row.
CREATE OR REPLACE VIEW vw_daily_campaign_merged AS
WITH sales AS (
    SELECT date_key, campaign_key,
           SUM(revenue) AS revenue,
           SUM(cost)    AS cost,
           COUNT(*)     AS orders
    FROM fact_sales
    GROUP BY date_key, campaign_key
),
spend AS (
    SELECT date_key, campaign_key,
           SUM(spend)       AS spend,
           SUM(clicks)      AS clicks,
           SUM(impressions) AS impressions
    FROM fact_spend
    GROUP BY date_key, campaign_key
)
SELECT COALESCE(sa.date_key, sp.date_key)         AS date_key,
       COALESCE(sa.campaign_key, sp.campaign_key) AS campaign_key,
       COALESCE(sa.revenue, 0)                    AS revenue,
       COALESCE(sa.cost, 0)                       AS cost,
       COALESCE(sa.orders, 0)                     AS orders,
       COALESCE(sp.spend, 0)                      AS spend,
       COALESCE(sp.clicks, 0)                     AS clicks,
       COALESCE(sp.impressions, 0)                AS impressions
FROM sales sa
FULL OUTER JOIN spend sp
  ON sa.date_key = sp.date_key
 AND sa.campaign_key IS NOT DISTINCT FROM sp.campaign_key;

-- Channel-level KPI summary. A NULL channel is the unattributed bucket
-- (sales with no campaign match).
CREATE OR REPLACE VIEW vw_kpi_channel AS
SELECT c.channel,
       ROUND(SUM(m.revenue), 2) AS revenue,
       ROUND(SUM(m.cost), 2)    AS cost,
       ROUND(SUM(m.spend), 2)   AS spend,
       SUM(m.orders)            AS orders,
       SUM(m.clicks)            AS clicks,
       SUM(m.impressions)       AS impressions,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.orders), 0), 4)                         AS aov,
       ROUND(SUM(m.clicks)::NUMERIC / NULLIF(SUM(m.impressions), 0), 6)            AS ctr,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.spend), 0), 4)                          AS roas,
       ROUND((SUM(m.revenue) - SUM(m.cost)) / NULLIF(SUM(m.spend), 0), 4)          AS profit_roas,
       ROUND((SUM(m.revenue) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4)         AS roi,
       ROUND((SUM(m.revenue) - SUM(m.cost) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4) AS profit_roi,
       ROUND(SUM(m.revenue) - SUM(m.cost), 2)                                      AS gross_profit,
       ROUND(SUM(m.revenue) - SUM(m.cost) - SUM(m.spend), 2)                       AS net_profit
FROM vw_daily_campaign_merged m
LEFT JOIN dim_campaign c ON m.campaign_key = c.campaign_key
GROUP BY c.channel;

-- Campaign-level KPI summary.
CREATE OR REPLACE VIEW vw_kpi_campaign AS
SELECT m.campaign_key,
       c.campaign_name,
       c.channel,
       ROUND(SUM(m.revenue), 2) AS revenue,
       ROUND(SUM(m.cost), 2)    AS cost,
       ROUND(SUM(m.spend), 2)   AS spend,
       SUM(m.orders)            AS orders,
       SUM(m.clicks)            AS clicks,
       SUM(m.impressions)       AS impressions,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.orders), 0), 4)                         AS aov,
       ROUND(SUM(m.clicks)::NUMERIC / NULLIF(SUM(m.impressions), 0), 6)            AS ctr,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.spend), 0), 4)                          AS roas,
       ROUND((SUM(m.revenue) - SUM(m.cost)) / NULLIF(SUM(m.spend), 0), 4)          AS profit_roas,
       ROUND((SUM(m.revenue) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4)         AS roi,
       ROUND((SUM(m.revenue) - SUM(m.cost) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4) AS profit_roi,
       ROUND(SUM(m.revenue) - SUM(m.cost), 2)                                      AS gross_profit,
       ROUND(SUM(m.revenue) - SUM(m.cost) - SUM(m.spend), 2)                       AS net_profit
FROM vw_daily_campaign_merged m
LEFT JOIN dim_campaign c ON m.campaign_key = c.campaign_key
GROUP BY m.campaign_key, c.campaign_name, c.channel;

-- Day x channel KPI summary.
CREATE OR REPLACE VIEW vw_kpi_day_channel AS
SELECT d.full_date,
       c.channel,
       ROUND(SUM(m.revenue), 2) AS revenue,
       ROUND(SUM(m.cost), 2)    AS cost,
       ROUND(SUM(m.spend), 2)   AS spend,
       SUM(m.orders)            AS orders,
       SUM(m.clicks)            AS clicks,
       SUM(m.impressions)       AS impressions,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.orders), 0), 4)                         AS aov,
       ROUND(SUM(m.clicks)::NUMERIC / NULLIF(SUM(m.impressions), 0), 6)            AS ctr,
       ROUND(SUM(m.revenue) / NULLIF(SUM(m.spend), 0), 4)                          AS roas,
       ROUND((SUM(m.revenue) - SUM(m.cost)) / NULLIF(SUM(m.spend), 0), 4)          AS profit_roas,
       ROUND((SUM(m.revenue) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4)         AS roi,
       ROUND((SUM(m.revenue) - SUM(m.cost) - SUM(m.spend)) / NULLIF(SUM(m.spend), 0), 4) AS profit_roi,
       ROUND(SUM(m.revenue) - SUM(m.cost), 2)                                      AS gross_profit,
       ROUND(SUM(m.revenue) - SUM(m.cost) - SUM(m.spend), 2)                       AS net_profit
FROM vw_daily_campaign_merged m
JOIN dim_date d ON m.date_key = d.date_key
LEFT JOIN dim_campaign c ON m.campaign_key = c.campaign_key
GROUP BY d.full_date, c.channel;
`

// Drop schema SQL. Views first, then facts, then dimensions.
const dropSchemaSQL = `
DROP VIEW IF EXISTS vw_kpi_day_channel;
DROP VIEW IF EXISTS vw_kpi_campaign;
DROP VIEW IF EXISTS vw_kpi_channel;
DROP VIEW IF EXISTS vw_daily_campaign_merged;
DROP TABLE IF EXISTS fact_spend CASCADE;
DROP TABLE IF EXISTS fact_sales CASCADE;
DROP TABLE IF EXISTS dim_campaign CASCADE;
DROP TABLE IF EXISTS dim_product CASCADE;
DROP TABLE IF EXISTS dim_customer CASCADE;
DROP TABLE IF EXISTS dim_date CASCADE;
DROP TABLE IF EXISTS stg_date_map CASCADE;
DROP TABLE IF EXISTS stg_promotion_reference CASCADE;
DROP TABLE IF EXISTS stg_channel_spend CASCADE;
DROP TABLE IF EXISTS stg_campaign_details CASCADE;
DROP TABLE IF EXISTS stg_transactions CASCADE;
DROP FUNCTION IF EXISTS safe_numeric(TEXT);
DROP FUNCTION IF EXISTS safe_int(TEXT);
`

// CreateSchema creates the warehouse schema, tables, and KPI views.
func CreateSchema(ctx context.Context, q db.Queryer) error {
	_, err := q.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops the warehouse schema.
func DropSchema(ctx context.Context, q db.Queryer) error {
	_, err := q.Exec(ctx, dropSchemaSQL)
	return err
}
