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

// MergedDailyRow is one (date, campaign) row of the merged relation: the
// zero-filled full-outer merge of sales and spend that every KPI is
// computed from. A nil CampaignKey is the unattributed bucket.
type MergedDailyRow struct {
	DateKey     int64
	CampaignKey *int64
	Revenue     float64
	Cost        float64
	Orders      int64
	Spend       float64
	Clicks      int64
	Impressions int64
}

// KPISet holds the derived metrics shared by every KPI grouping. Ratio
// metrics are nil exactly when their denominator is zero: a nil ROAS
// means no spend occurred, a zero ROAS means spend produced nothing.
type KPISet struct {
	Revenue     float64
	Cost        float64
	Spend       float64
	Orders      int64
	Clicks      int64
	Impressions int64
	AOV         *float64
	CTR         *float64
	ROAS        *float64
	ProfitROAS  *float64
	ROI         *float64
	ProfitROI   *float64
	GrossProfit float64
	NetProfit   float64
}

// ChannelKPI is one row of the channel-level KPI summary. A nil Channel
// aggregates the sales that matched no campaign.
type ChannelKPI struct {
	Channel *string
	KPISet
}

// CampaignKPI is one row of the campaign-level KPI summary.
type CampaignKPI struct {
	CampaignKey  *int64
	CampaignName *string
	Channel      *string
	KPISet
}

// DayChannelKPI is one row of the day x channel KPI summary.
type DayChannelKPI struct {
	Date    time.Time
	Channel *string
	KPISet
}

const kpiColumns = `revenue, cost, spend, orders, clicks, impressions,
       aov, ctr, roas, profit_roas, roi, profit_roi, gross_profit, net_profit`

func scanKPISet(scan func(dest ...any) error, extra []any, set *KPISet) error {
	dest := append(extra,
		&set.Revenue, &set.Cost, &set.Spend, &set.Orders, &set.Clicks, &set.Impressions,
		&set.AOV, &set.CTR, &set.ROAS, &set.ProfitROAS, &set.ROI, &set.ProfitROI,
		&set.GrossProfit, &set.NetProfit)
	return scan(dest...)
}

// MergedDaily returns the merged per-(date, campaign) relation, ordered
// for deterministic output.
func MergedDaily(ctx context.Context, q db.Queryer) ([]MergedDailyRow, error) {
	rows, err := q.Query(ctx, `
        SELECT date_key, campaign_key, revenue, cost, orders, spend, clicks, impressions
        FROM vw_daily_campaign_merged
        ORDER BY date_key, campaign_key NULLS LAST
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query merged relation: %w", err)
	}
	defer rows.Close()

	var out []MergedDailyRow
	for rows.Next() {
		var r MergedDailyRow
		if err := rows.Scan(&r.DateKey, &r.CampaignKey, &r.Revenue, &r.Cost,
			&r.Orders, &r.Spend, &r.Clicks, &r.Impressions); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KPIByChannel returns the channel-level KPI summary.
func KPIByChannel(ctx context.Context, q db.Queryer) ([]ChannelKPI, error) {
	rows, err := q.Query(ctx, `
        SELECT channel, `+kpiColumns+`
        FROM vw_kpi_channel
        ORDER BY revenue DESC, channel NULLS LAST
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel KPIs: %w", err)
	}
	defer rows.Close()

	var out []ChannelKPI
	for rows.Next() {
		var r ChannelKPI
		if err := scanKPISet(rows.Scan, []any{&r.Channel}, &r.KPISet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KPIByCampaign returns the campaign-level KPI summary.
func KPIByCampaign(ctx context.Context, q db.Queryer) ([]CampaignKPI, error) {
	rows, err := q.Query(ctx, `
        SELECT campaign_key, campaign_name, channel, `+kpiColumns+`
        FROM vw_kpi_campaign
        ORDER BY revenue DESC, campaign_key NULLS LAST
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign KPIs: %w", err)
	}
	defer rows.Close()

	var out []CampaignKPI
	for rows.Next() {
		var r CampaignKPI
		if err := scanKPISet(rows.Scan, []any{&r.CampaignKey, &r.CampaignName, &r.Channel}, &r.KPISet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KPIByDayChannel returns the day x channel KPI summary.
func KPIByDayChannel(ctx context.Context, q db.Queryer) ([]DayChannelKPI, error) {
	rows, err := q.Query(ctx, `
        SELECT full_date, channel, `+kpiColumns+`
        FROM vw_kpi_day_channel
        ORDER BY full_date, channel NULLS LAST
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query day-channel KPIs: %w", err)
	}
	defer rows.Close()

	var out []DayChannelKPI
	for rows.Next() {
		var r DayChannelKPI
		if err := scanKPISet(rows.Scan, []any{&r.Date, &r.Channel}, &r.KPISet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
