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
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
)

// dateLayouts are the accepted raw date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// ParseDate parses a raw date string from a staged row. The time-of-day
// portion, if any, is discarded.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", raw)
}

// DateKey derives the date dimension identifier: Unix seconds of
// midnight UTC. A pure function of the calendar date, so reloads always
// produce the same key.
func DateKey(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// Season returns the coarse season label for a month. The month ranges
// are a business-policy constant inherited from the source system; do
// not recompute per locale.
func Season(month time.Month) string {
	switch {
	case month >= time.March && month <= time.May:
		return "Summer"
	case month >= time.June && month <= time.September:
		return "Rainy"
	default:
		return "Cool"
	}
}

// DateStageResult reports date-resolution outcomes for one cycle.
type DateStageResult struct {
	Distinct      int
	Unparseable   int
	DatesInserted int
}

// BuildDateDimension resolves every distinct raw date string across the
// staged inputs: parses it (an unparseable string is counted and
// skipped, never fatal), rebuilds stg_date_map, and inserts
// any new calendar dates into dim_date. Existing dim_date rows are left
// alone (insert-if-absent; the key is a pure function of the date anyway).
func BuildDateDimension(ctx context.Context, q db.Queryer) (DateStageResult, error) {
	var res DateStageResult

	rows, err := q.Query(ctx, `
        SELECT transaction_date FROM stg_transactions WHERE transaction_date <> ''
        UNION
        SELECT spend_date FROM stg_channel_spend WHERE spend_date <> ''
    `)
	if err != nil {
		return res, fmt.Errorf("failed to select raw dates: %w", err)
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return res, err
		}
		raw = append(raw, v)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}
	res.Distinct = len(raw)

	// Deterministic processing order.
	sort.Strings(raw)

	type dateRow struct {
		key  int64
		date time.Time
	}
	mapRows := make([][]any, 0, len(raw))
	byKey := make(map[int64]time.Time)
	for _, v := range raw {
		t, err := ParseDate(v)
		if err != nil {
			res.Unparseable++
			logging.Debug().Str("value", v).Msg("Skipping unparseable date")
			continue
		}
		key := DateKey(t)
		mapRows = append(mapRows, []any{v, key})
		byKey[key] = t
	}

	if _, err := q.Exec(ctx, "TRUNCATE stg_date_map"); err != nil {
		return res, fmt.Errorf("failed to truncate date map: %w", err)
	}
	if len(mapRows) > 0 {
		_, err = q.CopyFrom(ctx, pgx.Identifier{"stg_date_map"},
			[]string{"raw_value", "date_key"}, pgx.CopyFromRows(mapRows))
		if err != nil {
			return res, fmt.Errorf("failed to populate date map: %w", err)
		}
	}

	dates := make([]dateRow, 0, len(byKey))
	for key, t := range byKey {
		dates = append(dates, dateRow{key: key, date: t})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].key < dates[j].key })

	for _, d := range dates {
		_, week := d.date.ISOWeek()
		tag, err := q.Exec(ctx, `
            INSERT INTO dim_date (date_key, full_date, day_of_month, week_of_year, month, year, season)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (date_key) DO NOTHING
        `, d.key, d.date, d.date.Day(), week, int(d.date.Month()), d.date.Year(), Season(d.date.Month()))
		if err != nil {
			return res, fmt.Errorf("failed to insert date %s: %w", d.date.Format("2006-01-02"), err)
		}
		res.DatesInserted += int(tag.RowsAffected())
	}

	return res, nil
}
