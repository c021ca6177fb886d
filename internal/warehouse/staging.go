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

	"github.com/jackc/pgx/v5"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/db"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/source"
)

// stagingTables maps source names to their staging tables. The column
// lists must match source.Fields ordering.
var stagingTables = map[string]string{
	source.Transactions: "stg_transactions",
	source.Campaigns:    "stg_campaign_details",
	source.Spend:        "stg_channel_spend",
	source.Promotions:   "stg_promotion_reference",
}

// LoadStaging replaces all previously staged data with the given
// batches: truncate-and-reload, last load wins. It performs no business
// logic; rows are copied verbatim. Run it inside a transaction so a
// partial load never becomes visible.
func LoadStaging(ctx context.Context, q db.Queryer, batches []*source.RawBatch) (map[string]int, error) {
	seen := make(map[string]bool, len(batches))
	counts := make(map[string]int, len(batches))

	for _, batch := range batches {
		table, ok := stagingTables[batch.Source]
		if !ok {
			return nil, fmt.Errorf("no staging table for source %s", batch.Source)
		}
		if seen[batch.Source] {
			return nil, fmt.Errorf("duplicate batch for source %s", batch.Source)
		}
		seen[batch.Source] = true

		n, err := loadStagingTable(ctx, q, table, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", table, err)
		}
		counts[batch.Source] = n

		logging.Info().
			Str("source", batch.Source).
			Str("table", table).
			Int("rows", n).
			Msg("Staged source")
	}

	return counts, nil
}

func loadStagingTable(ctx context.Context, q db.Queryer, table string, batch *source.RawBatch) (int, error) {
	// RESTART IDENTITY so stg_seq restarts each cycle; first-seen
	// ordering is then stable across identical reloads.
	if _, err := q.Exec(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", table)); err != nil {
		return 0, fmt.Errorf("failed to truncate: %w", err)
	}

	columns, err := source.Fields(batch.Source)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(batch.Rows))
	for i, row := range batch.Rows {
		values := make([]any, len(columns))
		for j := range columns {
			values[j] = row[j]
		}
		rows[i] = values
	}

	copied, err := q.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy failed: %w", err)
	}

	return int(copied), nil
}

// StagedCounts returns the current row count per staging table.
func StagedCounts(ctx context.Context, q db.Queryer) (map[string]int64, error) {
	counts := make(map[string]int64, len(stagingTables))
	for sourceName, table := range stagingTables {
		var n int64
		if err := q.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[sourceName] = n
	}
	return counts, nil
}
