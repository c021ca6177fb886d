//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
	"github.com/NontFakungkun/marketing-etl-analytics/pkg/version"
)

const metadataTable = "warehouse_metadata"

// createMetadataTableSQL creates the metadata table if it doesn't exist.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS warehouse_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// SaveMetadata upserts a set of metadata key/value pairs, always stamping
// the tool version.
func SaveMetadata(ctx context.Context, db Queryer, values map[string]string) error {
	if _, err := db.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	merged := map[string]string{
		"version": version.Short(),
	}
	for k, v := range values {
		merged[k] = v
	}

	for key, value := range merged {
		_, err := db.Exec(ctx, `
            INSERT INTO warehouse_metadata (key, value) VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, value)
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Int("keys", len(merged)).
		Msg("Saved metadata")

	return nil
}

// SaveLoadMetadata records a completed staging load.
func SaveLoadMetadata(ctx context.Context, db Queryer, rowCounts map[string]int) error {
	values := map[string]string{
		"loaded_at": time.Now().UTC().Format(time.RFC3339),
	}
	for source, n := range rowCounts {
		values["loaded_rows_"+source] = fmt.Sprintf("%d", n)
	}
	return SaveMetadata(ctx, db, values)
}

// SaveBuildMetadata records a completed warehouse rebuild.
func SaveBuildMetadata(ctx context.Context, db Queryer) error {
	return SaveMetadata(ctx, db, map[string]string{
		"built_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, db Queryer, key string) (string, error) {
	var value string
	err := db.QueryRow(ctx, `
        SELECT value FROM warehouse_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, db Queryer) (map[string]string, error) {
	rows, err := db.Query(ctx, `SELECT key, value FROM warehouse_metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, db Queryer) error {
	_, err := db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", metadataTable))
	return err
}

// MetadataExists checks if the metadata table exists.
func MetadataExists(ctx context.Context, db Queryer) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_name = $1
        )
    `, metadataTable).Scan(&exists)
	return exists, err
}
