//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/source"
)

func testDatasetConfig(dir string) DatasetConfig {
	return DatasetConfig{
		Dir:           dir,
		Transactions:  200,
		Campaigns:     6,
		Days:          30,
		MalformedRate: 0.05,
		Seed:          42,
	}
}

func TestWriteDataset(t *testing.T) {
	dir := t.TempDir()
	res, err := WriteDataset(testDatasetConfig(dir))
	if err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	if res.Rows[TransactionsFile] != 200 {
		t.Errorf("transactions: got %d rows, want 200", res.Rows[TransactionsFile])
	}
	if res.Rows[CampaignsFile] != 6 {
		t.Errorf("campaigns: got %d rows, want 6", res.Rows[CampaignsFile])
	}
	if res.Rows[SpendFile] == 0 {
		t.Error("spend file is empty")
	}

	for _, file := range []string{TransactionsFile, CampaignsFile, SpendFile, PromotionsFile} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("missing output file %s: %v", file, err)
		}
	}
}

// TestDatasetHeadersMatchSources verifies the generated files parse
// through the source readers, i.e. headers map onto the semantic fields.
func TestDatasetHeadersMatchSources(t *testing.T) {
	dir := t.TempDir()
	res, err := WriteDataset(testDatasetConfig(dir))
	if err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	cases := []struct {
		sourceName string
		file       string
	}{
		{source.Transactions, TransactionsFile},
		{source.Campaigns, CampaignsFile},
		{source.Spend, SpendFile},
		{source.Promotions, PromotionsFile},
	}
	for _, tc := range cases {
		batch, err := source.ReadFile(tc.sourceName, res.Files[tc.file])
		if err != nil {
			t.Errorf("ReadFile(%s): %v", tc.sourceName, err)
			continue
		}
		if len(batch.Rows) != res.Rows[tc.file] {
			t.Errorf("%s: read %d rows, wrote %d", tc.sourceName, len(batch.Rows), res.Rows[tc.file])
		}
	}
}

func TestWriteDatasetDeterministic(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	if _, err := WriteDataset(testDatasetConfig(dirA)); err != nil {
		t.Fatalf("first WriteDataset failed: %v", err)
	}
	if _, err := WriteDataset(testDatasetConfig(dirB)); err != nil {
		t.Fatalf("second WriteDataset failed: %v", err)
	}

	for _, file := range []string{TransactionsFile, CampaignsFile, SpendFile, PromotionsFile} {
		a, err := os.ReadFile(filepath.Join(dirA, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		if string(a) != string(b) {
			t.Errorf("%s differs between runs with the same seed", file)
		}
	}
}

func TestWriteDatasetRejectsBadConfig(t *testing.T) {
	cfg := testDatasetConfig(t.TempDir())
	cfg.Transactions = 0
	if _, err := WriteDataset(cfg); err == nil {
		t.Error("expected error for zero transactions")
	}
}
