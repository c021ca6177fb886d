//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads the raw tabular inputs and maps their literal
// column headers to the semantic fields the warehouse consumes. It does
// no value parsing: rows pass through verbatim, and malformed dates or
// numerics are the transformation pipeline's problem. A missing semantic
// column, however, is an upstream contract break and fails the whole
// batch here, before any staging mutation.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source names, used for staging table selection and error reporting.
const (
	Transactions = "transactions"
	Campaigns    = "campaigns"
	Spend        = "spend"
	Promotions   = "promotions"
)

// SchemaMismatchError reports a raw source missing an expected semantic
// column. It aborts the load cycle.
type SchemaMismatchError struct {
	Source  string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("source %s is missing expected columns: %s",
		e.Source, strings.Join(e.Missing, ", "))
}

// RawBatch is one raw source, fully read, with rows ordered as they
// appeared in the file. Fields holds the semantic field names; every row
// has one string per field.
type RawBatch struct {
	Source string
	Fields []string
	Rows   [][]string
}

// fieldSpec maps a semantic field name to the literal header names it may
// carry in the raw files. Matching is case-insensitive and ignores
// spaces/underscores.
type fieldSpec struct {
	name    string
	headers []string
}

var transactionFields = []fieldSpec{
	{"transaction_date", []string{"transaction_date", "date", "purchase_date"}},
	{"customer_id", []string{"customer_id", "cid"}},
	{"age", []string{"age", "customer_age"}},
	{"gender", []string{"gender"}},
	{"item", []string{"item", "item_purchased", "product"}},
	{"category", []string{"category", "product_category"}},
	{"quantity", []string{"quantity", "qty"}},
	{"purchase_amount", []string{"purchase_amount", "purchase_amount_thb", "amount"}},
	{"cost_price", []string{"cost_price", "cost_price_thb", "cost"}},
	{"location", []string{"location", "customer_location"}},
	{"shipping_type", []string{"shipping_type", "shipping"}},
	{"payment_method", []string{"payment_method", "payment"}},
	{"prior_purchases", []string{"previous_purchases", "prior_purchases"}},
	{"subscription_status", []string{"subscription_status", "subscription"}},
	{"purchase_frequency", []string{"frequency_of_purchases", "purchase_frequency"}},
	{"campaign_name", []string{"campaign_name", "campaign"}},
}

var campaignFields = []fieldSpec{
	{"campaign_name", []string{"campaign_name", "campaign"}},
	{"promo_code", []string{"promo_code", "promotion_code"}},
	{"start_date", []string{"start_date", "campaign_start"}},
	{"end_date", []string{"end_date", "campaign_end"}},
	{"budget", []string{"budget", "campaign_budget"}},
}

var spendFields = []fieldSpec{
	{"spend_date", []string{"date", "spend_date"}},
	{"campaign_name", []string{"campaign_name", "campaign"}},
	{"spend", []string{"spend", "spend_thb", "ad_spend"}},
	{"impressions", []string{"impressions"}},
	{"clicks", []string{"clicks"}},
	{"observed_ctr", []string{"ctr", "observed_ctr"}},
}

var promotionFields = []fieldSpec{
	{"promo_code", []string{"promo_code", "promotion_code"}},
	{"promo_type", []string{"promo_type", "promotion_type", "type"}},
	{"discount_pct", []string{"discount_pct", "discount_percent", "discount"}},
	{"description", []string{"description", "details"}},
}

var specsBySource = map[string][]fieldSpec{
	Transactions: transactionFields,
	Campaigns:    campaignFields,
	Spend:        spendFields,
	Promotions:   promotionFields,
}

// Fields returns the semantic field names for a source, in staging
// column order.
func Fields(sourceName string) ([]string, error) {
	specs, ok := specsBySource[sourceName]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", sourceName)
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.name
	}
	return names, nil
}

// ReadFile reads a raw CSV source from disk.
func ReadFile(sourceName, path string) (*RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", sourceName, err)
	}
	defer f.Close()

	batch, err := Read(sourceName, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s source %s: %w", sourceName, path, err)
	}
	return batch, nil
}

// Read reads a raw CSV source. The first record is the header row;
// unknown columns are ignored, missing semantic columns are fatal.
func Read(sourceName string, r io.Reader) (*RawBatch, error) {
	specs, ok := specsBySource[sourceName]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", sourceName)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index, missing := mapHeader(specs, header)
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Source: sourceName, Missing: missing}
	}

	fields, _ := Fields(sourceName)
	batch := &RawBatch{Source: sourceName, Fields: fields}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		row := make([]string, len(specs))
		for i, col := range index {
			if col < len(record) {
				row[i] = record[col]
			}
		}
		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}

// mapHeader resolves each semantic field to a header column index.
func mapHeader(specs []fieldSpec, header []string) (index []int, missing []string) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[normalizeHeader(h)] = i
	}

	index = make([]int, len(specs))
	for i, spec := range specs {
		index[i] = -1
		for _, h := range spec.headers {
			if col, ok := normalized[normalizeHeader(h)]; ok {
				index[i] = col
				break
			}
		}
		if index[i] == -1 {
			missing = append(missing, spec.name)
		}
	}
	return index, missing
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	h = strings.ReplaceAll(h, "(", "")
	h = strings.ReplaceAll(h, ")", "")
	return h
}
