//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the warehouse pipeline.
// Run with: go test -tags=integration ./internal/warehouse/...
// Requires PostgreSQL to be available.
// Set MARKETING_ETL_TEST_CONN environment variable to override connection string.

package warehouse_test

import (
	"context"
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/source"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/testutil"
	"github.com/NontFakungkun/marketing-etl-analytics/internal/warehouse"
)

// fixtureBatches builds a small hand-crafted dataset that exercises the
// interesting paths: a fully merged (date, campaign) cell, spend with no
// sales, a sale with no campaign, an unparseable date, a repeat
// customer whose second appearance carries conflicting attributes, a
// product group whose only row has zero quantity, and a row with an
// unparseable amount.
func fixtureBatches(t *testing.T) []*source.RawBatch {
	t.Helper()

	txFields, err := source.Fields(source.Transactions)
	if err != nil {
		t.Fatalf("Fields(transactions): %v", err)
	}
	campFields, err := source.Fields(source.Campaigns)
	if err != nil {
		t.Fatalf("Fields(campaigns): %v", err)
	}
	spendFields, err := source.Fields(source.Spend)
	if err != nil {
		t.Fatalf("Fields(spend): %v", err)
	}
	promoFields, err := source.Fields(source.Promotions)
	if err != nil {
		t.Fatalf("Fields(promotions): %v", err)
	}

	// transaction_date, customer_id, age, gender, item, category, quantity,
	// purchase_amount, cost_price, location, shipping_type, payment_method,
	// prior_purchases, subscription_status, purchase_frequency, campaign_name
	transactions := [][]string{
		{"2024-01-01", "C001", "30", "Female", "Shirt", "Clothing", "1", "100", "40",
			"Bangkok", "Standard", "Credit Card", "2", "Yes", "Weekly", "Facebook 01"},
		{"2024-01-01", "C002", "45", "Male", "Shirt", "Clothing", "1", "50", "10",
			"Chiang Mai", "Express", "Cash", "0", "No", "Monthly", "Facebook 01"},
		{"2024-01-02", "C001", "99", "Male", "Mug", "Homeware", "2", "80", "20",
			"Phuket", "Standard", "Credit Card", "3", "Yes", "Weekly", "Google 02"},
		{"2024-13-40", "C003", "22", "Female", "Shirt", "Clothing", "1", "60", "25",
			"Bangkok", "Standard", "Cash", "0", "No", "Monthly", "Facebook 01"},
		{"2024-01-02", "C004", "28", "Female", "Hat", "Clothing", "1", "120", "60",
			"Phuket", "Standard", "Cash", "1", "No", "Quarterly", ""},
		{"2024-01-01", "C005", "33", "Male", "Sticker", "Accessories", "0", "10", "2",
			"Bangkok", "Standard", "Cash", "0", "No", "Monthly", "Facebook 01"},
		{"2024-01-02", "C006", "41", "Female", "Shirt", "Clothing", "1", "N/A", "5",
			"Phuket", "Express", "Cash", "0", "No", "Monthly", ""},
	}

	campaigns := [][]string{
		{"Facebook 01", "FB10", "2024-01-01", "2024-03-31", "100000"},
		{"Google 02", "", "2024-01-01", "2024-03-31", "80000"},
		{"LineAds 03", "", "2024-01-01", "2024-03-31", "50000"},
	}

	// spend_date, campaign_name, spend, impressions, clicks, observed_ctr
	spend := [][]string{
		{"2024-01-01", "Facebook 01", "50", "200", "10", "0.05"},
		{"2024-01-02", "Google 02", "6000", "1000", "40", "0.04"},
		{"2024-01-01", "LineAds 03", "6000", "5000", "150", "0.03"},
	}

	promotions := [][]string{
		{"FB10", "percentage", "10", "New year social push"},
	}

	return []*source.RawBatch{
		{Source: source.Transactions, Fields: txFields, Rows: transactions},
		{Source: source.Campaigns, Fields: campFields, Rows: campaigns},
		{Source: source.Spend, Fields: spendFields, Rows: spend},
		{Source: source.Promotions, Fields: promoFields, Rows: promotions},
	}
}

// setupEmptyWarehouse provisions a throwaway database with the schema
// created but nothing staged.
func setupEmptyWarehouse(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, baseConnStr, "warehouse")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	if err := warehouse.CreateSchema(context.Background(), pool); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return pool
}

func setupWarehouse(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool := setupEmptyWarehouse(t)
	if _, err := warehouse.LoadStaging(context.Background(), pool, fixtureBatches(t)); err != nil {
		t.Fatalf("LoadStaging failed: %v", err)
	}
	return pool
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func checkRatio(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %v", name, want)
	}
	if !almostEqual(*got, want) {
		t.Errorf("%s: got %v, want %v", name, *got, want)
	}
}

// TestPipelineIntegration rebuilds the warehouse from the fixture and
// verifies the dimensional and KPI semantics end-to-end.
func TestPipelineIntegration(t *testing.T) {
	pool := setupWarehouse(t)
	ctx := context.Background()

	stats, err := warehouse.Rebuild(ctx, pool)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	t.Run("BuildStats", func(t *testing.T) {
		if stats.DistinctDates != 3 {
			t.Errorf("distinct dates: got %d, want 3", stats.DistinctDates)
		}
		if stats.UnparseableDates != 1 {
			t.Errorf("unparseable dates: got %d, want 1", stats.UnparseableDates)
		}
		if stats.DatesInserted != 2 {
			t.Errorf("dates inserted: got %d, want 2", stats.DatesInserted)
		}
		if stats.CustomersInserted != 6 {
			t.Errorf("customers: got %d, want 6", stats.CustomersInserted)
		}
		if stats.ProductsInserted != 3 {
			t.Errorf("products: got %d, want 3", stats.ProductsInserted)
		}
		if stats.ZeroQuantityItems != 1 {
			t.Errorf("zero-quantity product groups: got %d, want 1", stats.ZeroQuantityItems)
		}
		if stats.CampaignsInserted != 3 {
			t.Errorf("campaigns: got %d, want 3", stats.CampaignsInserted)
		}
		if stats.Sales.Inserted != 4 {
			t.Errorf("sales inserted: got %d, want 4", stats.Sales.Inserted)
		}
		if stats.Sales.DroppedDateMiss != 1 {
			t.Errorf("sales date misses: got %d, want 1", stats.Sales.DroppedDateMiss)
		}
		if stats.Sales.DroppedNoMatch != 2 {
			t.Errorf("sales dropped without dimension match: got %d, want 2", stats.Sales.DroppedNoMatch)
		}
		if stats.Sales.NullCampaign != 1 {
			t.Errorf("unattributed sales: got %d, want 1", stats.Sales.NullCampaign)
		}
		if stats.Spend.Inserted != 3 {
			t.Errorf("spend inserted: got %d, want 3", stats.Spend.Inserted)
		}
	})

	t.Run("DataQualityExclusions", func(t *testing.T) {
		// The (Sticker, Accessories) group only ever sold zero units, so
		// it never becomes a product and its row never becomes a fact.
		var stickers int
		err := pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM dim_product WHERE item = 'Sticker'").Scan(&stickers)
		if err != nil {
			t.Fatalf("query dim_product: %v", err)
		}
		if stickers != 0 {
			t.Errorf("zero-quantity product groups in dim_product: got %d, want 0", stickers)
		}

		// The row whose amount failed the numeric cast is excluded too.
		var facts int
		err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM fact_sales").Scan(&facts)
		if err != nil {
			t.Fatalf("query fact_sales: %v", err)
		}
		if facts != 4 {
			t.Errorf("fact_sales rows: got %d, want 4", facts)
		}
		var badAmount int
		err = pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM fact_sales WHERE customer_id = 'C006'").Scan(&badAmount)
		if err != nil {
			t.Fatalf("query fact_sales for C006: %v", err)
		}
		if badAmount != 0 {
			t.Errorf("facts for customer with unparseable amount: got %d, want 0", badAmount)
		}
	})

	t.Run("FirstWriteWinsCustomer", func(t *testing.T) {
		var age int
		var gender string
		err := pool.QueryRow(ctx,
			"SELECT age, gender FROM dim_customer WHERE customer_id = 'C001'").
			Scan(&age, &gender)
		if err != nil {
			t.Fatalf("query C001: %v", err)
		}
		if age != 30 || gender != "Female" {
			t.Errorf("C001 attributes: got (%d, %s), want (30, Female) from first appearance", age, gender)
		}
	})

	t.Run("ChannelDerivation", func(t *testing.T) {
		rows, err := pool.Query(ctx,
			"SELECT campaign_name, channel FROM dim_campaign ORDER BY campaign_name")
		if err != nil {
			t.Fatalf("query campaigns: %v", err)
		}
		defer rows.Close()

		want := map[string]string{
			"Facebook 01": "Facebook",
			"Google 02":   "Google",
			"LineAds 03":  "LineAds",
		}
		for rows.Next() {
			var name, channel string
			if err := rows.Scan(&name, &channel); err != nil {
				t.Fatal(err)
			}
			if channel != want[name] {
				t.Errorf("channel for %q: got %q, want %q", name, channel, want[name])
			}
		}
	})

	t.Run("MergedCellKPIs", func(t *testing.T) {
		// (2024-01-01, Facebook 01): sales 100+50 revenue / 40+10 cost,
		// spend 50, clicks 10, impressions 200.
		kpis, err := warehouse.KPIByCampaign(ctx, pool)
		if err != nil {
			t.Fatalf("KPIByCampaign failed: %v", err)
		}
		var fb *warehouse.CampaignKPI
		for i := range kpis {
			if kpis[i].CampaignName != nil && *kpis[i].CampaignName == "Facebook 01" {
				fb = &kpis[i]
			}
		}
		if fb == nil {
			t.Fatal("no KPI row for Facebook 01")
		}
		if !almostEqual(fb.Revenue, 150) || !almostEqual(fb.Cost, 50) || !almostEqual(fb.Spend, 50) {
			t.Errorf("totals: got revenue=%v cost=%v spend=%v, want 150/50/50",
				fb.Revenue, fb.Cost, fb.Spend)
		}
		if fb.Orders != 2 {
			t.Errorf("orders: got %d, want 2", fb.Orders)
		}
		checkRatio(t, "aov", fb.AOV, 75)
		checkRatio(t, "ctr", fb.CTR, 0.05)
		checkRatio(t, "roas", fb.ROAS, 3)
		checkRatio(t, "profit_roas", fb.ProfitROAS, 2)
		checkRatio(t, "roi", fb.ROI, 2)
		checkRatio(t, "profit_roi", fb.ProfitROI, 1)
		if !almostEqual(fb.GrossProfit, 100) || !almostEqual(fb.NetProfit, 50) {
			t.Errorf("profit: got gross=%v net=%v, want 100/50", fb.GrossProfit, fb.NetProfit)
		}
	})

	t.Run("NullVersusZeroRatios", func(t *testing.T) {
		kpis, err := warehouse.KPIByCampaign(ctx, pool)
		if err != nil {
			t.Fatalf("KPIByCampaign failed: %v", err)
		}

		var lineAds, unattributed *warehouse.CampaignKPI
		for i := range kpis {
			switch {
			case kpis[i].CampaignName != nil && *kpis[i].CampaignName == "LineAds 03":
				lineAds = &kpis[i]
			case kpis[i].CampaignKey == nil:
				unattributed = &kpis[i]
			}
		}

		// Spend with zero revenue is a real, terrible ROAS of 0.
		if lineAds == nil {
			t.Fatal("no KPI row for LineAds 03")
		}
		checkRatio(t, "lineads roas", lineAds.ROAS, 0)

		// Revenue with zero spend is an undefined ROAS, not a zero.
		if unattributed == nil {
			t.Fatal("no KPI row for the unattributed bucket")
		}
		if unattributed.ROAS != nil {
			t.Errorf("unattributed roas: got %v, want nil (no spend)", *unattributed.ROAS)
		}
		if !almostEqual(unattributed.Revenue, 120) {
			t.Errorf("unattributed revenue: got %v, want 120", unattributed.Revenue)
		}
	})

	t.Run("ProductClassification", func(t *testing.T) {
		classes, err := warehouse.ClassifyProducts(ctx, pool)
		if err != nil {
			t.Fatalf("ClassifyProducts failed: %v", err)
		}
		if len(classes) != 3 {
			t.Fatalf("got %d classified products, want 3 (partition must be exhaustive)", len(classes))
		}
		want := map[string]string{
			"Shirt": warehouse.ClassHero,           // units 2 >= 1.67, margin 100 >= 73.33
			"Mug":   warehouse.ClassFreeRider,      // units 2 >= 1.67, margin 60 < 73.33
			"Hat":   warehouse.ClassUnderperformer, // units 1 < 1.67, margin 60 < 73.33
		}
		for _, c := range classes {
			if c.Classification != want[c.ItemName] {
				t.Errorf("%s: got %q, want %q", c.ItemName, c.Classification, want[c.ItemName])
			}
		}
	})

	t.Run("TopProducts", func(t *testing.T) {
		ranks, err := warehouse.TopProducts(ctx, pool, 2)
		if err != nil {
			t.Fatalf("TopProducts failed: %v", err)
		}
		if len(ranks) != 2 {
			t.Fatalf("got %d products, want 2", len(ranks))
		}
		if ranks[0].ItemName != "Shirt" || !almostEqual(ranks[0].Revenue, 150) {
			t.Errorf("rank 1: got %s/%v, want Shirt/150", ranks[0].ItemName, ranks[0].Revenue)
		}
		if ranks[1].ItemName != "Hat" {
			t.Errorf("rank 2: got %s, want Hat", ranks[1].ItemName)
		}
	})

	t.Run("Retention", func(t *testing.T) {
		ret, err := warehouse.Retention(ctx, pool)
		if err != nil {
			t.Fatalf("Retention failed: %v", err)
		}
		// C001 bought on two days; C002 and C004 once; C003's only row
		// was dropped for its date.
		if ret.Customers != 3 || ret.RepeatCustomers != 1 {
			t.Errorf("retention: got %d/%d, want 3 customers with 1 repeat",
				ret.Customers, ret.RepeatCustomers)
		}
		checkRatio(t, "retention rate", ret.RetentionRate, 0.3333)
	})

	t.Run("CohortRetention", func(t *testing.T) {
		cohorts, err := warehouse.CohortRetentionByMonth(ctx, pool)
		if err != nil {
			t.Fatalf("CohortRetentionByMonth failed: %v", err)
		}
		if len(cohorts) != 1 {
			t.Fatalf("got %d cohorts, want 1", len(cohorts))
		}
		if cohorts[0].NewCustomers != 3 || cohorts[0].Retained != 0 {
			t.Errorf("cohort: got %d new / %d retained, want 3/0",
				cohorts[0].NewCustomers, cohorts[0].Retained)
		}
	})

	t.Run("Segments", func(t *testing.T) {
		segs, err := warehouse.Segments(ctx, pool, "gender")
		if err != nil {
			t.Fatalf("Segments failed: %v", err)
		}
		byName := map[string]warehouse.SegmentSummary{}
		for _, s := range segs {
			byName[s.Segment] = s
		}
		female := byName["Female"]
		if female.Orders != 3 || !almostEqual(female.Revenue, 300) {
			t.Errorf("Female segment: got orders=%d revenue=%v, want 3/300",
				female.Orders, female.Revenue)
		}
		male := byName["Male"]
		if male.Orders != 1 || !almostEqual(male.Revenue, 50) {
			t.Errorf("Male segment: got orders=%d revenue=%v, want 1/50",
				male.Orders, male.Revenue)
		}
	})

	t.Run("SpendWaste", func(t *testing.T) {
		waste, err := warehouse.SpendWaste(ctx, pool, 5000, 100, 3000)
		if err != nil {
			t.Fatalf("SpendWaste failed: %v", err)
		}
		flagged := map[string]bool{}
		for _, w := range waste {
			flagged[w.CampaignName] = w.Flagged
		}
		if !flagged["Google 02"] {
			t.Error("Google 02 should be flagged: 6000 spend, 40 clicks, 80 revenue")
		}
		if flagged["LineAds 03"] {
			t.Error("LineAds 03 should not be flagged: 150 clicks exceeds the waste ceiling")
		}
		if flagged["Facebook 01"] {
			t.Error("Facebook 01 should not be flagged: spend below the floor")
		}
	})
}

// TestRebuildIdempotent rebuilds twice over the same staged data and
// verifies the merged relation and surrogate keys are identical.
func TestRebuildIdempotent(t *testing.T) {
	pool := setupWarehouse(t)
	ctx := context.Background()

	if _, err := warehouse.Rebuild(ctx, pool); err != nil {
		t.Fatalf("first Rebuild failed: %v", err)
	}
	first, err := warehouse.MergedDaily(ctx, pool)
	if err != nil {
		t.Fatalf("MergedDaily failed: %v", err)
	}
	firstProducts, err := warehouse.TopProducts(ctx, pool, 10)
	if err != nil {
		t.Fatalf("TopProducts failed: %v", err)
	}

	if _, err := warehouse.Rebuild(ctx, pool); err != nil {
		t.Fatalf("second Rebuild failed: %v", err)
	}
	second, err := warehouse.MergedDaily(ctx, pool)
	if err != nil {
		t.Fatalf("MergedDaily failed: %v", err)
	}
	secondProducts, err := warehouse.TopProducts(ctx, pool, 10)
	if err != nil {
		t.Fatalf("TopProducts failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("merged row count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.DateKey != b.DateKey || !almostEqual(a.Revenue, b.Revenue) ||
			!almostEqual(a.Spend, b.Spend) || a.Orders != b.Orders {
			t.Errorf("merged row %d changed between rebuilds: %+v vs %+v", i, a, b)
		}
	}

	if len(firstProducts) != len(secondProducts) {
		t.Fatalf("product count changed: %d vs %d", len(firstProducts), len(secondProducts))
	}
	for i := range firstProducts {
		if firstProducts[i].ProductKey != secondProducts[i].ProductKey ||
			firstProducts[i].ItemName != secondProducts[i].ItemName {
			t.Errorf("product key assignment changed: %+v vs %+v",
				firstProducts[i], secondProducts[i])
		}
	}
}

// TestReloadReplacesStaging verifies that reloading a source replaces
// its staged rows rather than appending to them.
func TestReloadReplacesStaging(t *testing.T) {
	pool := setupWarehouse(t)
	ctx := context.Background()

	txFields, err := source.Fields(source.Transactions)
	if err != nil {
		t.Fatalf("Fields(transactions): %v", err)
	}
	smaller := &source.RawBatch{
		Source: source.Transactions,
		Fields: txFields,
		Rows: [][]string{
			{"2024-02-01", "C010", "40", "Male", "Shirt", "Clothing", "1", "100", "40",
				"Bangkok", "Standard", "Cash", "0", "No", "Monthly", "Facebook 01"},
		},
	}
	if _, err := warehouse.LoadStaging(ctx, pool, []*source.RawBatch{smaller}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	counts, err := warehouse.StagedCounts(ctx, pool)
	if err != nil {
		t.Fatalf("StagedCounts failed: %v", err)
	}
	if counts[source.Transactions] != 1 {
		t.Errorf("staged transactions: got %d, want 1 after reload", counts[source.Transactions])
	}
	// Other sources are untouched.
	if counts[source.Spend] != 3 {
		t.Errorf("staged spend: got %d, want 3", counts[source.Spend])
	}
}

// TestLoadAndRebuildSingleCycle verifies that staging and rebuilding in
// one call lands both: the staged counts and the star schema come out
// the same as a separate load followed by a rebuild.
func TestLoadAndRebuildSingleCycle(t *testing.T) {
	pool := setupEmptyWarehouse(t)
	ctx := context.Background()

	counts, stats, err := warehouse.LoadAndRebuild(ctx, pool, fixtureBatches(t))
	if err != nil {
		t.Fatalf("LoadAndRebuild failed: %v", err)
	}

	if counts[source.Transactions] != 7 {
		t.Errorf("staged transactions: got %d, want 7", counts[source.Transactions])
	}
	if counts[source.Campaigns] != 3 {
		t.Errorf("staged campaigns: got %d, want 3", counts[source.Campaigns])
	}
	if stats.Sales.Inserted != 4 {
		t.Errorf("sales inserted: got %d, want 4", stats.Sales.Inserted)
	}
	if stats.Spend.Inserted != 3 {
		t.Errorf("spend inserted: got %d, want 3", stats.Spend.Inserted)
	}

	var facts int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM fact_sales").Scan(&facts); err != nil {
		t.Fatalf("query fact_sales: %v", err)
	}
	if facts != 4 {
		t.Errorf("fact_sales rows: got %d, want 4", facts)
	}
}
