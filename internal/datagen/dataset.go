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
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/logging"
)

// DatasetConfig controls the generated seed dataset.
type DatasetConfig struct {
	Dir           string
	Transactions  int
	Campaigns     int
	Days          int
	MalformedRate float64
	Seed          uint64
}

// DatasetResult reports what was written where.
type DatasetResult struct {
	Files map[string]string
	Rows  map[string]int
}

// File names within the output directory.
const (
	TransactionsFile = "transactions.csv"
	CampaignsFile    = "campaign_details.csv"
	SpendFile        = "channel_spend.csv"
	PromotionsFile   = "promotion_reference.csv"
)

var channels = []string{"Facebook", "Instagram", "Google", "TikTok", "Line", "Email", "Affiliate"}

var categories = []string{"Clothing", "Footwear", "Accessories", "Homeware", "Electronics", "Beauty"}

var locations = []string{
	"Bangkok", "Chiang Mai", "Phuket", "Khon Kaen", "Nakhon Ratchasima",
	"Hat Yai", "Udon Thani", "Pattaya", "Rayong", "Ayutthaya",
}

var shippingTypes = []string{"Standard", "Express", "Next-Day", "Store Pickup"}

var paymentMethods = []string{"Credit Card", "Cash", "Bank Transfer", "PromptPay", "E-Wallet"}

var frequencies = []string{"Weekly", "Fortnightly", "Monthly", "Quarterly", "Annually"}

var promoTypes = []string{"percentage", "fixed_amount", "free_shipping", "bogo"}

type campaignSeed struct {
	name      string
	promoCode string
	start     time.Time
	end       time.Time
	budget    float64
}

type productSeed struct {
	item     string
	category string
	price    float64
	cost     float64
}

type customerSeed struct {
	id           string
	age          int
	gender       string
	location     string
	subscription string
	frequency    string
}

// WriteDataset generates the four raw CSV sources into cfg.Dir. Output
// is deterministic for a given seed. A small MalformedRate fraction of
// transaction rows carries deliberately dirty dates or amounts so the
// pipeline's per-row tolerance has something to tolerate.
func WriteDataset(cfg DatasetConfig) (DatasetResult, error) {
	res := DatasetResult{Files: map[string]string{}, Rows: map[string]int{}}

	if cfg.Transactions <= 0 || cfg.Campaigns <= 0 || cfg.Days <= 0 {
		return res, fmt.Errorf("transactions, campaigns, and days must all be positive")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create output directory: %w", err)
	}

	f := NewFakerWithSeed(cfg.Seed)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(cfg.Days - 1))

	campaigns := makeCampaigns(f, cfg.Campaigns, start, end)
	products := makeProducts(f, 40)
	customers := makeCustomers(f, max(cfg.Transactions/5, 10))

	writers := []struct {
		file  string
		write func(*csv.Writer) (int, error)
	}{
		{TransactionsFile, func(w *csv.Writer) (int, error) {
			return writeTransactions(w, f, cfg, campaigns, products, customers, start, end)
		}},
		{CampaignsFile, func(w *csv.Writer) (int, error) {
			return writeCampaigns(w, campaigns)
		}},
		{SpendFile, func(w *csv.Writer) (int, error) {
			return writeSpend(w, f, campaigns, start, cfg.Days)
		}},
		{PromotionsFile, func(w *csv.Writer) (int, error) {
			return writePromotions(w, f, campaigns)
		}},
	}

	for _, spec := range writers {
		path := filepath.Join(cfg.Dir, spec.file)
		n, err := writeCSV(path, spec.write)
		if err != nil {
			return res, fmt.Errorf("failed to write %s: %w", spec.file, err)
		}
		res.Files[spec.file] = path
		res.Rows[spec.file] = n
		logging.Info().Str("file", path).Int("rows", n).Msg("Wrote seed file")
	}

	return res, nil
}

func writeCSV(path string, write func(*csv.Writer) (int, error)) (int, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	n, err := write(w)
	if err != nil {
		return 0, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return n, out.Close()
}

func makeCampaigns(f *Faker, n int, start, end time.Time) []campaignSeed {
	out := make([]campaignSeed, n)
	for i := range out {
		channel := channels[i%len(channels)]
		c := campaignSeed{
			name:   fmt.Sprintf("%s %02d", channel, i+1),
			start:  start,
			end:    end,
			budget: f.Price(20000, 500000),
		}
		// Roughly half the campaigns run a promotion.
		if f.Bool() {
			c.promoCode = fmt.Sprintf("%s%s", channel[:2], f.Digits(4))
		}
		out[i] = c
	}
	return out
}

func makeProducts(f *Faker, n int) []productSeed {
	out := make([]productSeed, 0, n)
	seen := map[string]bool{}
	for len(out) < n {
		item := f.ProductName()
		if seen[item] {
			continue
		}
		seen[item] = true
		price := f.Price(100, 5000)
		out = append(out, productSeed{
			item:     item,
			category: Choose(f, categories),
			price:    price,
			cost:     price * f.Float64(0.3, 0.8),
		})
	}
	return out
}

func makeCustomers(f *Faker, n int) []customerSeed {
	out := make([]customerSeed, n)
	for i := range out {
		out[i] = customerSeed{
			id:           fmt.Sprintf("C%05d", i+1),
			age:          f.Int(18, 70),
			gender:       ChooseWeighted(f, []string{"Female", "Male", "Other"}, []int{48, 48, 4}),
			location:     Choose(f, locations),
			subscription: ChooseWeighted(f, []string{"Yes", "No"}, []int{30, 70}),
			frequency:    Choose(f, frequencies),
		}
	}
	return out
}

func writeTransactions(w *csv.Writer, f *Faker, cfg DatasetConfig,
	campaigns []campaignSeed, products []productSeed, customers []customerSeed,
	start, end time.Time) (int, error) {

	header := []string{
		"Transaction Date", "Customer ID", "Age", "Gender", "Item Purchased",
		"Category", "Quantity", "Purchase Amount (THB)", "Cost Price (THB)",
		"Location", "Shipping Type", "Payment Method", "Previous Purchases",
		"Subscription Status", "Frequency of Purchases", "Campaign Name",
	}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	// The last campaign receives spend but never a sale, so the waste
	// report always has a candidate.
	sellable := campaigns
	if len(sellable) > 1 {
		sellable = campaigns[:len(campaigns)-1]
	}

	for i := 0; i < cfg.Transactions; i++ {
		cust := Choose(f, customers)
		prod := Choose(f, products)
		qty := ChooseWeighted(f, []int{1, 2, 3, 5}, []int{60, 25, 10, 5})

		date := f.DateRange(start, end).Format("2006-01-02")
		// A minority of rows use the day-first export format.
		if f.Int(1, 10) == 1 {
			date = f.DateRange(start, end).Format("02/01/2006")
		}

		amount := strconv.FormatFloat(prod.price*float64(qty), 'f', 2, 64)
		cost := strconv.FormatFloat(prod.cost*float64(qty), 'f', 2, 64)

		campaignName := ""
		if f.Int(1, 10) > 2 { // ~20% of sales are unattributed
			campaignName = Choose(f, sellable).name
		}

		if f.Float64(0, 1) < cfg.MalformedRate {
			// Dirty row: break either the date or the amount.
			if f.Bool() {
				date = "31-31-" + f.Digits(4)
			} else {
				amount = "N/A"
			}
		}

		row := []string{
			date, cust.id, strconv.Itoa(cust.age), cust.gender,
			prod.item, prod.category, strconv.Itoa(qty), amount, cost,
			cust.location, Choose(f, shippingTypes), Choose(f, paymentMethods),
			strconv.Itoa(f.Int(0, 40)), cust.subscription, cust.frequency,
			campaignName,
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return cfg.Transactions, nil
}

func writeCampaigns(w *csv.Writer, campaigns []campaignSeed) (int, error) {
	header := []string{"Campaign Name", "Promo Code", "Start Date", "End Date", "Budget"}
	if err := w.Write(header); err != nil {
		return 0, err
	}
	for _, c := range campaigns {
		row := []string{
			c.name, c.promoCode,
			c.start.Format("2006-01-02"), c.end.Format("2006-01-02"),
			strconv.FormatFloat(c.budget, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	return len(campaigns), nil
}

func writeSpend(w *csv.Writer, f *Faker, campaigns []campaignSeed, start time.Time, days int) (int, error) {
	header := []string{"Date", "Campaign Name", "Spend (THB)", "Impressions", "Clicks", "CTR"}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	count := 0
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		for _, c := range campaigns {
			// Campaigns are dark on some days.
			if f.Int(1, 10) <= 2 {
				continue
			}
			impressions := f.Int(500, 50000)
			clicks := f.Int(0, impressions/20)
			ctr := 0.0
			if impressions > 0 {
				ctr = float64(clicks) / float64(impressions)
			}
			row := []string{
				date, c.name,
				strconv.FormatFloat(f.Price(100, 8000), 'f', 2, 64),
				strconv.Itoa(impressions), strconv.Itoa(clicks),
				strconv.FormatFloat(ctr, 'f', 6, 64),
			}
			if err := w.Write(row); err != nil {
				return 0, err
			}
			count++
		}
	}
	return count, nil
}

func writePromotions(w *csv.Writer, f *Faker, campaigns []campaignSeed) (int, error) {
	header := []string{"Promo Code", "Promo Type", "Discount Pct", "Description"}
	if err := w.Write(header); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range campaigns {
		if c.promoCode == "" {
			continue
		}
		row := []string{
			c.promoCode, Choose(f, promoTypes),
			strconv.Itoa(f.Int(5, 40)), f.Sentence(6),
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
