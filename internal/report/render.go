//-------------------------------------------------------------------------
//
// Marketing Analytics Warehouse
//
// Copyright (c) 2025 - 2026, Nont Fakungkun
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report renders warehouse query results as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/warehouse"
)

// UnattributedLabel stands in for the null campaign/channel bucket.
const UnattributedLabel = "(unattributed)"

// Renderer writes tabular reports. Colors are optional so output stays
// clean when piped.
type Renderer struct {
	w        io.Writer
	useColor bool
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, useColor bool) *Renderer {
	return &Renderer{w: w, useColor: useColor}
}

func (r *Renderer) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func (r *Renderer) title(s string) {
	fmt.Fprintf(r.w, "\n%s\n\n", s)
}

// ratio formats a nullable ratio. An undefined ratio renders as a dash;
// it is never shown as zero.
func ratio(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func label(s *string) string {
	if s == nil {
		return UnattributedLabel
	}
	return *s
}

var kpiHeaders = []string{
	"Revenue", "Cost", "Spend", "Orders", "Clicks", "Impressions",
	"AOV", "CTR", "ROAS", "Profit ROAS", "ROI", "Profit ROI",
	"Gross Profit", "Net Profit",
}

func kpiCells(k warehouse.KPISet) []string {
	return []string{
		money(k.Revenue), money(k.Cost), money(k.Spend),
		strconv.FormatInt(k.Orders, 10),
		strconv.FormatInt(k.Clicks, 10),
		strconv.FormatInt(k.Impressions, 10),
		ratio(k.AOV, 4), ratio(k.CTR, 6),
		ratio(k.ROAS, 4), ratio(k.ProfitROAS, 4),
		ratio(k.ROI, 4), ratio(k.ProfitROI, 4),
		money(k.GrossProfit), money(k.NetProfit),
	}
}

// ChannelKPIs renders the channel-level KPI summary.
func (r *Renderer) ChannelKPIs(rows []warehouse.ChannelKPI) {
	r.title("KPIs by channel")
	table := r.newTable(append([]string{"Channel"}, kpiHeaders...))
	for _, row := range rows {
		table.Append(append([]string{label(row.Channel)}, kpiCells(row.KPISet)...))
	}
	table.Render()
}

// CampaignKPIs renders the campaign-level KPI summary.
func (r *Renderer) CampaignKPIs(rows []warehouse.CampaignKPI) {
	r.title("KPIs by campaign")
	table := r.newTable(append([]string{"Campaign", "Channel"}, kpiHeaders...))
	for _, row := range rows {
		table.Append(append(
			[]string{label(row.CampaignName), label(row.Channel)},
			kpiCells(row.KPISet)...))
	}
	table.Render()
}

// DayChannelKPIs renders the day x channel KPI summary.
func (r *Renderer) DayChannelKPIs(rows []warehouse.DayChannelKPI) {
	r.title("KPIs by day and channel")
	table := r.newTable(append([]string{"Date", "Channel"}, kpiHeaders...))
	for _, row := range rows {
		table.Append(append(
			[]string{row.Date.Format("2006-01-02"), label(row.Channel)},
			kpiCells(row.KPISet)...))
	}
	table.Render()
}

// TopProducts renders the top-products ranking.
func (r *Renderer) TopProducts(rows []warehouse.ProductRank) {
	r.title("Top products by revenue")
	table := r.newTable([]string{"#", "Item", "Category", "Units", "Revenue", "Margin"})
	for i, row := range rows {
		table.Append([]string{
			strconv.Itoa(i + 1), row.ItemName, row.Category,
			strconv.FormatInt(row.Units, 10), money(row.Revenue), money(row.Margin),
		})
	}
	table.Render()
}

// ProductClasses renders the hero/free-rider classification.
func (r *Renderer) ProductClasses(rows []warehouse.ProductClass) {
	r.title("Product classification")
	table := r.newTable([]string{"Item", "Category", "Units", "Margin", "Class"})
	for _, row := range rows {
		class := row.Classification
		if r.useColor {
			switch class {
			case warehouse.ClassHero:
				class = color.GreenString(class)
			case warehouse.ClassUnderperformer:
				class = color.RedString(class)
			}
		}
		table.Append([]string{
			row.ItemName, row.Category,
			strconv.FormatFloat(row.Units, 'f', 0, 64),
			money(row.Margin), class,
		})
	}
	table.Render()
}

// Retention renders the overall repeat-purchase summary and the monthly
// cohorts.
func (r *Renderer) Retention(summary warehouse.RetentionSummary, cohorts []warehouse.CohortRetention) {
	r.title("Customer retention")
	fmt.Fprintf(r.w, "Customers: %d  Repeat: %d  Rate: %s\n",
		summary.Customers, summary.RepeatCustomers, ratio(summary.RetentionRate, 4))

	if len(cohorts) == 0 {
		return
	}
	table := r.newTable([]string{"Cohort", "New Customers", "Retained Next Month", "Rate"})
	for _, c := range cohorts {
		table.Append([]string{
			c.CohortMonth.Format("2006-01"),
			strconv.FormatInt(c.NewCustomers, 10),
			strconv.FormatInt(c.Retained, 10),
			ratio(c.RetentionRate, 4),
		})
	}
	table.Render()
}

// Segments renders one customer segmentation.
func (r *Renderer) Segments(dimension string, rows []warehouse.SegmentSummary) {
	r.title("Customers by " + dimension)
	table := r.newTable([]string{"Segment", "Customers", "Orders", "Revenue", "AOV"})
	for _, row := range rows {
		table.Append([]string{
			row.Segment,
			strconv.FormatInt(row.Customers, 10),
			strconv.FormatInt(row.Orders, 10),
			money(row.Revenue), ratio(row.AOV, 4),
		})
	}
	table.Render()
}

// SpendWaste renders the waste report. Flagged campaigns are highlighted.
func (r *Renderer) SpendWaste(rows []warehouse.CampaignWaste) {
	r.title("Campaign spend review")
	table := r.newTable([]string{"Campaign", "Channel", "Spend", "Clicks", "Revenue", "Status"})
	for _, row := range rows {
		status := "ok"
		if row.Flagged {
			status = "WASTE"
			if r.useColor {
				status = color.RedString(status)
			}
		}
		table.Append([]string{
			row.CampaignName, row.Channel,
			money(row.Spend), strconv.FormatInt(row.Clicks, 10),
			money(row.Revenue), status,
		})
	}
	table.Render()
}

// BuildStats renders the pipeline statistics after a rebuild.
func (r *Renderer) BuildStats(stats warehouse.Stats) {
	r.title("Build summary")
	table := r.newTable([]string{"Stage", "Result"})
	table.Append([]string{"dates resolved", fmt.Sprintf("%d distinct, %d unparseable", stats.DistinctDates, stats.UnparseableDates)})
	table.Append([]string{"customers", strconv.FormatInt(stats.CustomersInserted, 10)})
	table.Append([]string{"products", strconv.FormatInt(stats.ProductsInserted, 10)})
	table.Append([]string{"campaigns", strconv.FormatInt(stats.CampaignsInserted, 10)})
	table.Append([]string{"sales facts", fmt.Sprintf("%d inserted, %d dropped, %d unattributed",
		stats.Sales.Inserted, stats.Sales.DroppedDateMiss+stats.Sales.DroppedNoMatch, stats.Sales.NullCampaign)})
	table.Append([]string{"spend facts", fmt.Sprintf("%d inserted, %d dropped, %d unattributed",
		stats.Spend.Inserted, stats.Spend.DroppedDateMiss+stats.Spend.DroppedNoMatch, stats.Spend.NullCampaign)})
	table.Render()
}
