// Package export writes engine output as spreadsheet-friendly CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
)

var decisionHeaders = []string{
	"sku_id",
	"name",
	"supplier",
	"stock_on_hand",
	"stock_in_transit",
	"total_stock",
	"avg_monthly_consumption",
	"coverage_months",
	"coverage_days",
	"stockout_date",
	"order_date",
	"days_until_order",
	"lead_time_days",
	"urgency",
	"moq",
	"qty_moq",
	"qty_negotiated",
	"qty_ideal",
	"unit_price",
	"investment_moq",
	"investment_negotiated",
	"investment_ideal",
	"ideal_order_cbm",
	"relevance",
	"priority_score",
	"criticality",
	"annual_impact",
	"rank",
}

// delimiter returns ';' for LocaleComma so decimal commas survive spreadsheets.
func (l Locale) delimiter() rune {
	if l == LocaleComma {
		return ';'
	}
	return ','
}

// WriteDecisions writes one row per decision in a fixed column order.
// Unbounded coverage is written as empty cells.
func WriteDecisions(w io.Writer, decisions []domain.Decision, locale Locale) error {
	cw := csv.NewWriter(w)
	cw.Comma = locale.delimiter()

	if err := cw.Write(decisionHeaders); err != nil {
		return err
	}

	for _, d := range decisions {
		tl, pr := d.Timeline, d.Priority

		coverageMonths, coverageDays := "", ""
		if !tl.Unbounded() {
			coverageMonths = locale.float(tl.CoverageMonths, 2)
			coverageDays = strconv.Itoa(tl.CoverageDays)
		}

		rank := ""
		if pr.Rank > 0 {
			rank = strconv.Itoa(pr.Rank)
		}

		rec := []string{
			d.SKU.ID,
			d.SKU.Name,
			d.SKU.Supplier,
			locale.float(d.SKU.StockOnHand, 2),
			locale.float(d.SKU.StockInTransit, 2),
			locale.float(tl.TotalStock, 2),
			locale.float(d.SKU.AvgMonthlyConsumption, 2),
			coverageMonths,
			coverageDays,
			tl.StockoutDate.String(),
			tl.OrderDate.String(),
			strconv.Itoa(tl.DaysUntilOrder),
			strconv.Itoa(tl.LeadTimeDays),
			string(tl.Urgency),
			locale.float(d.SKU.MOQ, 2),
			locale.float(tl.QuantityMOQ, 2),
			locale.float(tl.QuantityNegotiated, 2),
			locale.float(tl.QuantityIdeal, 2),
			locale.money(decimalFromFloat(d.SKU.UnitPrice)),
			locale.money(tl.InvestmentMOQ),
			locale.money(tl.InvestmentNegotiated),
			locale.money(tl.InvestmentIdeal),
			locale.float(tl.IdealOrderCBM(), 3),
			string(pr.RelevanceClass),
			locale.float(pr.PriorityScore, 4),
			string(pr.Criticality),
			locale.money(pr.AnnualImpact),
			rank,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var supplierHeaders = []string{
	"supplier",
	"skus",
	"buy_now",
	"min_days_until_order",
	"ideal_quantity",
	"investment_moq",
	"investment_negotiated",
	"investment_ideal",
	"ideal_order_cbm",
}

// WriteSuppliers writes the per-supplier rollup of a summary.
func WriteSuppliers(w io.Writer, summary engine.Summary, locale Locale) error {
	cw := csv.NewWriter(w)
	cw.Comma = locale.delimiter()

	if err := cw.Write(supplierHeaders); err != nil {
		return err
	}

	for _, s := range summary.Suppliers {
		rec := []string{
			s.Supplier,
			strconv.Itoa(s.SKUs),
			strconv.Itoa(s.BuyNow),
			strconv.Itoa(s.MinDaysUntilOrder),
			locale.float(s.IdealQuantity, 2),
			locale.money(s.Investment.MOQ),
			locale.money(s.Investment.Negotiated),
			locale.money(s.Investment.Ideal),
			locale.float(s.IdealOrderCBM, 3),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
