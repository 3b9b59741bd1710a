package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// ScenarioTotals sums the investment of every record per purchasing variant.
type ScenarioTotals struct {
	MOQ        decimal.Decimal `json:"moq"`
	Negotiated decimal.Decimal `json:"negotiated"`
	Ideal      decimal.Decimal `json:"ideal"`
}

func (t *ScenarioTotals) add(tl domain.TimelineEntry) {
	t.MOQ = t.MOQ.Add(tl.InvestmentMOQ)
	t.Negotiated = t.Negotiated.Add(tl.InvestmentNegotiated)
	t.Ideal = t.Ideal.Add(tl.InvestmentIdeal)
}

// SupplierSummary rolls up the decisions of one supplier.
type SupplierSummary struct {
	Supplier          string         `json:"supplier"`
	SKUs              int            `json:"skus"`
	BuyNow            int            `json:"buy_now"`
	MinDaysUntilOrder int            `json:"min_days_until_order"`
	IdealQuantity     float64        `json:"ideal_quantity"`
	Investment        ScenarioTotals `json:"investment"`
	IdealOrderCBM     float64        `json:"ideal_order_cbm"`
}

// Summary is the aggregate view of a computation pass.
type Summary struct {
	Records       int                           `json:"records"`
	Investment    ScenarioTotals                `json:"investment"`
	ByUrgency     map[domain.Urgency]int        `json:"by_urgency"`
	ByCriticality map[domain.Criticality]int    `json:"by_criticality"`
	ByRelevance   map[domain.RelevanceClass]int `json:"by_relevance"`
	Suppliers     []SupplierSummary             `json:"suppliers"`
}

// Summarize aggregates decisions into totals and per-supplier rollups.
// Suppliers are sorted by ideal investment, largest first, then by name.
func Summarize(decisions []domain.Decision) Summary {
	s := Summary{
		Records:       len(decisions),
		ByUrgency:     make(map[domain.Urgency]int),
		ByCriticality: make(map[domain.Criticality]int),
		ByRelevance:   make(map[domain.RelevanceClass]int),
	}

	bySupplier := make(map[string]*SupplierSummary)
	for _, d := range decisions {
		s.Investment.add(d.Timeline)
		s.ByUrgency[d.Timeline.Urgency]++
		s.ByCriticality[d.Priority.Criticality]++
		s.ByRelevance[d.Priority.RelevanceClass]++

		sup, ok := bySupplier[d.SKU.Supplier]
		if !ok {
			sup = &SupplierSummary{Supplier: d.SKU.Supplier, MinDaysUntilOrder: d.Timeline.DaysUntilOrder}
			bySupplier[d.SKU.Supplier] = sup
		}
		sup.SKUs++
		if d.Timeline.DaysUntilOrder < sup.MinDaysUntilOrder {
			sup.MinDaysUntilOrder = d.Timeline.DaysUntilOrder
		}
		sup.IdealQuantity += d.Timeline.QuantityIdeal
		if d.Timeline.Urgency.Rank() == 0 {
			sup.BuyNow++
		}
		sup.Investment.add(d.Timeline)
		sup.IdealOrderCBM += d.Timeline.IdealOrderCBM()
	}

	s.Suppliers = make([]SupplierSummary, 0, len(bySupplier))
	for _, sup := range bySupplier {
		s.Suppliers = append(s.Suppliers, *sup)
	}
	sort.Slice(s.Suppliers, func(i, j int) bool {
		a, b := s.Suppliers[i], s.Suppliers[j]
		if c := a.Investment.Ideal.Cmp(b.Investment.Ideal); c != 0 {
			return c > 0
		}
		return a.Supplier < b.Supplier
	})

	return s
}
