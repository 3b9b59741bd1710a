package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func decision(id, supplier string, urgency domain.Urgency, days int, ideal int64) domain.Decision {
	return domain.Decision{
		SKU: domain.SkuRecord{ID: id, Supplier: supplier},
		Timeline: domain.TimelineEntry{
			Urgency:         urgency,
			DaysUntilOrder:  days,
			QuantityIdeal:   10,
			OrderVolume:     0.5,
			InvestmentIdeal: decimalFromInt(ideal),
		},
		Priority: domain.PriorityRecord{Criticality: domain.CriticalityLow, RelevanceClass: domain.RelevanceHigh},
	}
}

func TestSummarize(t *testing.T) {
	decisions := []domain.Decision{
		decision("A", "Beta", domain.UrgencyBuyNow, 0, 100),
		decision("B", "Alpha", domain.UrgencyMonitor, 90, 300),
		decision("C", "Beta", domain.UrgencyUrgent, 12, 200),
		decision("D", "Gamma", domain.UrgencyMonitor, 80, 50),
	}

	s := Summarize(decisions)

	assert.Equal(t, 4, s.Records)
	assert.True(t, s.Investment.Ideal.Equal(decimalFromInt(650)))
	assert.Equal(t, 2, s.ByUrgency[domain.UrgencyMonitor])
	assert.Equal(t, 4, s.ByCriticality[domain.CriticalityLow])

	require.Len(t, s.Suppliers, 3)
	assert.Equal(t, "Alpha", s.Suppliers[0].Supplier)
	assert.Equal(t, "Beta", s.Suppliers[1].Supplier)
	assert.Equal(t, 2, s.Suppliers[1].SKUs)
	assert.Equal(t, 1, s.Suppliers[1].BuyNow)
	assert.Equal(t, 10.0, s.Suppliers[1].IdealOrderCBM)
	assert.Equal(t, 5.0, decisions[0].Timeline.IdealOrderCBM())
	assert.Equal(t, 0.5, decisions[0].Timeline.OrderVolume)
	assert.Equal(t, 20.0, s.Suppliers[1].IdealQuantity)
	assert.Equal(t, 0, s.Suppliers[1].MinDaysUntilOrder)
	assert.Equal(t, 90, s.Suppliers[0].MinDaysUntilOrder)
	assert.Equal(t, "Gamma", s.Suppliers[2].Supplier)
}

func TestSortDecisions(t *testing.T) {
	decisions := []domain.Decision{
		decision("C", "x", domain.UrgencyUrgent, 12, 0),
		decision("B", "x", domain.UrgencyBuyNow, 0, 0),
		decision("A", "x", domain.UrgencyBuyNow, 0, 0),
	}
	decisions[0].Priority.PriorityScore = 0.9
	decisions[1].Priority.PriorityScore = 0.2
	decisions[2].Priority.PriorityScore = 0.2

	byUrgency := SortByUrgency(decisions)
	assert.Equal(t, "A", byUrgency[0].SKU.ID)
	assert.Equal(t, "B", byUrgency[1].SKU.ID)
	assert.Equal(t, "C", byUrgency[2].SKU.ID)

	byPriority := SortByPriority(decisions)
	assert.Equal(t, "C", byPriority[0].SKU.ID)
	assert.Equal(t, "A", byPriority[1].SKU.ID)

	// input order untouched
	assert.Equal(t, "C", decisions[0].SKU.ID)
}
