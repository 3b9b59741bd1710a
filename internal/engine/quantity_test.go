package engine

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

func TestOptimizeQuantity(t *testing.T) {
	cases := []struct {
		name        string
		consumption float64
		moq         float64
		months      float64
		want        float64
	}{
		{"should round up to a multiple of the moq", 3, 10, 6, 20},
		{"should keep an exact multiple", 3, 6, 6, 18},
		{"should never go below the moq", 1, 50, 6, 50},
		{"should fall back to the moq without consumption", 0, 10, 6, 10},
		{"should return zero without consumption or moq", 0, 0, 6, 0},
		{"should use whole units without a moq", 2.5, 0, 6, 15},
		{"should round fractional demand up", 0.1, 0, 3, 1},
		{"should not overshoot on float noise", 0.1, 0.1, 3, 0.30000000000000004},
		{"should order one unit for negligible demand", 1e-11, 0, 6, 1},
		{"should order one lot for negligible demand", 1e-11, 4, 6, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := OptimizeQuantity(tc.consumption, tc.moq, tc.months)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.False(t, math.Signbit(got))
		})
	}
}

func TestPlanScenarios(t *testing.T) {
	p := DefaultPolicy()

	t.Run("should price the concrete scenario", func(t *testing.T) {
		s := PlanScenarios(domain.SkuRecord{AvgMonthlyConsumption: 3, MOQ: 10, UnitPrice: 800}, p)

		assert.Equal(t, 10.0, s.QuantityMOQ)
		assert.Equal(t, 20.0, s.QuantityNegotiated)
		assert.Equal(t, 20.0, s.QuantityIdeal)
		assert.True(t, s.InvestmentMOQ.Equal(decimal.NewFromInt(8000)))
		assert.True(t, s.InvestmentIdeal.Equal(decimal.NewFromInt(16000)))
	})

	t.Run("should use the fallback lot when there is no moq", func(t *testing.T) {
		s := PlanScenarios(domain.SkuRecord{AvgMonthlyConsumption: 2, UnitPrice: 1.5}, p)

		assert.Equal(t, 50.0, s.QuantityMOQ)
		assert.Equal(t, 10.0, s.QuantityNegotiated)
		assert.Equal(t, 12.0, s.QuantityIdeal)
		assert.Equal(t, "75.00", s.InvestmentMOQ.StringFixed(2))
		assert.Equal(t, "18.00", s.InvestmentIdeal.StringFixed(2))
	})

	t.Run("should not order without demand or moq", func(t *testing.T) {
		s := PlanScenarios(domain.SkuRecord{UnitPrice: 10}, p)

		assert.Zero(t, s.QuantityMOQ)
		assert.Zero(t, s.QuantityIdeal)
		assert.True(t, s.InvestmentIdeal.IsZero())
	})

	t.Run("should keep quantities with a missing price", func(t *testing.T) {
		s := PlanScenarios(domain.SkuRecord{AvgMonthlyConsumption: 3, MOQ: 10}, p)

		assert.Equal(t, 20.0, s.QuantityIdeal)
		assert.True(t, s.InvestmentMOQ.IsZero())
		assert.True(t, s.InvestmentNegotiated.IsZero())
		assert.True(t, s.InvestmentIdeal.IsZero())
	})

	t.Run("should order the scenarios", func(t *testing.T) {
		for _, rec := range []domain.SkuRecord{
			{AvgMonthlyConsumption: 3, MOQ: 10, UnitPrice: 1},
			{AvgMonthlyConsumption: 40, MOQ: 12, UnitPrice: 1},
			{AvgMonthlyConsumption: 0.4, UnitPrice: 1},
		} {
			s := PlanScenarios(rec, p)
			assert.LessOrEqual(t, s.QuantityNegotiated, s.QuantityIdeal)
			if rec.MOQ > 0 {
				assert.LessOrEqual(t, s.QuantityMOQ, s.QuantityNegotiated)
			}
		}
	})
}
