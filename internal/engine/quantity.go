package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// ceilEpsilon absorbs float noise such as 3.0000000000000004 before rounding up.
const ceilEpsilon = 1e-9

// ceilTolerant rounds up, ignoring float noise. Any positive demand yields at
// least 1 and the result is never negative zero.
func ceilTolerant(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Max(1, math.Ceil(v-ceilEpsilon))
}

// OptimizeQuantity returns the purchase quantity covering targetMonths of
// consumption, rounded up to the smallest whole multiple of moq.
func OptimizeQuantity(consumption, moq, targetMonths float64) float64 {
	// 1. No consumption: the supplier minimum is the only basis
	if consumption <= 0 {
		if moq > 0 {
			return moq
		}
		return 0
	}

	// 2. Ideal units for the target horizon
	idealUnits := consumption * targetMonths

	// 3. Never below the supplier minimum
	if moq > idealUnits {
		return moq
	}

	// 4. No minimum: whole units
	if moq <= 0 {
		return ceilTolerant(idealUnits)
	}

	// 5. Smallest multiple of moq meeting the ideal quantity
	multiples := math.Max(1, ceilTolerant(idealUnits/moq))
	return multiples * moq
}

// Scenarios holds the three purchasing variants of a record.
type Scenarios struct {
	QuantityMOQ          float64
	QuantityNegotiated   float64
	QuantityIdeal        float64
	InvestmentMOQ        decimal.Decimal
	InvestmentNegotiated decimal.Decimal
	InvestmentIdeal      decimal.Decimal
}

// PlanScenarios computes the minimum, negotiated and ideal order variants.
// rec must carry monthly consumption (see VolumeBasis).
func PlanScenarios(rec domain.SkuRecord, p Policy) Scenarios {
	s := Scenarios{
		QuantityMOQ:        minimumQuantity(rec, p.MOQFallbackUnits),
		QuantityNegotiated: OptimizeQuantity(rec.AvgMonthlyConsumption, rec.MOQ, p.NegotiatedCoverageMonths),
		QuantityIdeal:      OptimizeQuantity(rec.AvgMonthlyConsumption, rec.MOQ, p.TargetCoverageMonths),
	}

	s.InvestmentMOQ = investment(s.QuantityMOQ, rec.UnitPrice)
	s.InvestmentNegotiated = investment(s.QuantityNegotiated, rec.UnitPrice)
	s.InvestmentIdeal = investment(s.QuantityIdeal, rec.UnitPrice)

	return s
}

// minimumQuantity is the smallest order a buyer can place: the MOQ, or a
// fallback lot when the supplier sets none and there is demand to cover.
func minimumQuantity(rec domain.SkuRecord, fallback float64) float64 {
	if rec.MOQ > 0 {
		return rec.MOQ
	}
	if rec.AvgMonthlyConsumption > 0 {
		return fallback
	}
	return 0
}

func investment(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2)
}
