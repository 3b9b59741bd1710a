package engine

import (
	"math"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

const daysPerMonth = 30

// Projection is the stock-out estimate for a single record.
type Projection struct {
	TotalStock     float64
	CoverageMonths float64
	CoverageDays   int // domain.UnboundedCoverageDays without consumption
	// ExternalCoverage is set when the supplied coverage replaced the computed one.
	ExternalCoverage bool
	// HorizonClamped is set when CoverageDays was cut down to the horizon.
	HorizonClamped bool
}

// Unbounded reports whether stock never runs out at the current consumption.
func (p Projection) Unbounded() bool {
	return p.CoverageDays == domain.UnboundedCoverageDays
}

// ProjectStockOut turns stock and consumption into a coverage duration.
// rec is expected to be sanitized already (no negative quantities).
func ProjectStockOut(rec domain.SkuRecord, horizonDays int) Projection {
	proj := Projection{
		TotalStock: rec.StockOnHand + rec.StockInTransit,
	}

	// 1. No consumption signal: monitoring only
	if rec.AvgMonthlyConsumption <= 0 {
		proj.CoverageDays = domain.UnboundedCoverageDays
		return proj
	}

	// 2. Coverage months, preferring an externally supplied positive value
	if rec.ExternalCoverageMonths != nil && *rec.ExternalCoverageMonths > 0 {
		proj.CoverageMonths = *rec.ExternalCoverageMonths
		proj.ExternalCoverage = true
	} else {
		proj.CoverageMonths = proj.TotalStock / rec.AvgMonthlyConsumption
	}

	// 3. Coverage days, clamped to the horizon before it becomes a date
	var days float64
	if proj.ExternalCoverage {
		days = math.Floor(proj.CoverageMonths * daysPerMonth)
	} else {
		days = math.Floor(proj.TotalStock * daysPerMonth / rec.AvgMonthlyConsumption)
	}
	if days > float64(horizonDays) {
		days = float64(horizonDays)
		proj.HorizonClamped = true
	}
	proj.CoverageDays = int(days)

	return proj
}
