package engine

import "github.com/andresuchdata/replenish-go/internal/domain"

// Urgency thresholds of the lead-time window scheme, in days until order.
const (
	urgentWithinDays    = 30
	nextMonthWithinDays = 60
)

// Urgency thresholds of the month scheme, in months of coverage.
const (
	criticalWithinMonths  = 1
	mediumWithinMonths    = 3
	attentionWithinMonths = 6
)

// OrderWindow is the scheduling outcome for a single record.
type OrderWindow struct {
	StockoutDate   domain.Date
	OrderDate      domain.Date
	DaysUntilOrder int
	LeadTimeDays   int
	Urgency        domain.Urgency
}

// Schedule turns a projection and a lead time into an order date and an
// urgency bucket under the given scheme.
func Schedule(proj Projection, leadTimeDays int, today domain.Date, horizonDays int, scheme UrgencyScheme) OrderWindow {
	w := OrderWindow{LeadTimeDays: leadTimeDays}

	if proj.Unbounded() {
		// Nothing runs out; park both dates at the horizon.
		w.StockoutDate = today.AddDays(horizonDays)
		w.OrderDate = w.StockoutDate
		w.DaysUntilOrder = horizonDays
		if scheme == SchemeMonths {
			w.Urgency = domain.UrgencyOk
		} else {
			w.Urgency = domain.UrgencyMonitor
		}
		return w
	}

	w.StockoutDate = today.AddDays(proj.CoverageDays)
	if proj.CoverageDays <= leadTimeDays {
		w.OrderDate = today
		w.DaysUntilOrder = 0
	} else {
		w.OrderDate = w.StockoutDate.AddDays(-leadTimeDays)
		w.DaysUntilOrder = w.OrderDate.DaysSince(today)
	}

	if scheme == SchemeMonths {
		w.Urgency = monthUrgency(proj.CoverageMonths)
	} else {
		w.Urgency = windowUrgency(w.DaysUntilOrder)
	}
	return w
}

func windowUrgency(daysUntilOrder int) domain.Urgency {
	switch {
	case daysUntilOrder <= 0:
		return domain.UrgencyBuyNow
	case daysUntilOrder <= urgentWithinDays:
		return domain.UrgencyUrgent
	case daysUntilOrder <= nextMonthWithinDays:
		return domain.UrgencyNextMonth
	default:
		return domain.UrgencyMonitor
	}
}

func monthUrgency(coverageMonths float64) domain.Urgency {
	switch {
	case coverageMonths <= criticalWithinMonths:
		return domain.UrgencyCritical
	case coverageMonths <= mediumWithinMonths:
		return domain.UrgencyMedium
	case coverageMonths <= attentionWithinMonths:
		return domain.UrgencyAttention
	default:
		return domain.UrgencyOk
	}
}
