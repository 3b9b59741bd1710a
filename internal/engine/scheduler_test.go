package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

var testToday = domain.NewDate(time.Date(2025, time.January, 1, 15, 4, 5, 0, time.UTC))

func bounded(days int, months float64) Projection {
	return Projection{CoverageDays: days, CoverageMonths: months}
}

func TestScheduleLeadTime(t *testing.T) {
	cases := []struct {
		name      string
		days      int
		leadTime  int
		wantDays  int
		wantLabel domain.Urgency
	}{
		{"should buy now when coverage is inside the lead time", 60, 90, 0, domain.UrgencyBuyNow},
		{"should buy now when coverage equals the lead time", 90, 90, 0, domain.UrgencyBuyNow},
		{"should be urgent within thirty days", 100, 90, 10, domain.UrgencyUrgent},
		{"should be urgent at exactly thirty days", 120, 90, 30, domain.UrgencyUrgent},
		{"should be next month within sixty days", 140, 90, 50, domain.UrgencyNextMonth},
		{"should monitor beyond sixty days", 170, 90, 80, domain.UrgencyMonitor},
		{"should shift with a longer lead time", 100, 120, 0, domain.UrgencyBuyNow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := Schedule(bounded(tc.days, float64(tc.days)/30), tc.leadTime, testToday, 3650, SchemeLeadTime)

			assert.Equal(t, tc.wantDays, w.DaysUntilOrder)
			assert.Equal(t, tc.wantLabel, w.Urgency)
			assert.Equal(t, tc.leadTime, w.LeadTimeDays)
			assert.Equal(t, testToday.AddDays(tc.days), w.StockoutDate)
			assert.Equal(t, testToday.AddDays(tc.wantDays), w.OrderDate)
			assert.False(t, w.OrderDate.After(w.StockoutDate.Time))
		})
	}
}

func TestScheduleMonths(t *testing.T) {
	cases := []struct {
		months float64
		want   domain.Urgency
	}{
		{0.5, domain.UrgencyCritical},
		{1, domain.UrgencyCritical},
		{2.9, domain.UrgencyMedium},
		{3, domain.UrgencyMedium},
		{5.667, domain.UrgencyAttention},
		{6, domain.UrgencyAttention},
		{6.1, domain.UrgencyOk},
	}

	for _, tc := range cases {
		w := Schedule(bounded(int(tc.months*30), tc.months), 90, testToday, 3650, SchemeMonths)
		assert.Equal(t, tc.want, w.Urgency, "coverage months %v", tc.months)
	}
}

func TestScheduleUnbounded(t *testing.T) {
	unbounded := Projection{CoverageDays: domain.UnboundedCoverageDays}

	t.Run("should park dates at the horizon under the lead time scheme", func(t *testing.T) {
		w := Schedule(unbounded, 90, testToday, 365, SchemeLeadTime)

		assert.Equal(t, domain.UrgencyMonitor, w.Urgency)
		assert.Equal(t, 365, w.DaysUntilOrder)
		assert.Equal(t, testToday.AddDays(365), w.StockoutDate)
		assert.Equal(t, w.StockoutDate, w.OrderDate)
	})

	t.Run("should be ok under the month scheme", func(t *testing.T) {
		w := Schedule(unbounded, 90, testToday, 365, SchemeMonths)

		assert.Equal(t, domain.UrgencyOk, w.Urgency)
	})
}
