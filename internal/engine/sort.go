package engine

import (
	"sort"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// SortByUrgency orders decisions by days until order, then urgency, then SKU id.
// The input slice is left untouched.
func SortByUrgency(decisions []domain.Decision) []domain.Decision {
	out := append([]domain.Decision(nil), decisions...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Timeline, out[j].Timeline
		if a.DaysUntilOrder != b.DaysUntilOrder {
			return a.DaysUntilOrder < b.DaysUntilOrder
		}
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		return out[i].SKU.ID < out[j].SKU.ID
	})
	return out
}

// SortByPriority orders decisions by priority score, highest first. Records
// without a score keep their criticality order at the tail.
func SortByPriority(decisions []domain.Decision) []domain.Decision {
	out := append([]domain.Decision(nil), decisions...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Priority, out[j].Priority
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.Criticality.Rank() != b.Criticality.Rank() {
			return a.Criticality.Rank() < b.Criticality.Rank()
		}
		return out[i].SKU.ID < out[j].SKU.ID
	})
	return out
}
