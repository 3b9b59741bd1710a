package engine

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

const monthsPerYear = 12

// PriorityInput is the per-record slice of phase-1 output the classifier needs.
type PriorityInput struct {
	ID            string
	MonthlyVolume float64
	UnitPrice     float64
}

// PriorityStats describes the catalog-wide pass.
type PriorityStats struct {
	Complete         int                        `json:"complete"`
	HighRelevance    int                        `json:"high_relevance"`
	EdgeCase         int                        `json:"edge_case"`
	MissingData      int                        `json:"missing_data"`
	VolumeMin        float64                    `json:"volume_min"`
	VolumeMax        float64                    `json:"volume_max"`
	PriceMin         float64                    `json:"price_min"`
	PriceMax         float64                    `json:"price_max"`
	DegenerateVolume bool                       `json:"degenerate_volume"`
	DegeneratePrice  bool                       `json:"degenerate_price"`
	BucketSizes      map[domain.Criticality]int `json:"bucket_sizes"`
}

// axis is the min/max range of one normalized dimension.
type axis struct {
	min, max float64
}

func newAxis() axis {
	return axis{min: math.Inf(1), max: math.Inf(-1)}
}

func (a *axis) observe(v float64) {
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
}

// degenerate reports a zero-width range; every value normalizes to 0 then.
func (a axis) degenerate() bool {
	return !(a.max > a.min)
}

func (a axis) normalize(v float64) float64 {
	if a.degenerate() {
		return 0
	}
	n := (v - a.min) / (a.max - a.min)
	// keep float noise inside [0,1]
	return math.Min(1, math.Max(0, n))
}

// ClassifyCatalog normalizes volume and price across the whole catalog,
// scores every complete record and assigns relevance and criticality
// buckets. The result is index-aligned with inputs.
func ClassifyCatalog(inputs []PriorityInput, p Policy) ([]domain.PriorityRecord, PriorityStats) {
	out := make([]domain.PriorityRecord, len(inputs))
	stats := PriorityStats{BucketSizes: make(map[domain.Criticality]int)}

	// 1. Completeness split
	complete := make([]int, 0, len(inputs))
	for i, in := range inputs {
		if in.MonthlyVolume > 0 && in.UnitPrice > 0 {
			complete = append(complete, i)
			continue
		}
		out[i] = domain.PriorityRecord{
			RelevanceClass: domain.RelevanceMissing,
			MonthlyVolume:  math.Max(0, in.MonthlyVolume),
			Criticality:    domain.CriticalityMissing,
			AnnualImpact:   decimal.Zero,
		}
		stats.MissingData++
	}
	stats.Complete = len(complete)
	stats.BucketSizes[domain.CriticalityMissing] = stats.MissingData

	if len(complete) == 0 {
		stats.DegenerateVolume = true
		stats.DegeneratePrice = true
		return out, stats
	}

	// 2. Relevance filter and axis ranges
	volume, price := newAxis(), newAxis()
	volumeThreshold := decimal.NewFromFloat(p.VolumeThreshold)
	impactThreshold := decimal.NewFromFloat(p.ImpactThreshold)
	high := make([]int, 0, len(complete))
	for _, i := range complete {
		in := inputs[i]
		impact := decimal.NewFromFloat(in.MonthlyVolume).
			Mul(decimal.NewFromFloat(in.UnitPrice)).
			Mul(decimal.NewFromInt(monthsPerYear))

		rec := domain.PriorityRecord{
			MonthlyVolume: in.MonthlyVolume,
			AnnualImpact:  impact.Round(2),
		}
		if decimal.NewFromFloat(in.MonthlyVolume).GreaterThanOrEqual(volumeThreshold) ||
			impact.GreaterThanOrEqual(impactThreshold) {
			rec.RelevanceClass = domain.RelevanceHigh
			high = append(high, i)
		} else {
			rec.RelevanceClass = domain.RelevanceEdge
			rec.Criticality = domain.CriticalityUncertainty
			stats.EdgeCase++
		}
		out[i] = rec

		volume.observe(in.MonthlyVolume)
		price.observe(in.UnitPrice)
	}
	stats.HighRelevance = len(high)
	stats.BucketSizes[domain.CriticalityUncertainty] = stats.EdgeCase
	stats.VolumeMin, stats.VolumeMax = volume.min, volume.max
	stats.PriceMin, stats.PriceMax = price.min, price.max
	stats.DegenerateVolume = volume.degenerate()
	stats.DegeneratePrice = price.degenerate()

	// 3-4. Normalization over every complete record, then the weighted score
	for _, i := range complete {
		rec := &out[i]
		rec.VolumeNormalized = volume.normalize(inputs[i].MonthlyVolume)
		rec.PriceNormalized = price.normalize(inputs[i].UnitPrice)
		rec.PriorityScore = math.Min(1, math.Max(0,
			rec.VolumeNormalized*p.VolumeWeight+rec.PriceNormalized*p.PriceWeight))
	}

	// 5. Percentile buckets within HighRelevance
	sort.SliceStable(high, func(a, b int) bool {
		ra, rb := out[high[a]], out[high[b]]
		if ra.PriorityScore != rb.PriorityScore {
			return ra.PriorityScore > rb.PriorityScore
		}
		if inputs[high[a]].ID != inputs[high[b]].ID {
			return inputs[high[a]].ID < inputs[high[b]].ID
		}
		return high[a] < high[b]
	})

	n := float64(len(high))
	criticalCut := int(math.Floor(n * p.CriticalShare))
	highCut := int(math.Floor(n * p.HighShare))
	mediumCut := int(math.Floor(n * p.MediumShare))
	for rank, i := range high {
		var c domain.Criticality
		switch {
		case rank < criticalCut:
			c = domain.CriticalityCritical
		case rank < highCut:
			c = domain.CriticalityHigh
		case rank < mediumCut:
			c = domain.CriticalityMedium
		default:
			c = domain.CriticalityLow
		}
		out[i].Criticality = c
		out[i].Rank = rank + 1
		stats.BucketSizes[c]++
	}

	return out, stats
}
