package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

func TestClassifyCatalog(t *testing.T) {
	p := DefaultPolicy()

	t.Run("should split relevance and rank the high relevance set", func(t *testing.T) {
		inputs := []PriorityInput{
			{ID: "A", MonthlyVolume: 10, UnitPrice: 100},
			{ID: "B", MonthlyVolume: 1, UnitPrice: 10},
			{ID: "C", MonthlyVolume: 0, UnitPrice: 10},
			{ID: "D", MonthlyVolume: 20, UnitPrice: 50},
			{ID: "E", MonthlyVolume: 6, UnitPrice: 1},
		}

		out, stats := ClassifyCatalog(inputs, p)
		require.Len(t, out, len(inputs))

		assert.Equal(t, domain.RelevanceHigh, out[0].RelevanceClass)
		assert.Equal(t, domain.RelevanceEdge, out[1].RelevanceClass)
		assert.Equal(t, domain.CriticalityUncertainty, out[1].Criticality)
		assert.Equal(t, domain.RelevanceMissing, out[2].RelevanceClass)
		assert.Equal(t, domain.CriticalityMissing, out[2].Criticality)
		assert.Zero(t, out[2].PriorityScore)

		// D scores highest, then A, then E
		assert.Equal(t, 1, out[3].Rank)
		assert.Equal(t, 2, out[0].Rank)
		assert.Equal(t, 3, out[4].Rank)
		assert.Equal(t, domain.CriticalityMedium, out[3].Criticality)
		assert.Equal(t, domain.CriticalityLow, out[0].Criticality)
		assert.Equal(t, domain.CriticalityLow, out[4].Criticality)
		assert.Zero(t, out[1].Rank)

		assert.InDelta(t, 0.85*9.0/19+0.15, out[0].PriorityScore, 1e-9)
		assert.Equal(t, "12000.00", out[0].AnnualImpact.StringFixed(2))

		assert.Equal(t, 4, stats.Complete)
		assert.Equal(t, 3, stats.HighRelevance)
		assert.Equal(t, 1, stats.EdgeCase)
		assert.Equal(t, 1, stats.MissingData)
		assert.Equal(t, 1.0, stats.VolumeMin)
		assert.Equal(t, 20.0, stats.VolumeMax)
	})

	t.Run("should cut buckets by floor of the share", func(t *testing.T) {
		inputs := make([]PriorityInput, 10)
		for i := range inputs {
			inputs[i] = PriorityInput{ID: fmt.Sprintf("SKU-%02d", i), MonthlyVolume: float64(10 + i), UnitPrice: 100}
		}

		out, stats := ClassifyCatalog(inputs, p)

		assert.Equal(t, domain.CriticalityCritical, out[9].Criticality)
		assert.Equal(t, domain.CriticalityHigh, out[8].Criticality)
		assert.Equal(t, domain.CriticalityMedium, out[5].Criticality)
		assert.Equal(t, domain.CriticalityLow, out[4].Criticality)
		assert.Equal(t, 1, stats.BucketSizes[domain.CriticalityCritical])
		assert.Equal(t, 1, stats.BucketSizes[domain.CriticalityHigh])
		assert.Equal(t, 3, stats.BucketSizes[domain.CriticalityMedium])
		assert.Equal(t, 5, stats.BucketSizes[domain.CriticalityLow])
	})

	t.Run("should partition every record into exactly one bucket", func(t *testing.T) {
		inputs := make([]PriorityInput, 0, 37)
		for i := 0; i < 37; i++ {
			inputs = append(inputs, PriorityInput{
				ID:            fmt.Sprintf("P%d", i),
				MonthlyVolume: float64(i % 9),
				UnitPrice:     float64((i * 37) % 500),
			})
		}

		out, stats := ClassifyCatalog(inputs, p)

		total := 0
		for _, n := range stats.BucketSizes {
			total += n
		}
		assert.Equal(t, len(inputs), total)
		assert.Equal(t, len(inputs), stats.HighRelevance+stats.EdgeCase+stats.MissingData)

		for _, rec := range out {
			assert.GreaterOrEqual(t, rec.PriorityScore, 0.0)
			assert.LessOrEqual(t, rec.PriorityScore, 1.0)
			assert.GreaterOrEqual(t, rec.VolumeNormalized, 0.0)
			assert.LessOrEqual(t, rec.VolumeNormalized, 1.0)
			assert.GreaterOrEqual(t, rec.PriceNormalized, 0.0)
			assert.LessOrEqual(t, rec.PriceNormalized, 1.0)
		}
	})

	t.Run("should score zero on degenerate axes", func(t *testing.T) {
		inputs := []PriorityInput{
			{ID: "b", MonthlyVolume: 10, UnitPrice: 300},
			{ID: "a", MonthlyVolume: 10, UnitPrice: 300},
		}

		out, stats := ClassifyCatalog(inputs, p)

		assert.True(t, stats.DegenerateVolume)
		assert.True(t, stats.DegeneratePrice)
		assert.Zero(t, out[0].PriorityScore)
		assert.Zero(t, out[1].PriorityScore)
		// ties break on id
		assert.Equal(t, 1, out[1].Rank)
		assert.Equal(t, 2, out[0].Rank)
	})

	t.Run("should handle an empty catalog", func(t *testing.T) {
		out, stats := ClassifyCatalog(nil, p)

		assert.Empty(t, out)
		assert.Zero(t, stats.Complete)
	})

	t.Run("should mark an all-missing catalog", func(t *testing.T) {
		out, stats := ClassifyCatalog([]PriorityInput{{ID: "x"}, {ID: "y", MonthlyVolume: 3}}, p)

		for _, rec := range out {
			assert.Equal(t, domain.RelevanceMissing, rec.RelevanceClass)
		}
		assert.Equal(t, 2, stats.MissingData)
		assert.Equal(t, 3.0, out[1].MonthlyVolume)
	})

	t.Run("should treat the impact threshold as inclusive", func(t *testing.T) {
		inclusive := p
		inclusive.ImpactThreshold = 1200

		out, _ := ClassifyCatalog([]PriorityInput{{ID: "x", MonthlyVolume: 1, UnitPrice: 100}}, inclusive)

		assert.Equal(t, domain.RelevanceHigh, out[0].RelevanceClass)
	})
}
