package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish-go/internal/cache"
	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
	"github.com/andresuchdata/replenish-go/internal/repository"
)

type fakeRepo struct {
	snapshots map[string]domain.Snapshot
	saved     []domain.Snapshot
}

func (f *fakeRepo) GetActiveSnapshot(ctx context.Context, tenant, datasetType string) (*domain.Snapshot, error) {
	snap, ok := f.snapshots[tenant+"/"+datasetType]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", repository.ErrSnapshotNotFound, tenant, datasetType)
	}
	return &snap, nil
}

func (f *fakeRepo) ListVersions(ctx context.Context, tenant, datasetType string) ([]domain.SnapshotVersion, error) {
	return []domain.SnapshotVersion{{Tenant: tenant, DatasetType: datasetType, Version: "v1", Active: true}}, nil
}

func (f *fakeRepo) SaveSnapshot(ctx context.Context, snap domain.Snapshot, activate bool) (int64, error) {
	f.saved = append(f.saved, snap)
	return int64(len(f.saved)), nil
}

type memoryCache struct {
	entries map[string]*engine.Result
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*engine.Result{}}
}

func (m *memoryCache) Get(ctx context.Context, key cache.PlanKey) (*engine.Result, bool, error) {
	res, ok := m.entries[key.String()]
	if ok {
		m.hits++
	}
	return res, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key cache.PlanKey, result *engine.Result) error {
	m.entries[key.String()] = result
	return nil
}

func (m *memoryCache) InvalidateSnapshot(ctx context.Context, tenant, datasetType string) (int, error) {
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, "plan:"+tenant+":"+datasetType+":") {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Tenant:      "acme",
		DatasetType: "stock",
		Version:     "v1",
		Records: []domain.SkuRecord{
			{ID: "A", Name: "Filter", Supplier: "North", StockOnHand: 12, StockInTransit: 5, AvgMonthlyConsumption: 3, MOQ: 10, UnitPrice: 800},
			{ID: "B", Name: "Pump", Supplier: "South", StockOnHand: 4, AvgMonthlyConsumption: 8, MOQ: 6, UnitPrice: 120},
		},
	}
}

// mixedCatalog has 20 fast-moving North products and 10 slow South ones, so
// the South products rank low against the full catalog and would rank high
// among themselves.
func mixedCatalog() domain.Snapshot {
	snap := domain.Snapshot{Tenant: "acme", DatasetType: "stock", Version: "v1"}
	for i := 0; i < 20; i++ {
		snap.Records = append(snap.Records, domain.SkuRecord{
			ID: fmt.Sprintf("N%02d", i), Name: "north", Supplier: "North",
			StockOnHand: 100, AvgMonthlyConsumption: float64(50 + 10*i), MOQ: 10, UnitPrice: float64(100 + 5*i),
		})
	}
	for i := 0; i < 10; i++ {
		snap.Records = append(snap.Records, domain.SkuRecord{
			ID: fmt.Sprintf("S%02d", i), Name: "south", Supplier: "South",
			StockOnHand: 40, AvgMonthlyConsumption: float64(6 + i), MOQ: 5, UnitPrice: float64(40 + 4*i),
		})
	}
	return snap
}

func newTestService(repo repository.SnapshotRepository, c cache.PlanCache) *PlanService {
	s := NewPlanService(repo, c, engine.DefaultPolicy())
	s.now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("should reuse the cached result", func(t *testing.T) {
		mc := newMemoryCache()
		s := newTestService(nil, mc)

		first, err := s.Plan(ctx, sampleSnapshot(), s.DefaultPolicy())
		require.NoError(t, err)
		second, err := s.Plan(ctx, sampleSnapshot(), s.DefaultPolicy())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, mc.hits)
		assert.Equal(t, "2025-01-01", first.Report.Today.String())
	})

	t.Run("should miss the cache on a different policy", func(t *testing.T) {
		mc := newMemoryCache()
		s := newTestService(nil, mc)

		_, err := s.Plan(ctx, sampleSnapshot(), s.DefaultPolicy())
		require.NoError(t, err)
		p := s.DefaultPolicy()
		p.TargetCoverageMonths = 8
		_, err = s.Plan(ctx, sampleSnapshot(), p)
		require.NoError(t, err)

		assert.Zero(t, mc.hits)
		assert.Len(t, mc.entries, 2)
	})

	t.Run("should version ad hoc snapshots by content", func(t *testing.T) {
		mc := newMemoryCache()
		s := newTestService(nil, mc)

		snap := sampleSnapshot()
		snap.Tenant, snap.Version = "", ""
		res, err := s.Plan(ctx, snap, s.DefaultPolicy())
		require.NoError(t, err)

		assert.Len(t, res.Report.Version, 40)
		for k := range mc.entries {
			assert.True(t, strings.HasPrefix(k, "plan:adhoc:"))
		}
	})

	t.Run("should reject an invalid policy", func(t *testing.T) {
		s := newTestService(nil, nil)
		p := s.DefaultPolicy()
		p.HorizonDays = 0

		_, err := s.Plan(ctx, sampleSnapshot(), p)
		assert.ErrorIs(t, err, engine.ErrInvalidPolicy)
	})
}

func TestPlanActive(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{snapshots: map[string]domain.Snapshot{"acme/stock": sampleSnapshot()}}

	t.Run("should plan the active snapshot", func(t *testing.T) {
		s := newTestService(repo, nil)

		res, err := s.PlanActive(ctx, "acme", "stock", s.DefaultPolicy())
		require.NoError(t, err)

		assert.Len(t, res.Decisions, 2)
		assert.Equal(t, "v1", res.Report.Version)
	})

	t.Run("should filter suppliers after planning the whole catalog", func(t *testing.T) {
		mc := newMemoryCache()
		s := newTestService(&fakeRepo{snapshots: map[string]domain.Snapshot{"acme/stock": mixedCatalog()}}, mc)

		full, err := s.PlanActive(ctx, "acme", "stock", s.DefaultPolicy())
		require.NoError(t, err)
		south, err := s.PlanActive(ctx, "acme", "stock", s.DefaultPolicy(), " south ")
		require.NoError(t, err)

		byID := make(map[string]domain.Decision, len(full.Decisions))
		for _, d := range full.Decisions {
			byID[d.SKU.ID] = d
		}

		require.Len(t, south.Decisions, 10)
		for _, d := range south.Decisions {
			assert.Equal(t, "South", d.SKU.Supplier)
			assert.Equal(t, domain.CriticalityLow, d.Priority.Criticality, d.SKU.ID)
			assert.Equal(t, byID[d.SKU.ID].Priority, d.Priority, d.SKU.ID)
			assert.Equal(t, byID[d.SKU.ID].Timeline.LeadTimeDays, d.Timeline.LeadTimeDays, d.SKU.ID)
		}

		assert.Equal(t, "v1", south.Report.Version)
		assert.Equal(t, 1, mc.hits)
		assert.Len(t, full.Decisions, 30)
	})

	t.Run("should summarize only the requested suppliers", func(t *testing.T) {
		s := newTestService(repo, nil)

		summary, _, err := s.Summary(ctx, "acme", "stock", s.DefaultPolicy(), "North")
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Records)
		require.Len(t, summary.Suppliers, 1)
		assert.Equal(t, "North", summary.Suppliers[0].Supplier)
	})

	t.Run("should report a missing snapshot", func(t *testing.T) {
		s := newTestService(repo, nil)

		_, err := s.PlanActive(ctx, "acme", "orders", s.DefaultPolicy())
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("should fail without a repository", func(t *testing.T) {
		s := newTestService(nil, nil)

		_, err := s.PlanActive(ctx, "acme", "stock", s.DefaultPolicy())
		assert.ErrorIs(t, err, ErrNoRepository)
	})

	t.Run("should summarize", func(t *testing.T) {
		s := newTestService(repo, nil)

		summary, report, err := s.Summary(ctx, "acme", "stock", s.DefaultPolicy())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Records)
		assert.Len(t, summary.Suppliers, 2)
		assert.Equal(t, 2, report.Records)
	})
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{snapshots: map[string]domain.Snapshot{"acme/stock": sampleSnapshot()}}
	mc := newMemoryCache()
	s := newTestService(repo, mc)

	_, err := s.PlanActive(ctx, "acme", "stock", s.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, mc.entries, 1)

	snap := sampleSnapshot()
	snap.Version = ""
	id, err := s.Import(ctx, snap, true)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id)
	assert.Empty(t, mc.entries)
	assert.Len(t, repo.saved[0].Version, 40)
}

func TestMergePolicy(t *testing.T) {
	s := newTestService(nil, nil)

	t.Run("should keep defaults for missing fields", func(t *testing.T) {
		p, err := s.MergePolicy(json.RawMessage(`{"lead_time_days": 60, "urgency_scheme": "months"}`))
		require.NoError(t, err)

		assert.Equal(t, 60, p.DefaultLeadTimeDays)
		assert.Equal(t, engine.SchemeMonths, p.UrgencyScheme)
		assert.Equal(t, 6.0, p.TargetCoverageMonths)
	})

	t.Run("should not alias the default slice", func(t *testing.T) {
		p, err := s.MergePolicy(nil)
		require.NoError(t, err)

		p.ExtendedLeadTimeCriticalities[0] = domain.CriticalityLow
		assert.Equal(t, domain.CriticalityCritical, s.DefaultPolicy().ExtendedLeadTimeCriticalities[0])
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		_, err := s.MergePolicy(json.RawMessage(`{"lead_time_days": "soon"}`))
		assert.ErrorIs(t, err, engine.ErrInvalidPolicy)
	})
}

func TestContentVersion(t *testing.T) {
	a := sampleSnapshot().Records
	b := sampleSnapshot().Records
	b[1].MOQ = 12

	assert.Equal(t, contentVersion(a), contentVersion(sampleSnapshot().Records))
	assert.NotEqual(t, contentVersion(a), contentVersion(b))
}
