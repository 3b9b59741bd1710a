package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish-go/internal/cache"
	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
	"github.com/andresuchdata/replenish-go/internal/repository"
)

const adHocTenant = "adhoc"

var (
	// ErrSnapshotNotFound is returned when a tenant has no active dataset version.
	ErrSnapshotNotFound = repository.ErrSnapshotNotFound
	// ErrNoRepository is returned by snapshot operations when no database is configured.
	ErrNoRepository = errors.New("snapshot repository not configured")
)

type PlanService struct {
	repo     repository.SnapshotRepository
	cache    cache.PlanCache
	defaults engine.Policy
	now      func() time.Time
}

func NewPlanService(repo repository.SnapshotRepository, cacheImpl cache.PlanCache, defaults engine.Policy) *PlanService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPlanCache()
	}
	return &PlanService{repo: repo, cache: cacheImpl, defaults: defaults, now: time.Now}
}

// DefaultPolicy returns the configured policy requests start from.
func (s *PlanService) DefaultPolicy() engine.Policy {
	return s.defaults
}

// MergePolicy overlays a partial JSON policy onto the defaults. Empty input
// yields the defaults.
func (s *PlanService) MergePolicy(raw json.RawMessage) (engine.Policy, error) {
	p := s.defaults
	p.ExtendedLeadTimeCriticalities = append([]domain.Criticality(nil), s.defaults.ExtendedLeadTimeCriticalities...)
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return engine.Policy{}, fmt.Errorf("%w: %v", engine.ErrInvalidPolicy, err)
	}
	return p, nil
}

// Plan computes decisions for a snapshot, reusing a cached result for the
// same snapshot version, policy and day.
func (s *PlanService) Plan(ctx context.Context, snap domain.Snapshot, p engine.Policy) (*engine.Result, error) {
	if p.Today.IsZero() {
		p.Today = s.now()
	}

	eng, err := engine.NewEngine(p)
	if err != nil {
		return nil, err
	}

	if snap.Tenant == "" {
		snap.Tenant = adHocTenant
	}
	if snap.Version == "" {
		snap.Version = contentVersion(snap.Records)
	}

	key := cache.PlanKey{
		Tenant:      snap.Tenant,
		DatasetType: snap.DatasetType,
		Version:     snap.Version,
		Policy:      p.Fingerprint(),
	}

	if result, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		log.Debug().Str("key", key.String()).Msg("plan: cache hit")
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("plan: cache get failed")
	}

	result, err := eng.Run(ctx, snap)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		log.Warn().Err(err).Msg("plan: cache set failed")
	}

	return result, nil
}

// PlanActive plans the tenant's active snapshot of a dataset type. The whole
// catalog is always planned, so priorities never depend on suppliers; when
// suppliers are given only their decisions are returned.
func (s *PlanService) PlanActive(ctx context.Context, tenant, datasetType string, p engine.Policy, suppliers ...string) (*engine.Result, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}

	snap, err := s.repo.GetActiveSnapshot(ctx, tenant, datasetType)
	if err != nil {
		return nil, err
	}

	result, err := s.Plan(ctx, *snap, p)
	if err != nil {
		return nil, err
	}
	if len(suppliers) == 0 {
		return result, nil
	}

	// the cached result is shared, so filter into a copy
	filtered := *result
	filtered.Decisions = FilterSuppliers(result.Decisions, suppliers...)
	return &filtered, nil
}

// FilterSuppliers keeps decisions whose supplier matches one of suppliers,
// ignoring case and surrounding spaces. Order is preserved.
func FilterSuppliers(decisions []domain.Decision, suppliers ...string) []domain.Decision {
	wanted := make(map[string]bool, len(suppliers))
	for _, name := range suppliers {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	out := make([]domain.Decision, 0, len(decisions))
	for _, d := range decisions {
		if wanted[strings.ToLower(strings.TrimSpace(d.SKU.Supplier))] {
			out = append(out, d)
		}
	}
	return out
}

// Summary plans the active snapshot and aggregates it.
func (s *PlanService) Summary(ctx context.Context, tenant, datasetType string, p engine.Policy, suppliers ...string) (*engine.Summary, *engine.Report, error) {
	result, err := s.PlanActive(ctx, tenant, datasetType, p, suppliers...)
	if err != nil {
		return nil, nil, err
	}
	summary := engine.Summarize(result.Decisions)
	return &summary, &result.Report, nil
}

// Versions lists the stored versions of a dataset.
func (s *PlanService) Versions(ctx context.Context, tenant, datasetType string) ([]domain.SnapshotVersion, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.ListVersions(ctx, tenant, datasetType)
}

// Import stores a snapshot and drops cached plans of its dataset.
func (s *PlanService) Import(ctx context.Context, snap domain.Snapshot, activate bool) (int64, error) {
	if s.repo == nil {
		return 0, ErrNoRepository
	}
	if snap.Version == "" {
		snap.Version = contentVersion(snap.Records)
	}

	id, err := s.repo.SaveSnapshot(ctx, snap, activate)
	if err != nil {
		return 0, err
	}

	if n, err := s.cache.InvalidateSnapshot(ctx, snap.Tenant, snap.DatasetType); err != nil {
		log.Warn().Err(err).Msg("plan: cache invalidate failed")
	} else if n > 0 {
		log.Info().Int("keys", n).Str("tenant", snap.Tenant).Msg("plan: cache invalidated")
	}

	return id, nil
}

// contentVersion hashes the records field by field; %g keeps NaN and Inf
// representable.
func contentVersion(records []domain.SkuRecord) string {
	h := sha1.New()
	for _, r := range records {
		coverage := "-"
		if r.ExternalCoverageMonths != nil {
			coverage = fmt.Sprintf("%g", *r.ExternalCoverageMonths)
		}
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%g\x1f%g\x1f%g\x1f%g\x1f%g\x1f%g\x1f%s\x1e",
			r.ID, r.Name, r.Supplier, r.StockOnHand, r.StockInTransit, r.AvgMonthlyConsumption,
			r.MOQ, r.UnitPrice, r.UnitVolume, coverage)
	}
	return hex.EncodeToString(h.Sum(nil))
}
