package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// Result is the outcome of one computation pass. Decisions are index-aligned
// with the input snapshot records.
type Result struct {
	Decisions []domain.Decision `json:"decisions"`
	Report    Report            `json:"report"`
}

// Engine runs the replenishment pipeline over snapshots. It holds no state
// between runs and is safe for concurrent use.
type Engine struct {
	policy Policy
	now    func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used when the policy does not pin Today.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine validates the policy and builds an engine around it.
func NewEngine(p Policy, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		policy: p,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// slot is the phase-1 output for a single record.
type slot struct {
	rec        domain.SkuRecord
	notes      recordNotes
	projection Projection
	window     OrderWindow
	scenarios  Scenarios
}

// Run computes one decision per snapshot record.
//
// Phase 1 projects, schedules and sizes every record in parallel with the
// default lead time. Phase 2 classifies the whole catalog once all of phase 1
// is in. Phase 3 reschedules records whose criticality calls for a longer
// lead time.
func (e *Engine) Run(ctx context.Context, snap domain.Snapshot) (*Result, error) {
	start := time.Now()
	p := e.policy

	today := domain.NewDate(e.now())
	if !p.Today.IsZero() {
		today = domain.NewDate(p.Today)
	}

	report := Report{
		RunID:     uuid.New().String(),
		Version:   snap.Version,
		Today:     today,
		Scheme:    p.UrgencyScheme,
		Records:   len(snap.Records),
		Urgencies: make(map[domain.Urgency]int),
	}

	// Phase 1: per-record timeline
	phaseStart := time.Now()
	slots, err := e.runTimeline(ctx, snap.Records, today)
	if err != nil {
		return nil, err
	}
	report.PhaseTimes.Timeline = time.Since(phaseStart)
	log.Debug().Int("records", len(slots)).Dur("elapsed", report.PhaseTimes.Timeline).Msg("engine: timeline phase done")

	// Phase 2: catalog-wide priority
	phaseStart = time.Now()
	inputs := make([]PriorityInput, len(slots))
	for i := range slots {
		inputs[i] = PriorityInput{
			ID:            slots[i].rec.ID,
			MonthlyVolume: slots[i].rec.AvgMonthlyConsumption,
			UnitPrice:     slots[i].rec.UnitPrice,
		}
	}
	priorities, stats := ClassifyCatalog(inputs, p)
	report.Priority = stats
	report.PhaseTimes.Priority = time.Since(phaseStart)
	log.Debug().Int("high_relevance", stats.HighRelevance).Dur("elapsed", report.PhaseTimes.Priority).Msg("engine: priority phase done")

	// Phase 3: lead-time refinement
	phaseStart = time.Now()
	decisions := make([]domain.Decision, len(slots))
	for i := range slots {
		s := &slots[i]
		if lt := p.leadTimeFor(priorities[i].Criticality); lt != s.window.LeadTimeDays {
			s.window = Schedule(s.projection, lt, today, p.HorizonDays, p.UrgencyScheme)
			report.LeadTimeRefined++
		}

		decisions[i] = domain.Decision{
			SKU:      s.rec,
			Timeline: buildTimeline(s),
			Priority: priorities[i],
		}
		report.absorb(s.notes, s.rec)
		report.Urgencies[s.window.Urgency]++
	}
	report.PhaseTimes.Refine = time.Since(phaseStart)
	report.Duration = time.Since(start)

	log.Info().
		Str("run_id", report.RunID).
		Str("version", report.Version).
		Int("records", report.Records).
		Int("high_relevance", stats.HighRelevance).
		Int("missing_data", stats.MissingData).
		Int("lead_time_refined", report.LeadTimeRefined).
		Dur("elapsed", report.Duration).
		Msg("engine: run completed")

	return &Result{Decisions: decisions, Report: report}, nil
}

// runTimeline fans phase 1 out over contiguous chunks. Every worker writes
// only its own indexes of slots.
func (e *Engine) runTimeline(ctx context.Context, records []domain.SkuRecord, today domain.Date) ([]slot, error) {
	p := e.policy
	slots := make([]slot, len(records))
	if len(records) == 0 {
		return slots, nil
	}

	workers := p.workers()
	if workers > len(records) {
		workers = len(records)
	}
	chunk := (len(records) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(records); lo += chunk {
		lo, hi := lo, lo+chunk
		if hi > len(records) {
			hi = len(records)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[i] = e.timelineFor(records[i], today)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("timeline phase: %w", err)
	}
	return slots, nil
}

func (e *Engine) timelineFor(raw domain.SkuRecord, today domain.Date) slot {
	p := e.policy
	rec, notes := sanitize(raw, p.VolumeBasis)

	proj := ProjectStockOut(rec, p.HorizonDays)
	notes.externalCoverage = proj.ExternalCoverage
	notes.horizonClamped = proj.HorizonClamped

	return slot{
		rec:        rec,
		notes:      notes,
		projection: proj,
		window:     Schedule(proj, p.DefaultLeadTimeDays, today, p.HorizonDays, p.UrgencyScheme),
		scenarios:  PlanScenarios(rec, p),
	}
}

func buildTimeline(s *slot) domain.TimelineEntry {
	return domain.TimelineEntry{
		TotalStock:           s.projection.TotalStock,
		CoverageMonths:       s.projection.CoverageMonths,
		CoverageDays:         s.projection.CoverageDays,
		StockoutDate:         s.window.StockoutDate,
		OrderDate:            s.window.OrderDate,
		DaysUntilOrder:       s.window.DaysUntilOrder,
		LeadTimeDays:         s.window.LeadTimeDays,
		Urgency:              s.window.Urgency,
		QuantityMOQ:          s.scenarios.QuantityMOQ,
		QuantityNegotiated:   s.scenarios.QuantityNegotiated,
		QuantityIdeal:        s.scenarios.QuantityIdeal,
		InvestmentMOQ:        s.scenarios.InvestmentMOQ,
		InvestmentNegotiated: s.scenarios.InvestmentNegotiated,
		InvestmentIdeal:      s.scenarios.InvestmentIdeal,
		OrderVolume:          s.rec.UnitVolume,
	}
}

// sanitize clamps invalid quantities, fills the supplier sentinel and
// converts consumption to a monthly rate.
func sanitize(raw domain.SkuRecord, basis VolumeBasis) (domain.SkuRecord, recordNotes) {
	var notes recordNotes
	rec := raw

	rec.ID = strings.TrimSpace(rec.ID)
	rec.Name = strings.TrimSpace(rec.Name)
	notes.blankID = rec.ID == ""

	rec.Supplier = strings.TrimSpace(rec.Supplier)
	if rec.Supplier == "" {
		rec.Supplier = domain.UnknownSupplier
		notes.defaultSupplier = true
	}

	for _, f := range []*float64{
		&rec.StockOnHand, &rec.StockInTransit, &rec.AvgMonthlyConsumption,
		&rec.MOQ, &rec.UnitPrice, &rec.UnitVolume,
	} {
		if v := *f; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			*f = 0
			notes.clamped = true
		}
	}

	if raw.ExternalCoverageMonths != nil {
		v := *raw.ExternalCoverageMonths
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			rec.ExternalCoverageMonths = nil
			notes.clamped = true
		} else {
			rec.ExternalCoverageMonths = &v
		}
	}

	rec.AvgMonthlyConsumption = basis.Monthly(rec.AvgMonthlyConsumption)
	return rec, notes
}
