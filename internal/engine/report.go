package engine

import (
	"time"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// Report collects per-run diagnostics. It travels next to the decisions and
// never influences them.
type Report struct {
	RunID      string                 `json:"run_id"`
	Version    string                 `json:"snapshot_version,omitempty"`
	Today      domain.Date            `json:"today"`
	Scheme     UrgencyScheme          `json:"urgency_scheme"`
	Records    int                    `json:"records"`
	Duration   time.Duration          `json:"duration_ns"`
	PhaseTimes PhaseTimes             `json:"phase_times"`
	Priority   PriorityStats          `json:"priority"`
	Urgencies  map[domain.Urgency]int `json:"urgencies"`

	ClampedRecords     int `json:"clamped_records"`
	DefaultedSuppliers int `json:"defaulted_suppliers"`
	BlankIDs           int `json:"blank_ids"`
	ZeroConsumption    int `json:"zero_consumption"`
	MissingPrice       int `json:"missing_price"`
	ExternalCoverage   int `json:"external_coverage"`
	HorizonClamped     int `json:"horizon_clamped"`
	LeadTimeRefined    int `json:"lead_time_refined"`
}

// PhaseTimes records how long each pipeline phase took.
type PhaseTimes struct {
	Timeline time.Duration `json:"timeline_ns"`
	Priority time.Duration `json:"priority_ns"`
	Refine   time.Duration `json:"refine_ns"`
}

// recordNotes are the per-record diagnostics produced during phase 1.
type recordNotes struct {
	clamped          bool
	defaultSupplier  bool
	blankID          bool
	externalCoverage bool
	horizonClamped   bool
}

func (r *Report) absorb(n recordNotes, rec domain.SkuRecord) {
	if n.clamped {
		r.ClampedRecords++
	}
	if n.defaultSupplier {
		r.DefaultedSuppliers++
	}
	if n.blankID {
		r.BlankIDs++
	}
	if n.externalCoverage {
		r.ExternalCoverage++
	}
	if n.horizonClamped {
		r.HorizonClamped++
	}
	if rec.AvgMonthlyConsumption <= 0 {
		r.ZeroConsumption++
	}
	if rec.UnitPrice <= 0 {
		r.MissingPrice++
	}
}
