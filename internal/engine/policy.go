package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// ErrInvalidPolicy is returned when a policy cannot be used for a computation pass.
var ErrInvalidPolicy = errors.New("invalid policy")

// UrgencyScheme selects how timeline entries are bucketed.
type UrgencyScheme string

const (
	// SchemeLeadTime buckets by days until the order must be placed.
	SchemeLeadTime UrgencyScheme = "lead_time"
	// SchemeMonths buckets by months of remaining coverage.
	SchemeMonths UrgencyScheme = "months"
)

// VolumeBasis says how the consumption column of a snapshot is expressed.
type VolumeBasis string

const (
	BasisMonthlyAverage VolumeBasis = "monthly_average"
	BasisSixMonthTotal  VolumeBasis = "six_month_total"
)

// Monthly converts a raw consumption value to units per month.
func (b VolumeBasis) Monthly(v float64) float64 {
	if b == BasisSixMonthTotal {
		return v / 6
	}
	return v
}

const weightTolerance = 1e-9

// Policy holds every tunable parameter of a computation pass.
type Policy struct {
	TargetCoverageMonths     float64 `json:"target_coverage_months"`
	NegotiatedCoverageMonths float64 `json:"negotiated_coverage_months"`
	MOQFallbackUnits         float64 `json:"moq_fallback_units"`

	DefaultLeadTimeDays           int                  `json:"lead_time_days"`
	CriticalLeadTimeDays          int                  `json:"critical_lead_time_days"`
	RefineLeadTime                bool                 `json:"refine_lead_time"`
	ExtendedLeadTimeCriticalities []domain.Criticality `json:"extended_lead_time_criticalities"`
	HorizonDays                   int                  `json:"horizon_days"`
	UrgencyScheme                 UrgencyScheme        `json:"urgency_scheme"`

	VolumeWeight    float64     `json:"volume_weight"`
	PriceWeight     float64     `json:"price_weight"`
	VolumeThreshold float64     `json:"volume_threshold"`
	ImpactThreshold float64     `json:"impact_threshold"`
	VolumeBasis     VolumeBasis `json:"volume_basis"`

	CriticalShare float64 `json:"critical_share"`
	HighShare     float64 `json:"high_share"`
	MediumShare   float64 `json:"medium_share"`

	// Workers bounds phase-1 parallelism; 0 means runtime.NumCPU().
	Workers int `json:"workers"`
	// Today pins the reference date; zero means the engine clock.
	Today time.Time `json:"-"`
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		TargetCoverageMonths:     6,
		NegotiatedCoverageMonths: 5,
		MOQFallbackUnits:         50,
		DefaultLeadTimeDays:      90,
		CriticalLeadTimeDays:     120,
		RefineLeadTime:           true,
		ExtendedLeadTimeCriticalities: []domain.Criticality{
			domain.CriticalityCritical,
			domain.CriticalityHigh,
			domain.CriticalityMedium,
		},
		HorizonDays:     3650,
		UrgencyScheme:   SchemeLeadTime,
		VolumeWeight:    0.85,
		PriceWeight:     0.15,
		VolumeThreshold: 5,
		ImpactThreshold: 2000,
		VolumeBasis:     BasisMonthlyAverage,
		CriticalShare:   0.10,
		HighShare:       0.25,
		MediumShare:     0.50,
	}
}

// Validate rejects policies that would invalidate every derived record.
func (p Policy) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(p.TargetCoverageMonths > 0, "target coverage months must be positive, got %v", p.TargetCoverageMonths)
	check(p.NegotiatedCoverageMonths > 0, "negotiated coverage months must be positive, got %v", p.NegotiatedCoverageMonths)
	check(p.MOQFallbackUnits >= 0, "moq fallback units cannot be negative, got %v", p.MOQFallbackUnits)
	check(p.DefaultLeadTimeDays >= 0, "lead time days cannot be negative, got %d", p.DefaultLeadTimeDays)
	check(p.CriticalLeadTimeDays >= 0, "critical lead time days cannot be negative, got %d", p.CriticalLeadTimeDays)
	check(p.HorizonDays > 0, "horizon days must be positive, got %d", p.HorizonDays)
	check(p.UrgencyScheme == SchemeLeadTime || p.UrgencyScheme == SchemeMonths,
		"unknown urgency scheme %q", p.UrgencyScheme)
	check(p.VolumeBasis == BasisMonthlyAverage || p.VolumeBasis == BasisSixMonthTotal,
		"unknown volume basis %q", p.VolumeBasis)

	check(p.VolumeWeight >= 0 && p.VolumeWeight <= 1, "volume weight must be within [0,1], got %v", p.VolumeWeight)
	check(p.PriceWeight >= 0 && p.PriceWeight <= 1, "price weight must be within [0,1], got %v", p.PriceWeight)
	check(math.Abs(p.VolumeWeight+p.PriceWeight-1) <= weightTolerance,
		"volume and price weights must sum to 1, got %v", p.VolumeWeight+p.PriceWeight)
	check(p.VolumeThreshold >= 0, "volume threshold cannot be negative, got %v", p.VolumeThreshold)
	check(p.ImpactThreshold >= 0, "impact threshold cannot be negative, got %v", p.ImpactThreshold)

	check(p.CriticalShare >= 0 && p.CriticalShare <= p.HighShare && p.HighShare <= p.MediumShare && p.MediumShare <= 1,
		"bucket shares must satisfy 0 <= critical <= high <= medium <= 1, got %v/%v/%v",
		p.CriticalShare, p.HighShare, p.MediumShare)
	check(p.Workers >= 0, "workers cannot be negative, got %d", p.Workers)

	for _, c := range p.ExtendedLeadTimeCriticalities {
		check(c.Ranked(), "criticality %q cannot extend the lead time", c)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(problems, "; "))
	}
	return nil
}

// leadTimeFor returns the lead time applied to a record of the given criticality.
func (p Policy) leadTimeFor(c domain.Criticality) int {
	if !p.RefineLeadTime {
		return p.DefaultLeadTimeDays
	}
	for _, ext := range p.ExtendedLeadTimeCriticalities {
		if ext == c {
			return p.CriticalLeadTimeDays
		}
	}
	return p.DefaultLeadTimeDays
}

func (p Policy) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Fingerprint is a stable hash of every parameter that affects the output,
// including the reference date. Workers is excluded.
func (p Policy) Fingerprint() string {
	ext := make([]string, 0, len(p.ExtendedLeadTimeCriticalities))
	for _, c := range p.ExtendedLeadTimeCriticalities {
		ext = append(ext, string(c))
	}
	sort.Strings(ext)

	today := ""
	if !p.Today.IsZero() {
		today = domain.NewDate(p.Today).String()
	}

	raw := fmt.Sprintf("tc=%g|nc=%g|fb=%g|lt=%d|clt=%d|ref=%t|ext=%s|hz=%d|us=%s|vw=%g|pw=%g|vt=%g|it=%g|vb=%s|cs=%g|hs=%g|ms=%g|today=%s",
		p.TargetCoverageMonths, p.NegotiatedCoverageMonths, p.MOQFallbackUnits,
		p.DefaultLeadTimeDays, p.CriticalLeadTimeDays, p.RefineLeadTime, strings.Join(ext, ","),
		p.HorizonDays, p.UrgencyScheme,
		p.VolumeWeight, p.PriceWeight, p.VolumeThreshold, p.ImpactThreshold, p.VolumeBasis,
		p.CriticalShare, p.HighShare, p.MediumShare, today)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
