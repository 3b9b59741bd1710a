package domain

import "strings"

// Urgency is the order-window bucket of a timeline entry.
type Urgency string

const (
	// lead-time window scheme
	UrgencyBuyNow    Urgency = "BuyNow"
	UrgencyUrgent    Urgency = "Urgent"
	UrgencyNextMonth Urgency = "NextMonth"
	UrgencyMonitor   Urgency = "Monitor"

	// month-threshold scheme
	UrgencyCritical  Urgency = "Critical"
	UrgencyMedium    Urgency = "Medium"
	UrgencyAttention Urgency = "Attention"
	UrgencyOk        Urgency = "Ok"
)

// RelevanceClass says whether a record can be ranked.
type RelevanceClass string

const (
	RelevanceHigh    RelevanceClass = "HighRelevance"
	RelevanceEdge    RelevanceClass = "EdgeCase"
	RelevanceMissing RelevanceClass = "MissingData"
)

// Criticality is the percentile bucket of a record within the catalog.
type Criticality string

const (
	CriticalityCritical    Criticality = "Critical"
	CriticalityHigh        Criticality = "High"
	CriticalityMedium      Criticality = "Medium"
	CriticalityLow         Criticality = "Low"
	CriticalityUncertainty Criticality = "Uncertainty"
	CriticalityMissing     Criticality = "Missing"
)

var urgencyRanks = map[Urgency]int{
	UrgencyBuyNow:    0,
	UrgencyCritical:  0,
	UrgencyUrgent:    1,
	UrgencyMedium:    1,
	UrgencyNextMonth: 2,
	UrgencyAttention: 2,
	UrgencyMonitor:   3,
	UrgencyOk:        3,
}

var urgencyCodes = map[string]Urgency{
	"buynow":    UrgencyBuyNow,
	"urgent":    UrgencyUrgent,
	"nextmonth": UrgencyNextMonth,
	"monitor":   UrgencyMonitor,
	"critical":  UrgencyCritical,
	"medium":    UrgencyMedium,
	"attention": UrgencyAttention,
	"ok":        UrgencyOk,
}

var criticalityRanks = map[Criticality]int{
	CriticalityCritical:    0,
	CriticalityHigh:        1,
	CriticalityMedium:      2,
	CriticalityLow:         3,
	CriticalityUncertainty: 4,
	CriticalityMissing:     5,
}

// Rank orders urgencies from most to least pressing. Unknown values sort last.
func (u Urgency) Rank() int {
	if r, ok := urgencyRanks[u]; ok {
		return r
	}
	return len(urgencyRanks)
}

// ParseUrgency returns the urgency for a label (case-insensitive, ignores
// spaces, dashes and underscores).
func ParseUrgency(label string) (Urgency, bool) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(label))
	u, ok := urgencyCodes[key]

	return u, ok
}

// Rank orders criticalities from most to least critical.
func (c Criticality) Rank() int {
	if r, ok := criticalityRanks[c]; ok {
		return r
	}
	return len(criticalityRanks)
}

// Ranked reports whether c is one of the percentile buckets.
func (c Criticality) Ranked() bool {
	switch c {
	case CriticalityCritical, CriticalityHigh, CriticalityMedium, CriticalityLow:
		return true
	}
	return false
}

// ParseCriticality returns the criticality for a label (case-insensitive).
func ParseCriticality(label string) (Criticality, bool) {
	for c := range criticalityRanks {
		if strings.EqualFold(string(c), strings.TrimSpace(label)) {
			return c, true
		}
	}
	return "", false
}
