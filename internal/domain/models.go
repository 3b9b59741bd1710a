package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownSupplier is used when a record carries no supplier name.
const UnknownSupplier = "Unknown"

// UnboundedCoverageDays marks a product without a consumption signal.
const UnboundedCoverageDays = -1

// SkuRecord is one product row of an input snapshot.
type SkuRecord struct {
	ID                     string   `json:"id" db:"sku_id"`
	Name                   string   `json:"name" db:"name"`
	Supplier               string   `json:"supplier" db:"supplier"`
	StockOnHand            float64  `json:"stock_on_hand" db:"stock_on_hand"`
	StockInTransit         float64  `json:"stock_in_transit" db:"stock_in_transit"`
	AvgMonthlyConsumption  float64  `json:"avg_monthly_consumption" db:"avg_monthly_consumption"`
	MOQ                    float64  `json:"moq" db:"moq"`
	UnitPrice              float64  `json:"unit_price" db:"unit_price"`
	UnitVolume             float64  `json:"unit_volume" db:"unit_volume"`
	ExternalCoverageMonths *float64 `json:"externally_supplied_coverage,omitempty" db:"external_coverage_months"`
}

// Snapshot is an immutable set of records handed to a single computation pass.
type Snapshot struct {
	Tenant      string      `json:"tenant,omitempty"`
	DatasetType string      `json:"dataset_type,omitempty"`
	Version     string      `json:"version,omitempty"`
	Records     []SkuRecord `json:"records"`
}

// SnapshotVersion describes one stored version of a tenant dataset.
type SnapshotVersion struct {
	ID          int64     `json:"id" db:"id"`
	Tenant      string    `json:"tenant" db:"tenant"`
	DatasetType string    `json:"dataset_type" db:"dataset_type"`
	Version     string    `json:"version" db:"version"`
	Active      bool      `json:"active" db:"is_active"`
	RowCount    int       `json:"row_count" db:"row_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TimelineEntry holds the per-record stock-out projection, order window and
// purchase scenarios.
type TimelineEntry struct {
	TotalStock     float64 `json:"total_stock"`
	CoverageMonths float64 `json:"coverage_months"`
	CoverageDays   int     `json:"coverage_days"` // UnboundedCoverageDays when consumption is 0
	StockoutDate   Date    `json:"stockout_date"`
	OrderDate      Date    `json:"order_date"`
	DaysUntilOrder int     `json:"days_until_order"`
	LeadTimeDays   int     `json:"lead_time_days"`
	Urgency        Urgency `json:"urgency"`

	QuantityMOQ          float64         `json:"quantity_moq"`
	QuantityNegotiated   float64         `json:"quantity_negotiated"`
	QuantityIdeal        float64         `json:"quantity_ideal"`
	InvestmentMOQ        decimal.Decimal `json:"investment_moq"`
	InvestmentNegotiated decimal.Decimal `json:"investment_negotiated"`
	InvestmentIdeal      decimal.Decimal `json:"investment_ideal"`

	// OrderVolume is the record's unit volume passed through unchanged.
	OrderVolume float64 `json:"order_volume"`
}

// IdealOrderCBM is the shipping volume of the ideal order, derived from the
// unit volume. OrderVolume itself is never scaled.
func (t TimelineEntry) IdealOrderCBM() float64 {
	return t.QuantityIdeal * t.OrderVolume
}

// Unbounded reports whether the entry has no stock-out date in sight.
func (t TimelineEntry) Unbounded() bool {
	return t.CoverageDays == UnboundedCoverageDays
}

// PriorityRecord holds the catalog-wide classification of a record.
type PriorityRecord struct {
	RelevanceClass   RelevanceClass  `json:"relevance_class"`
	MonthlyVolume    float64         `json:"monthly_volume"`
	VolumeNormalized float64         `json:"volume_normalized"`
	PriceNormalized  float64         `json:"price_normalized"`
	PriorityScore    float64         `json:"priority_score"`
	Criticality      Criticality     `json:"criticality"`
	AnnualImpact     decimal.Decimal `json:"annual_impact"`
	Rank             int             `json:"rank"` // 1-based within HighRelevance, 0 otherwise
}

// Decision is the engine output for a single SKU.
type Decision struct {
	SKU      SkuRecord      `json:"sku"`
	Timeline TimelineEntry  `json:"timeline"`
	Priority PriorityRecord `json:"priority"`
}

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time.Sub(other.Time).Hours() / 24)
}

func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
