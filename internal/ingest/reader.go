// Package ingest turns spreadsheet exports into engine snapshots.
package ingest

import (
	"bytes"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
)

// ErrMissingColumn is returned when a file has neither a name nor an id column.
var ErrMissingColumn = errors.New("missing required column")

// Stats describes what happened while reading a file.
type Stats struct {
	Rows           int              `json:"rows"`
	DroppedRows    int              `json:"dropped_rows"`
	InvalidNumbers int              `json:"invalid_numbers"`
	Columns        map[Field]string `json:"columns"`
	// ConsumptionBasis is how the file expressed consumption. Records always
	// carry a monthly rate, so they are planned with the monthly_average basis.
	ConsumptionBasis engine.VolumeBasis `json:"consumption_basis"`
	DecimalMark      DecimalMark        `json:"decimal_mark"`
}

type options struct {
	mark DecimalMark
}

// Option customizes how a file is read.
type Option func(*options)

// WithDecimalMark fixes the decimal separator instead of guessing it per cell.
func WithDecimalMark(m DecimalMark) Option {
	return func(o *options) {
		if m != "" {
			o.mark = m
		}
	}
}

func newOptions(opts []Option) options {
	o := options{mark: DecimalAuto}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LoadFile reads a CSV file from disk into a snapshot.
func LoadFile(path, tenant, datasetType string, opts ...Option) (domain.Snapshot, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, Stats{}, err
	}
	defer f.Close()

	return LoadSnapshot(f, tenant, datasetType, opts...)
}

// LoadSnapshot reads CSV content into a snapshot. The version is the sha1 of
// the raw content, so identical uploads share cached plans. A fixed decimal
// mark is part of the version since it changes the records.
func LoadSnapshot(r io.Reader, tenant, datasetType string, opts ...Option) (domain.Snapshot, Stats, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, Stats{}, fmt.Errorf("read snapshot: %w", err)
	}

	records, stats, err := ReadCSV(bytes.NewReader(content), opts...)
	if err != nil {
		return domain.Snapshot{}, stats, err
	}

	h := sha1.New()
	h.Write(content)
	if stats.DecimalMark != DecimalAuto {
		fmt.Fprintf(h, "\x00decimal=%s", stats.DecimalMark)
	}
	return domain.Snapshot{
		Tenant:      tenant,
		DatasetType: datasetType,
		Version:     hex.EncodeToString(h.Sum(nil)),
		Records:     records,
	}, stats, nil
}

// ReadCSV parses a comma or semicolon separated export. Headers are matched
// through the alias table; rows without a product name are dropped. Six-month
// consumption totals are converted to monthly rates when the file has no
// monthly column.
func ReadCSV(r io.Reader, opts ...Option) ([]domain.SkuRecord, Stats, error) {
	o := newOptions(opts)
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, err
	}
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, Stats{}, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}

	idx := resolveColumns(header)
	stats := Stats{Columns: make(map[Field]string), DecimalMark: o.mark}
	for field, i := range idx {
		if i >= 0 {
			stats.Columns[field] = header[i]
		}
	}
	if idx[FieldName] < 0 && idx[FieldID] < 0 {
		return nil, stats, fmt.Errorf("%w: no product name or id among %d headers", ErrMissingColumn, len(header))
	}

	consumptionField := FieldConsumption
	stats.ConsumptionBasis = engine.BasisMonthlyAverage
	if idx[FieldConsumption] < 0 && idx[FieldConsumptionSixMonths] >= 0 {
		consumptionField = FieldConsumptionSixMonths
		stats.ConsumptionBasis = engine.BasisSixMonthTotal
	}

	records := make([]domain.SkuRecord, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		get := func(field Field) string {
			i := idx[field]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		number := func(field Field) float64 {
			raw := get(field)
			if raw == "" {
				return 0
			}
			v, err := o.mark.Parse(raw)
			if err != nil {
				stats.InvalidNumbers++
				return 0
			}
			return v
		}

		rec := domain.SkuRecord{
			ID:                    get(FieldID),
			Name:                  get(FieldName),
			Supplier:              get(FieldSupplier),
			StockOnHand:           number(FieldStockOnHand),
			StockInTransit:        number(FieldStockInTransit),
			AvgMonthlyConsumption: stats.ConsumptionBasis.Monthly(number(consumptionField)),
			MOQ:                   number(FieldMOQ),
			UnitPrice:             number(FieldUnitPrice),
			UnitVolume:            number(FieldUnitVolume),
		}
		if rec.Name == "" {
			rec.Name = rec.ID
		}
		if rec.ID == "" {
			rec.ID = rec.Name
		}
		if rec.Name == "" {
			stats.DroppedRows++
			continue
		}
		if raw := get(FieldExternalCoverage); raw != "" {
			if v, err := o.mark.Parse(raw); err == nil {
				rec.ExternalCoverageMonths = &v
			} else {
				stats.InvalidNumbers++
			}
		}

		records = append(records, rec)
	}

	if stats.DroppedRows > 0 || stats.InvalidNumbers > 0 {
		log.Warn().
			Int("rows", stats.Rows).
			Int("dropped", stats.DroppedRows).
			Int("invalid_numbers", stats.InvalidNumbers).
			Msg("ingest: snapshot had unusable cells")
	}

	return records, stats, nil
}

// detectDelimiter picks ';' when the header line has more semicolons than commas.
func detectDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

var numberCleaner = strings.NewReplacer("R$", "", "US$", "", "$", "", "%", "", " ", "", "\u00a0", "")

// DecimalMark says which separator marks decimals in a file.
type DecimalMark string

const (
	// DecimalAuto guesses per cell, see ParseNumber.
	DecimalAuto DecimalMark = "auto"
	// DecimalDot reads "1,234.5": commas are thousands marks.
	DecimalDot DecimalMark = "dot"
	// DecimalComma reads "1.234,5": dots are thousands marks.
	DecimalComma DecimalMark = "comma"
)

// ParseDecimalMark accepts auto, dot and comma; empty means auto.
func ParseDecimalMark(s string) (DecimalMark, error) {
	switch m := DecimalMark(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DecimalAuto, nil
	case DecimalAuto, DecimalDot, DecimalComma:
		return m, nil
	}
	return "", fmt.Errorf("unknown decimal mark %q (want auto, dot or comma)", s)
}

// ParseNumber accepts both "1,234.5" and "1.234,5". When both separators are
// present the last one is the decimal mark. A lone separator followed by
// exactly three digits is read as a thousands mark, so "12.500" is 12500;
// use DecimalDot.Parse when such values are decimals.
func ParseNumber(raw string) (float64, error) {
	return DecimalAuto.Parse(raw)
}

// Parse reads one cell with this decimal mark.
func (m DecimalMark) Parse(raw string) (float64, error) {
	s := numberCleaner.Replace(strings.TrimSpace(raw))
	if s == "" || s == "-" {
		return 0, nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	switch m {
	case DecimalDot:
		s = strings.ReplaceAll(s, ",", "")
	case DecimalComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = guessSeparators(s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", raw, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func guessSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return normalizeLoneSeparator(s, ",")
	case lastDot >= 0:
		return normalizeLoneSeparator(s, ".")
	}
	return s
}

func normalizeLoneSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		return strings.Join(parts, "")
	}
	if len(parts[1]) == 3 && strings.Trim(parts[0], "-") != "0" && strings.Trim(parts[0], "-") != "" {
		return parts[0] + parts[1]
	}
	return parts[0] + "." + parts[1]
}
