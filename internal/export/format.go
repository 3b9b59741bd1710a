package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale selects number formatting in exported files.
type Locale string

const (
	// LocalePlain writes 1234.5
	LocalePlain Locale = "plain"
	// LocaleComma writes 1.234,50 (dot thousands, comma decimals)
	LocaleComma Locale = "comma"
)

// ParseLocale maps a flag value onto a Locale, defaulting to LocaleComma.
func ParseLocale(s string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "comma", "br", "id", "pt-br":
		return LocaleComma, nil
	case "plain", "en", "dot":
		return LocalePlain, nil
	default:
		return "", fmt.Errorf("unknown locale %q", s)
	}
}

func (l Locale) float(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if l == LocalePlain {
		return strconv.FormatFloat(roundFloat(v, decimals), 'f', -1, 64)
	}
	return formatCommaFloat(v, decimals)
}

func (l Locale) money(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	if l == LocalePlain {
		return fixed
	}
	return groupFixed(fixed)
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// formatCommaFloat formats with a dot as thousands separator and a comma as
// decimal separator. When the fractional part is zero after rounding, the
// decimal part is omitted.
// Example: 1234.5 (2 decimals) => "1.234,50"; 1000.0 => "1.000".
func formatCommaFloat(v float64, decimals int) string {
	neg := v < 0
	if neg {
		v = -v
	}

	if decimals < 0 {
		decimals = 0
	}

	// round to requested decimal places
	factor := math.Pow(10, float64(decimals))
	scaled := math.Round(v * factor)
	intPart := int64(scaled) / int64(factor)
	fracPart := int64(scaled) % int64(factor)

	s := groupThousands(strconv.FormatInt(intPart, 10))

	prefix := ""
	if neg && scaled != 0 {
		prefix = "-"
	}

	if decimals == 0 || fracPart == 0 {
		return prefix + s
	}

	// Left-pad fractional part with zeros up to the requested precision
	fracStr := strconv.FormatInt(fracPart, 10)
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}

	return fmt.Sprintf("%s%s,%s", prefix, s, fracStr)
}

// groupFixed converts a fixed-point string such as "-1234.50" to "-1.234,50".
func groupFixed(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(fixed, ".")
	out := sign + groupThousands(intPart)
	if hasFrac {
		out += "," + fracPart
	}
	return out
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var buf []byte
	count := 0
	for i := len(s) - 1; i >= 0; i-- {
		buf = append(buf, s[i])
		count++
		if count == 3 && i != 0 {
			buf = append(buf, '.')
			count = 0
		}
	}
	// reverse buf
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

func decimalFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
