package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// CurrencyPrefix precedes every formatted amount.
const CurrencyPrefix = "INR "

// FormatCurrency renders a cell as an INR amount with two decimals and
// South-Asian digit grouping: 1234567.5 becomes "INR 12,34,567.50".
//
// Blank, sentinel and unparsable input yields "" so the token is blanked.
// It never fails.
func FormatCurrency(value any) string {
	f, ok := toFloat(value)
	if !ok {
		return ""
	}

	digits := strconv.FormatFloat(math.Abs(f), 'f', 2, 64)
	if digits == "0.00" {
		return CurrencyPrefix + "0.00"
	}

	whole, frac, _ := strings.Cut(digits, ".")
	sign := ""
	if f < 0 {
		sign = "-"
	}
	return CurrencyPrefix + sign + groupIndian(whole) + "." + frac
}

// groupIndian inserts separators: last three digits, then pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/2)

	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		if domain.IsBlank(v) {
			return 0, false
		}
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
