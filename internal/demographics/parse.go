package demographics

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts locale-formatted decimal text to a float. When the
// text contains a comma, dots are thousands separators and the comma is the
// decimal point ("1.234,5" and "1234,5" both give 1234.5). Text without a
// comma parses as a plain decimal. Empty or malformed text gives 0.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return parsePlain(s)
}

// parsePlain parses dot-decimal text, giving 0 on failure.
func parsePlain(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
