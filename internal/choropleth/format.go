package choropleth

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Format names a value formatter for legends and tooltips.
type Format string

// Known formats.
const (
	FormatGrouped Format = "grouped" // 1,234,567.5
	FormatFixed1  Format = "fixed1"  // 41.3
	FormatFixed2  Format = "fixed2"  // 2.15
	FormatRounded Format = "rounded" // 1,234,568
	FormatPercent Format = "percent" // 0.734 -> 73.4%
)

// Validate rejects unknown format names.
func (f Format) Validate() error {
	switch f {
	case FormatGrouped, FormatFixed1, FormatFixed2, FormatRounded, FormatPercent:
		return nil
	default:
		return eris.Errorf("choropleth: unknown format %q", f)
	}
}

// Apply formats v. Unknown formats print the plain number.
func (f Format) Apply(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	p := message.NewPrinter(language.English)
	switch f {
	case FormatGrouped:
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(6)))
	case FormatFixed1:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case FormatFixed2:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case FormatRounded:
		return p.Sprint(number.Decimal(math.Round(v), number.MaxFractionDigits(0)))
	case FormatPercent:
		return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
