// Package table turns demographic records into a formatted table for the
// dashboard page and the CLI.
package table

import (
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// Messages shown in place of rows.
const (
	NoDataMessage = "No data available for the selected filters"
	ErrorMessage  = "Error loading data. Please try again later."
)

// Options configures number formatting.
type Options struct {
	// Locale is a BCP 47 tag for thousands separators. Defaults to "en".
	Locale string
}

// View is a rendered table. Header omits the date column while every row
// starts with a date cell.
type View struct {
	Header  []string   `json:"header"`
	Rows    [][]string `json:"rows"`
	Empty   bool       `json:"empty,omitempty"`
	Error   bool       `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

// ErrorView is the table shown when the data could not be loaded.
func ErrorView() *View {
	return &View{Error: true, Message: ErrorMessage}
}

// Render formats records. The header comes from the first record.
func Render(records []demographics.Record, opts Options) *View {
	if len(records) == 0 {
		return &View{Empty: true, Message: NoDataMessage}
	}
	return renderRows(Header(records[0]), records, newPrinter(opts.Locale))
}

func renderRows(header []string, records []demographics.Record, p *message.Printer) *View {
	v := &View{Header: header, Rows: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, 0, rec.Len())
		row = append(row, FormatDate(rec.Date()))
		for _, f := range rec.Fields() {
			if f.Name == demographics.FieldDate {
				continue
			}
			row = append(row, formatValue(p, f.Value))
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// Header titleizes the record's field names, skipping the date.
func Header(rec demographics.Record) []string {
	caser := cases.Title(language.English, cases.NoLower)
	var out []string
	for _, k := range rec.Keys() {
		if k == demographics.FieldDate {
			continue
		}
		out = append(out, caser.String(strings.ReplaceAll(k, "_", " ")))
	}
	return out
}

// FormatDate renders a date as YYYY-MM-DD. Text that is not a date is
// returned as is.
func FormatDate(s string) string {
	d, err := temporal.NormalizeDate(s)
	if err != nil {
		return s
	}
	return d
}

// FormatNumber groups thousands. Integers get no decimals, everything else
// exactly two.
func FormatNumber(p *message.Printer, v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	case v == math.Trunc(v):
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
	default:
		return p.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}
}

func formatValue(p *message.Printer, v demographics.Value) string {
	if v.IsNumber {
		return FormatNumber(p, v.Number)
	}
	if v.Text == "" {
		return "-"
	}
	return v.Text
}

func newPrinter(locale string) *message.Printer {
	if locale == "" {
		locale = "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		zap.L().Warn("table: unknown locale, using en", zap.String("locale", locale), zap.Error(err))
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Renderer keeps the header from its first non-empty render, so later
// filters never change the columns.
type Renderer struct {
	opts   Options
	header []string
}

// NewRenderer returns a Renderer for the options.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Render formats records under the fixed header.
func (r *Renderer) Render(records []demographics.Record) *View {
	if len(records) == 0 {
		return &View{Header: r.header, Empty: true, Message: NoDataMessage}
	}
	if r.header == nil {
		r.header = Header(records[0])
	}
	return renderRows(r.header, records, newPrinter(r.opts.Locale))
}
