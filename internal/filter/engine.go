// Package filter narrows the demographic record set by region, municipality
// and year, and keeps the region to municipality option cascade.
package filter

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// Selection is the filter triple. An empty field means no constraint.
type Selection struct {
	Region       string `json:"region,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Year         string `json:"year,omitempty"`
}

// IsZero reports whether no filter is set.
func (s Selection) IsZero() bool {
	return s == Selection{}
}

// Engine holds the complete record set, the current selection and the
// derived view. It is not safe for concurrent use.
type Engine struct {
	all            []demographics.Record
	years          []string // parallel to all; "" when the date does not parse
	sel            Selection
	municipalities []string
	view           []demographics.Record
}

// New builds an engine with no filter set; the view is the full set.
func New(records []demographics.Record) *Engine {
	e := &Engine{
		all:   records,
		years: make([]string, len(records)),
	}
	for i, r := range records {
		e.years[i], _ = YearOf(r.Date())
	}
	e.refreshMunicipalities()
	e.apply()
	return e
}

// YearOf extracts the calendar year of a YYYY-MM-DD date or RFC 3339
// timestamp.
func YearOf(date string) (string, bool) {
	d, err := temporal.NormalizeDate(date)
	if err != nil {
		return "", false
	}
	return d[:4], true
}

// SetRegion sets the region filter, narrows the municipality options to that
// region and reapplies. A selected municipality outside the region is
// cleared.
func (e *Engine) SetRegion(region string) {
	e.sel.Region = region
	e.refreshMunicipalities()
	if e.sel.Municipality != "" && !slices.Contains(e.municipalities, e.sel.Municipality) {
		zap.L().Debug("filter: municipality not in region, clearing",
			zap.String("municipality", e.sel.Municipality),
			zap.String("region", region),
		)
		e.sel.Municipality = ""
	}
	e.apply()
}

// SetMunicipality sets the municipality filter and reapplies.
func (e *Engine) SetMunicipality(m string) {
	e.sel.Municipality = m
	e.apply()
}

// SetYear sets the year filter and reapplies.
func (e *Engine) SetYear(y string) {
	e.sel.Year = y
	e.apply()
}

// Apply sets all three filters. The region goes first so the cascade runs
// before the municipality is checked against it.
func (e *Engine) Apply(s Selection) {
	e.sel.Municipality = s.Municipality
	e.sel.Year = s.Year
	e.SetRegion(s.Region)
}

// Reset clears every filter and restores the full options and view.
func (e *Engine) Reset() {
	e.sel = Selection{}
	e.refreshMunicipalities()
	e.apply()
}

// Selection returns the current filters.
func (e *Engine) Selection() Selection { return e.sel }

// View returns the filtered records in source order.
func (e *Engine) View() []demographics.Record { return e.view }

// All returns the complete record set.
func (e *Engine) All() []demographics.Record { return e.all }

// Municipalities returns the current municipality options.
func (e *Engine) Municipalities() []string { return e.municipalities }

// Regions returns the distinct non-empty regions, sorted.
func (e *Engine) Regions() []string {
	return distinct(e.all, func(r demographics.Record) string { return r.Region() })
}

// Years returns the distinct parseable years, sorted.
func (e *Engine) Years() []string {
	set := make(map[string]bool)
	var out []string
	for _, y := range e.years {
		if y != "" && !set[y] {
			set[y] = true
			out = append(out, y)
		}
	}
	slices.Sort(out)
	return out
}

// MunicipalitiesIn returns the municipality options for region without
// touching the selection. An empty region gives every municipality.
func (e *Engine) MunicipalitiesIn(region string) []string {
	return distinct(e.all, func(r demographics.Record) string {
		if region != "" && r.Region() != region {
			return ""
		}
		return r.Municipality()
	})
}

func (e *Engine) refreshMunicipalities() {
	e.municipalities = e.MunicipalitiesIn(e.sel.Region)
}

func (e *Engine) apply() {
	view := make([]demographics.Record, 0, len(e.all))
	for i, r := range e.all {
		if e.matches(i, r) {
			view = append(view, r)
		}
	}
	e.view = view
}

// matches is the AND of every set filter. A record whose date does not
// parse never matches a set year.
func (e *Engine) matches(i int, r demographics.Record) bool {
	if e.sel.Region != "" && r.Region() != e.sel.Region {
		return false
	}
	if e.sel.Municipality != "" && r.Municipality() != e.sel.Municipality {
		return false
	}
	if e.sel.Year != "" && e.years[i] != e.sel.Year {
		return false
	}
	return true
}

func distinct(records []demographics.Record, key func(demographics.Record) string) []string {
	set := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		k := key(r)
		if k != "" && !set[k] {
			set[k] = true
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
