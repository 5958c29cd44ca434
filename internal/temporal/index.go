// Package temporal groups demographic records by entity and date and keeps
// a per-entity "current" slot for the selected date.
package temporal

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
)

// ErrInvalidDate is returned when a target date cannot be parsed.
var ErrInvalidDate = eris.New("temporal: invalid date")

// Entity is one municipality or region with its dated snapshots.
type Entity struct {
	Name   string
	Region string
	// ByDate maps the exact date text of a row to its snapshot.
	ByDate map[string]demographics.Record
	// Current accumulates merged snapshots. It starts with the key field
	// and region.
	Current demographics.Record
}

// Index maps entity name to Entity.
type Index struct {
	keyField string
	entities map[string]*Entity
	order    []string
	keyFn    func(string) string

	date     string
	variable string
}

// Option customizes Build.
type Option func(*Index)

// WithKeyNormalizer applies fn to every entity name before indexing and
// lookup. Used for the optional join-key folding.
func WithKeyNormalizer(fn func(string) string) Option {
	return func(ix *Index) { ix.keyFn = fn }
}

// Build indexes records by keyField ("municipality" or "region") and date,
// then selects date and variable as the initial current data. Records with
// an empty key are skipped. A repeated (entity, date) replaces the earlier
// snapshot whole.
func Build(records []demographics.Record, keyField, date, variable string, opts ...Option) (*Index, error) {
	ix := &Index{
		keyField: keyField,
		entities: make(map[string]*Entity),
		keyFn:    func(s string) string { return s },
	}
	for _, o := range opts {
		o(ix)
	}

	for _, rec := range records {
		name := rec.Text(keyField)
		if name == "" {
			continue
		}
		key := ix.keyFn(name)

		ent, ok := ix.entities[key]
		if !ok {
			ent = &Entity{
				Name:   name,
				Region: rec.Region(),
				ByDate: make(map[string]demographics.Record),
			}
			ent.Current.Set(keyField, demographics.Text(name))
			if keyField != demographics.FieldRegion {
				ent.Current.Set(demographics.FieldRegion, demographics.Text(rec.Region()))
			}
			ix.entities[key] = ent
			ix.order = append(ix.order, key)
		}
		ent.ByDate[rec.Date()] = rec.Clone()
	}
	slices.Sort(ix.order)

	if err := ix.UpdateCurrentData(date, variable); err != nil {
		return nil, err
	}
	return ix, nil
}

// NormalizeDate reduces an ISO date or RFC 3339 timestamp to YYYY-MM-DD in UTC.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly), nil
	}
	return "", eris.Wrapf(ErrInvalidDate, "%q", s)
}

// UpdateCurrentData merges each entity's snapshot for targetDate onto its
// current slot. Snapshot fields overwrite; fields the snapshot lacks keep
// whatever an earlier merge left there. Afterwards variable is guaranteed
// to exist on every entity, defaulting to 0. An unparseable date changes
// nothing.
func (ix *Index) UpdateCurrentData(targetDate, variable string) error {
	date, err := NormalizeDate(targetDate)
	if err != nil {
		return err
	}

	for _, key := range ix.order {
		ent := ix.entities[key]
		if snap, ok := ent.ByDate[date]; ok {
			ent.Current.Merge(snap)
		}
		if !ent.Current.Has(variable) {
			ent.Current.Set(variable, demographics.Num(0))
		}
	}

	ix.date = date
	ix.variable = variable
	return nil
}

// KeyField returns the field records were grouped by.
func (ix *Index) KeyField() string { return ix.keyField }

// Date returns the last selected date.
func (ix *Index) Date() string { return ix.date }

// Variable returns the last selected variable.
func (ix *Index) Variable() string { return ix.variable }

// Len returns the number of entities.
func (ix *Index) Len() int { return len(ix.order) }

// Normalize applies the index's key normalizer.
func (ix *Index) Normalize(name string) string { return ix.keyFn(name) }

// Lookup finds an entity by name after normalization.
func (ix *Index) Lookup(name string) (*Entity, bool) {
	ent, ok := ix.entities[ix.keyFn(name)]
	return ent, ok
}

// Entities returns all entities sorted by key.
func (ix *Index) Entities() []*Entity {
	out := make([]*Entity, 0, len(ix.order))
	for _, key := range ix.order {
		out = append(out, ix.entities[key])
	}
	return out
}

// Dates returns every distinct snapshot date, sorted.
func (ix *Index) Dates() []string {
	seen := make(map[string]bool)
	var dates []string
	for _, ent := range ix.entities {
		for d := range ent.ByDate {
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	slices.Sort(dates)
	return dates
}

// CurrentValue returns the entity's current value for variable.
func (e *Entity) CurrentValue(variable string) (demographics.Value, bool) {
	return e.Current.Get(variable)
}
