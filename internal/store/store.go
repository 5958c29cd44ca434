package store

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/filter"
)

const (
	recordsTable = "demographic_records"
	batchesTable = "import_batches"
)

// Batch describes one import.
type Batch struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// RecordFilter specifies criteria for listing records. Empty fields match
// everything.
type RecordFilter struct {
	Region       string `json:"region,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Year         string `json:"year,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Store persists imported demographic records.
type Store interface {
	// ReplaceRecords upserts records under batch.ID and removes rows left
	// over from earlier batches. Returns the number of rows written.
	ReplaceRecords(ctx context.Context, batch Batch, records []demographics.Record) (int64, error)
	// ListRecords returns records in import order.
	ListRecords(ctx context.Context, f RecordFilter) ([]demographics.Record, error)
	// LatestBatch returns the most recent import, or nil if none.
	LatestBatch(ctx context.Context) (*Batch, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by driver. An empty driver returns nil.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "":
		return nil, nil
	case "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// row is a record flattened to table columns.
type row struct {
	region       string
	municipality string
	date         string
	year         string
	seq          int
	payload      []byte
}

// toRows flattens records. Rows sharing (region, municipality, date) keep
// the last one, matching how the temporal index resolves duplicates.
func toRows(records []demographics.Record) ([]row, error) {
	type key struct{ region, municipality, date string }
	pos := make(map[key]int, len(records))
	var rows []row
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal record %d", i)
		}
		year, _ := filter.YearOf(rec.Date())
		r := row{
			region:       rec.Region(),
			municipality: rec.Municipality(),
			date:         rec.Date(),
			year:         year,
			seq:          i,
			payload:      payload,
		}
		k := key{r.region, r.municipality, r.date}
		if j, ok := pos[k]; ok {
			r.seq = rows[j].seq
			rows[j] = r
			continue
		}
		pos[k] = len(rows)
		rows = append(rows, r)
	}
	return rows, nil
}

// listQuery builds the record select for f.
func listQuery(b sq.StatementBuilderType, f RecordFilter) (string, []any, error) {
	q := b.Select("payload").From(recordsTable).OrderBy("seq")
	if f.Region != "" {
		q = q.Where(sq.Eq{"region": f.Region})
	}
	if f.Municipality != "" {
		q = q.Where(sq.Eq{"municipality": f.Municipality})
	}
	if f.Year != "" {
		q = q.Where(sq.Eq{"year": f.Year})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q.ToSql()
}

func decodePayloads(payloads [][]byte) ([]demographics.Record, error) {
	out := make([]demographics.Record, 0, len(payloads))
	for i, p := range payloads {
		var rec demographics.Record
		if err := json.Unmarshal(p, &rec); err != nil {
			return nil, eris.Wrapf(err, "store: decode record %d", i)
		}
		out = append(out, rec)
	}
	return out, nil
}
