package demographics

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/fetcher"
)

// LoadOptions configures row parsing.
type LoadOptions struct {
	// NumericFields are parsed as numbers; every other column stays text.
	NumericFields []string
	// DecimalComma selects ParseDecimal for numeric fields. When false,
	// numbers are read as plain dot decimals.
	DecimalComma bool
	// Delimiter defaults to ';'.
	Delimiter rune
}

func (o LoadOptions) numeric() map[string]bool {
	set := make(map[string]bool, len(o.NumericFields))
	for _, f := range o.NumericFields {
		set[f] = true
	}
	return set
}

// Load parses delimited text with a header row into records. Short rows
// leave their missing columns as empty text (or 0 for numeric columns);
// cells beyond the header are dropped.
func Load(ctx context.Context, r io.Reader, opts LoadOptions) ([]Record, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ';'
	}
	numeric := opts.numeric()
	parse := parsePlain
	if opts.DecimalComma {
		parse = ParseDecimal
	}

	var (
		header  []string
		records []Record
	)
	err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{Delimiter: delim, TrimSpace: true}, func(_ int, row []string) error {
		if header == nil {
			header = row
			return nil
		}
		var rec Record
		for i, name := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if numeric[name] {
				rec.Set(name, Num(parse(cell)))
			} else {
				rec.Set(name, Text(cell))
			}
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "demographics: read csv")
	}

	zap.L().Debug("demographics: parsed rows",
		zap.Int("rows", len(records)),
		zap.Strings("columns", header),
	)
	return records, nil
}

// LoadJSON decodes a JSON array of flat objects, the shape served by the
// records API.
func LoadJSON(ctx context.Context, r io.Reader) ([]Record, error) {
	records, err := fetcher.CollectJSONArray[Record](ctx, r)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: read json")
	}
	return records, nil
}

// RecordsPath is the API path that serves records as JSON.
const RecordsPath = "/api/municipality-demographics"

// IsJSONSource reports whether source is a .json file or the records API.
func IsJSONSource(source string) bool {
	p := sourcePath(source)
	return strings.HasSuffix(strings.ToLower(p), ".json") || strings.HasSuffix(p, RecordsPath)
}

// sourcePath strips the query and any trailing slash from source.
func sourcePath(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.TrimSuffix(p, "/")
}

// Fetch opens source (local path or URL) and loads it as CSV, as JSON when
// IsJSONSource, or as an HTML table when IsHTMLSource. Fetch never retries;
// a failed or unreachable source is returned to the caller.
func Fetch(ctx context.Context, f fetcher.Fetcher, source string, opts LoadOptions) ([]Record, error) {
	rc, err := fetcher.Open(ctx, f, source)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: fetch")
	}
	defer rc.Close() //nolint:errcheck

	var records []Record
	switch {
	case IsJSONSource(source):
		records, err = LoadJSON(ctx, rc)
	case IsHTMLSource(source):
		records, err = LoadHTMLTable(rc, DefaultTableSelector, opts)
	default:
		records, err = Load(ctx, rc, opts)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "demographics: load %s", source)
	}
	zap.L().Info("demographics: loaded",
		zap.String("source", source),
		zap.Int("records", len(records)),
	)
	return records, nil
}
