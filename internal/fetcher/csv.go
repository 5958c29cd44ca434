package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 disables comments
	LazyQuotes bool
	TrimSpace  bool
}

// utf8BOM prefixes spreadsheet exports and would otherwise stick to the
// first header name.
const utf8BOM = "\xef\xbb\xbf"

// ErrStop ends ReadCSV or EachJSON early without an error.
var ErrStop = errors.New("fetcher: stop")

// ReadCSV calls fn for every row of delimited text, header included, with
// its 1-based line number. Rows may have any number of fields. fn owns the
// slice it is given.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions, fn func(line int, row []string) error) error {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = -1

	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		line, _ := cr.FieldPos(0)
		if err := fn(line, row); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
