package demographics

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// DefaultTableSelector picks the first table of a page.
const DefaultTableSelector = "table"

// LoadHTMLTable reads the first table matching selector into records.
// Header cells become snake_case field names. A row with one cell more than
// the header carries a leading date, the layout of the dashboard's own
// table, and that cell is stored as the date field. Rows with a single
// spanning cell (the "no data" and error rows) are skipped.
func LoadHTMLTable(r io.Reader, selector string, opts LoadOptions) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "demographics: parse html")
	}
	if selector == "" {
		selector = DefaultTableSelector
	}
	tbl := doc.Find(selector).First()
	if tbl.Length() == 0 {
		return nil, eris.Errorf("demographics: no table matches %q", selector)
	}

	var header []string
	tbl.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		ths := tr.Find("th")
		if ths.Length() == 0 {
			return true
		}
		ths.Each(func(_ int, th *goquery.Selection) {
			header = append(header, fieldName(th.Text()))
		})
		return false
	})
	if len(header) == 0 {
		return nil, eris.New("demographics: table has no header row")
	}

	numeric := opts.numeric()
	parse := parsePlain
	if opts.DecimalComma {
		parse = ParseDecimal
	}

	var records []Record
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 || (tds.Length() == 1 && len(header) > 1) {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})

		names := header
		if len(cells) == len(header)+1 {
			names = append([]string{FieldDate}, header...)
		}
		var rec Record
		for i, name := range names {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if numeric[name] {
				rec.Set(name, Num(parse(cell)))
			} else {
				rec.Set(name, Text(cell))
			}
		}
		records = append(records, rec)
	})
	return records, nil
}

// IsHTMLSource reports whether source names an HTML page.
func IsHTMLSource(source string) bool {
	p := strings.ToLower(sourcePath(source))
	return strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".htm")
}

// fieldName turns a header like "Population Total" into "population_total".
func fieldName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.Join(strings.Fields(s), " ")), " ", "_")
}
