package table

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
)

// colspan values for the message rows.
const (
	emptyColspan = 15
	errorColspan = 10
)

var htmlTable = template.Must(template.New("table").Parse(`<table class="table table-striped" id="dataTable">
<thead><tr id="tableHeader">{{range .View.Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody id="tableBody">
{{- if .View.Error}}
<tr><td colspan="{{.ErrorColspan}}" class="text-center text-danger">{{.View.Message}}</td></tr>
{{- else if .View.Empty}}
<tr><td colspan="{{.EmptyColspan}}" class="text-center">{{.View.Message}}</td></tr>
{{- else}}{{range .View.Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}{{end}}
</tbody>
</table>
`))

// WriteHTML writes the view as an HTML table fragment.
func WriteHTML(w io.Writer, v *View) error {
	err := htmlTable.Execute(w, struct {
		View         *View
		EmptyColspan int
		ErrorColspan int
	}{v, emptyColspan, errorColspan})
	if err != nil {
		return eris.Wrap(err, "table: write html")
	}
	return nil
}

// WriteText writes the view as aligned columns. A Date heading is added
// over the leading date cells.
func WriteText(w io.Writer, v *View) error {
	if v.Error || v.Empty {
		if _, err := fmt.Fprintln(w, v.Message); err != nil {
			return eris.Wrap(err, "table: write text")
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{"Date"}, v.Header...)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len([]rune(h)))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, row := range v.Rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "table: write text")
	}
	return nil
}
