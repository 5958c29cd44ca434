package demographics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHTMLTable_Plain(t *testing.T) {
	page := `<html><body>
<table id="befolkning">
<thead><tr><th>Region</th><th>Municipality</th><th>Date</th><th>Population Total</th></tr></thead>
<tbody>
<tr><td>Midtjylland</td><td>Aarhus</td><td>2025-01-01</td><td>367.095</td></tr>
<tr><td>Syddanmark</td><td>Odense</td><td>2025-01-01</td><td>207.000,5</td></tr>
</tbody></table></body></html>`

	records, err := LoadHTMLTable(strings.NewReader(page), "#befolkning", LoadOptions{
		NumericFields: []string{"population_total"},
		DecimalComma:  true,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"region", "municipality", "date", "population_total"}, records[0].Keys())
	assert.InDelta(t, 367095, records[0].Number("population_total"), 1e-9)
	assert.InDelta(t, 207000.5, records[1].Number("population_total"), 1e-9)
}

func TestLoadHTMLTable_LeadingDateColumn(t *testing.T) {
	page := `<table id="dataTable">
<thead><tr id="tableHeader"><th>Region</th><th>Municipality</th><th>Births</th></tr></thead>
<tbody id="tableBody">
<tr><td>2024-01-01</td><td>Midtjylland</td><td>Aarhus</td><td>3900</td></tr>
</tbody></table>`

	records, err := LoadHTMLTable(strings.NewReader(page), "", LoadOptions{NumericFields: []string{"births"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-01", records[0].Date())
	assert.Equal(t, "Aarhus", records[0].Municipality())
	assert.InDelta(t, 3900, records[0].Number("births"), 1e-9)
}

func TestLoadHTMLTable_SkipsMessageRows(t *testing.T) {
	page := `<table><thead><tr><th>Region</th><th>Municipality</th></tr></thead>
<tbody><tr><td colspan="15">No data available for the selected filters</td></tr></tbody></table>`

	records, err := LoadHTMLTable(strings.NewReader(page), "", LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadHTMLTable_Errors(t *testing.T) {
	_, err := LoadHTMLTable(strings.NewReader(`<p>nothing here</p>`), "", LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table matches")

	_, err = LoadHTMLTable(strings.NewReader(`<table><tr><td>x</td></tr></table>`), "", LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestIsHTMLSource(t *testing.T) {
	assert.True(t, IsHTMLSource("https://example.com/tables/befolkning.html?lang=da"))
	assert.True(t, IsHTMLSource("snapshot.HTM"))
	assert.False(t, IsHTMLSource("data/demo.csv"))
}
