package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
)

const testGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"Aarhus"},"geometry":{"type":"Polygon","coordinates":[[[10,56],[10.2,56],[10.2,56.2],[10,56.2],[10,56]]]}},
{"type":"Feature","properties":{"name":"Odense"},"geometry":{"type":"Polygon","coordinates":[[[10.3,55.3],[10.5,55.3],[10.5,55.5],[10.3,55.5],[10.3,55.3]]]}}
]}`

const testCSV = `region;municipality;date;population_total;births
Midtjylland;Aarhus;2024-01-01;360.000;3.900
Midtjylland;Aarhus;2025-01-01;367.000;
Syddanmark;Odense;2024-01-01;205.000;2.100
`

var testLoad = demographics.LoadOptions{
	NumericFields: []string{"population_total", "births"},
	DecimalComma:  true,
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testMapOptions(t *testing.T) MapOptions {
	t.Helper()
	return MapOptions{
		Name:         ViewMunicipalities,
		Boundaries:   writeFile(t, "municipalities.geojson", testGeoJSON),
		Demographics: writeFile(t, "demo.csv", testCSV),
		Load:         testLoad,
		KeyField:     demographics.FieldMunicipality,
		Layout:       choropleth.MunicipalityLayout,
		Catalog:      choropleth.NewCatalog(choropleth.MunicipalityVariables),
		Initial:      State{Variable: "population_total", Date: "2024-01-01"},
		Cache:        NewRenderCache(16, 0),
	}
}
