//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/demographics-dashboard/internal/config"
)

const testGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"Aarhus"},"geometry":{"type":"Polygon","coordinates":[[[10,56],[10.2,56],[10.2,56.2],[10,56.2],[10,56]]]}},
{"type":"Feature","properties":{"name":"Odense"},"geometry":{"type":"Polygon","coordinates":[[[10.3,55.3],[10.5,55.3],[10.5,55.5],[10.3,55.5],[10.3,55.3]]]}}
]}`

const testCSV = `region;municipality;date;population_total;births
Midtjylland;Aarhus;2024-01-01;360.000;3.900
Syddanmark;Odense;2024-01-01;205.000;2.100
Syddanmark;Odense;2025-01-01;207.000;2.000
`

// setTestConfig points the global cfg at fixture files in a temp dir.
func setTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	geo := filepath.Join(dir, "municipalities.geojson")
	csvPath := filepath.Join(dir, "demo.csv")
	require.NoError(t, os.WriteFile(geo, []byte(testGeoJSON), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0o644))

	cfg = &config.Config{
		Server: config.ServerConfig{Port: 3000},
		Data: config.DataConfig{
			Dir:                   dir,
			Demographics:          csvPath,
			MunicipalitiesGeoJSON: geo,
			RegionsGeoJSON:        geo,
			NumericFields:         []string{"population_total", "births"},
			DecimalComma:          true,
		},
		Map: config.MapConfig{
			DefaultVariable: "population_total",
			DefaultDate:     "2024-01-01",
			Join:            "exact",
			CacheEntries:    8,
		},
		Table: config.TableConfig{Locale: "en"},
		Fetch: config.FetchConfig{TimeoutSecs: 5, RatePerSec: 5},
		Log:   config.LogConfig{Level: "info", Format: "json"},
	}
	return dir
}
