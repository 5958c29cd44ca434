package demographics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demographics-dashboard/internal/fetcher"
)

const sampleCSV = `region;municipality;date;population_total;median_age;employment_rate
Hovedstaden;København;2025-01-01;660.000,0;35,2;0,741
Midtjylland;Aarhus;2025-01-01;367095;37,9;
Syddanmark;Odense;2025-01-01;n/a;39,1;0,72
`

var sampleOpts = LoadOptions{
	NumericFields: []string{"population_total", "median_age", "employment_rate"},
	DecimalComma:  true,
}

func TestLoad(t *testing.T) {
	records, err := Load(context.Background(), strings.NewReader(sampleCSV), sampleOpts)
	require.NoError(t, err)
	require.Len(t, records, 3)

	kbh := records[0]
	assert.Equal(t, []string{"region", "municipality", "date", "population_total", "median_age", "employment_rate"}, kbh.Keys())
	assert.Equal(t, "Hovedstaden", kbh.Region())
	assert.InDelta(t, 660000, kbh.Number("population_total"), 1e-9)
	assert.InDelta(t, 35.2, kbh.Number("median_age"), 1e-9)
	assert.InDelta(t, 0.741, kbh.Number("employment_rate"), 1e-9)

	// Empty and malformed numeric cells normalize to zero.
	emp, _ := records[1].Get("employment_rate")
	assert.True(t, emp.IsNumber)
	assert.Zero(t, emp.Number)
	pop, _ := records[2].Get("population_total")
	assert.True(t, pop.IsNumber)
	assert.Zero(t, pop.Number)

	// Non-numeric fields pass through as text.
	date, _ := kbh.Get("date")
	assert.False(t, date.IsNumber)
	assert.Equal(t, "2025-01-01", date.Text)
}

func TestLoad_ShortRow(t *testing.T) {
	input := "region;municipality;births\nNordjylland;Aalborg\n"
	records, err := Load(context.Background(), strings.NewReader(input), LoadOptions{
		NumericFields: []string{"births"},
		DecimalComma:  true,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Len())
	assert.Zero(t, records[0].Number("births"))
}

func TestLoad_DotDecimals(t *testing.T) {
	input := "municipality;median_age\nAarhus;37.9\n"
	records, err := Load(context.Background(), strings.NewReader(input), LoadOptions{
		NumericFields: []string{"median_age"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 37.9, records[0].Number("median_age"), 1e-9)
}

func TestLoad_HeaderOnly(t *testing.T) {
	records, err := Load(context.Background(), strings.NewReader("region;municipality\n"), sampleOpts)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("a;b\n\"x;1\n"), sampleOpts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demographics: read csv")
}

func TestFetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	records, err := Fetch(context.Background(), nil, path, sampleOpts)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV)) //nolint:errcheck
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Attempts: 1, RatePerSec: 100})
	records, err := Fetch(context.Background(), f, srv.URL+"/data/demo.csv", sampleOpts)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Attempts: 1, RatePerSec: 100})
	_, err := Fetch(context.Background(), f, srv.URL+"/data/missing.csv", sampleOpts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demographics: fetch")
}

func TestFetch_RecordsAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RecordsPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"region":"Midtjylland","municipality":"Aarhus","date":"2025-01-01","population_total":367095}]`)) //nolint:errcheck
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Attempts: 1, RatePerSec: 100})
	records, err := Fetch(context.Background(), f, srv.URL+RecordsPath, sampleOpts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"region", "municipality", "date", "population_total"}, records[0].Keys())
	assert.InDelta(t, 367095, records[0].Number("population_total"), 0.001)
}

func TestLoadJSON_NotArray(t *testing.T) {
	_, err := LoadJSON(context.Background(), strings.NewReader(`{"region":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demographics: read json")
}

func TestIsJSONSource(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"data/demo.csv", false},
		{"data/demo.JSON", true},
		{"http://localhost:3000/api/municipality-demographics", true},
		{"http://localhost:3000/api/municipality-demographics/?v=1", true},
		{"https://example.com/data/demo.csv?format=json", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, IsJSONSource(tt.source))
		})
	}
}
