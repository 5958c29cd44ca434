package choropleth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/demographics-dashboard/internal/boundary"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y, x + size, y, x + size, y + size, x, y + size, x, y,
	}, []int{10})
}

// testFeatures are three municipalities; "Læsø" has no data row.
func testFeatures() *boundary.Collection {
	return &boundary.Collection{Features: []*boundary.Feature{
		{Name: "Aarhus", Geometry: square(10.0, 56.0, 0.2)},
		{Name: "Odense", Geometry: square(10.3, 55.3, 0.2)},
		{Name: "Læsø", Geometry: square(11.0, 57.2, 0.1)},
	}}
}

func row(region, municipality, date string, pop float64) demographics.Record {
	return demographics.NewRecord(
		demographics.Field{Name: "region", Value: demographics.Text(region)},
		demographics.Field{Name: "municipality", Value: demographics.Text(municipality)},
		demographics.Field{Name: "date", Value: demographics.Text(date)},
		demographics.Field{Name: "population_total", Value: demographics.Num(pop)},
	)
}

func testIndex(t *testing.T) *temporal.Index {
	t.Helper()
	ix, err := temporal.Build([]demographics.Record{
		row("Midtjylland", "Aarhus", "2025-01-01", 367000),
		row("Syddanmark", "Odense", "2025-01-01", 207000),
		row("Hovedstaden", "Ærø", "2025-01-01", 0),
	}, "municipality", "2025-01-01", "population_total")
	require.NoError(t, err)
	return ix
}

func popVariable() Variable {
	return NewCatalog(MunicipalityVariables).Lookup("population_total")
}
