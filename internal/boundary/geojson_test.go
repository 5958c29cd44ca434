package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const twoMunicipalities = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 101,
     "properties": {"name": "København", "kode": "0101"},
     "geometry": {"type": "Polygon", "coordinates": [[[12.5,55.6],[12.7,55.6],[12.7,55.8],[12.5,55.8],[12.5,55.6]]]}},
    {"type": "Feature",
     "properties": {"name": 7},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[10.0,56.0],[10.4,56.0],[10.4,56.4],[10.0,56.4],[10.0,56.0]]],
       [[[10.6,56.0],[10.8,56.0],[10.8,56.2],[10.6,56.0]]]
     ]}}
  ]
}`

func TestDecodeGeoJSON(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(twoMunicipalities))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	kbh := c.Features[0]
	assert.Equal(t, "101", kbh.ID)
	assert.Equal(t, "København", kbh.Name)
	assert.Equal(t, "0101", kbh.Properties["kode"])
	assert.IsType(t, &geom.Polygon{}, kbh.Geometry)

	// A non-string name is treated as missing.
	assert.Equal(t, "", c.Features[1].Name)
	assert.Len(t, c.Features[1].Polygons(), 2)
}

func TestDecodeGeoJSON_Invalid(t *testing.T) {
	_, err := DecodeGeoJSON(strings.NewReader(`{"type":"Feature"}`))
	require.Error(t, err)

	_, err = DecodeGeoJSON(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestCollection_Bounds(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(twoMunicipalities))
	require.NoError(t, err)

	b := c.Bounds()
	require.False(t, b.IsEmpty())
	assert.InDelta(t, 10.0, b.Min(0), 1e-9)
	assert.InDelta(t, 12.7, b.Max(0), 1e-9)
	assert.InDelta(t, 55.6, b.Min(1), 1e-9)
	assert.InDelta(t, 56.4, b.Max(1), 1e-9)

	assert.True(t, (&Collection{}).Bounds().IsEmpty())
}

func TestFeature_Centroid(t *testing.T) {
	c, err := DecodeGeoJSON(strings.NewReader(twoMunicipalities))
	require.NoError(t, err)

	got, err := c.Features[0].Centroid()
	require.NoError(t, err)
	assert.InDelta(t, 12.6, got.X(), 1e-9)
	assert.InDelta(t, 55.7, got.Y(), 1e-9)

	_, err = (&Feature{Name: "empty"}).Centroid()
	require.Error(t, err)
}

func TestFetch_LocalGeoJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kommuner.geojson")
	require.NoError(t, os.WriteFile(p, []byte(twoMunicipalities), 0o644))

	c, err := Fetch(context.Background(), nil, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := Fetch(context.Background(), nil, filepath.Join(t.TempDir(), "nope.geojson"), Options{})
	require.Error(t, err)
}

func TestFetch_RemoteWithoutFetcher(t *testing.T) {
	_, err := Fetch(context.Background(), nil, "https://example.com/kommuner.geojson", Options{})
	require.Error(t, err)
}
