package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

func featureFill(t *testing.T, vm *choropleth.ViewModel, name string) choropleth.FeatureView {
	t.Helper()
	for _, f := range vm.Features {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("feature %s not found", name)
	return choropleth.FeatureView{}
}

func TestLoadMapView(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	require.NoError(t, v.Err())

	vm, err := v.Model()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{205000, 360000}, vm.Domain)
	assert.Equal(t, []string{"2024-01-01", "2025-01-01"}, v.Dates())

	aarhus := featureFill(t, vm, "Aarhus")
	assert.True(t, aarhus.Matched)
	assert.Equal(t, []string{"Aarhus", "Region: Midtjylland", "Total Population: 360,000"}, aarhus.Tooltip)
}

func TestMapView_SelectUpdatesModel(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	require.NoError(t, v.Err())

	require.NoError(t, v.Select("", "2025-01-01"))
	vm, err := v.Model()
	require.NoError(t, err)
	assert.InDelta(t, 367000, featureFill(t, vm, "Aarhus").Value, 0.001)
	// Odense has no 2025 row and keeps its earlier value.
	assert.InDelta(t, 205000, featureFill(t, vm, "Odense").Value, 0.001)

	require.NoError(t, v.Select("births", ""))
	vm, err = v.Model()
	require.NoError(t, err)
	assert.Equal(t, "births", vm.Variable.Key)
	// The 2025 Aarhus row has an empty births cell, parsed as 0.
	assert.Zero(t, featureFill(t, vm, "Aarhus").Value)
	assert.Equal(t, choropleth.FallbackFill, featureFill(t, vm, "Aarhus").Fill)
	assert.InDelta(t, 2100, featureFill(t, vm, "Odense").Value, 0.001)
	assert.Equal(t, uint64(2), v.State().Revision)
}

func TestMapView_SelectInvalidDate(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	before := v.State()

	err := v.Select("births", "not-a-date")
	require.Error(t, err)
	assert.True(t, errors.Is(err, temporal.ErrInvalidDate))
	assert.Equal(t, before, v.State())
}

func TestMapView_SelectUnknownVariable(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	require.NoError(t, v.Err())
	before := v.State()

	for _, name := range []string{"no_such_variable", "junk_1", "junk_2"} {
		err := v.Select(name, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownVariable), name)
	}
	assert.Equal(t, before, v.State())

	ent, ok := v.index.Lookup("Aarhus")
	require.True(t, ok)
	assert.False(t, ent.Current.Has("no_such_variable"))
	assert.False(t, ent.Current.Has("junk_1"))

	vm, err := v.Model()
	require.NoError(t, err)
	assert.Equal(t, "population_total", vm.Variable.Key)
}

func TestMapView_SetDateIndex(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))

	require.NoError(t, v.SetDateIndex(2))
	assert.Equal(t, "2025-01-01", v.State().Date)

	err := v.SetDateIndex(3)
	assert.True(t, errors.Is(err, ErrSliderIndex))
}

func TestMapView_RenderCaches(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))

	first, hit, err := v.Render(FormatSVG, choropleth.Viewport{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, string(first), `data-name="Aarhus"`)
	assert.Contains(t, string(first), `transform="translate(-400,-400) scale(2)"`)

	again, hit, err := v.Render(FormatSVG, choropleth.Viewport{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, again)

	require.NoError(t, v.Select("births", ""))
	_, hit, err = v.Render(FormatSVG, choropleth.Viewport{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMapView_RenderPNG(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))

	data, _, err := v.Render(choropleth.FormatPNG, choropleth.Viewport{K: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))
}

func TestMapView_RenderUnknownFormat(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	_, _, err := v.Render("gif", choropleth.Viewport{})
	require.Error(t, err)
}

func TestMapView_LoadFailure(t *testing.T) {
	opts := testMapOptions(t)
	opts.Boundaries = filepath.Join(t.TempDir(), "missing.geojson")

	v := LoadMapView(context.Background(), nil, opts)
	require.Error(t, v.Err())

	data, _, err := v.Render(FormatSVG, choropleth.Viewport{})
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, string(data), MapErrorMessage)

	_, _, err = v.Render(choropleth.FormatPDF, choropleth.Viewport{})
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = v.Model()
	assert.True(t, errors.Is(err, ErrUnavailable))

	// Controls still update state without touching the missing data.
	require.NoError(t, v.Select("births", ""))
	assert.Equal(t, "births", v.State().Variable)
}

func TestMapView_Categorical(t *testing.T) {
	opts := testMapOptions(t)
	opts.Name = ViewRegions
	opts.Demographics = ""
	opts.Layout = choropleth.RegionLayout

	v := LoadMapView(context.Background(), nil, opts)
	require.NoError(t, v.Err())

	vm, err := v.Model()
	require.NoError(t, err)
	assert.Nil(t, vm.Legend)
	assert.Equal(t, choropleth.Categorical[0], vm.Features[0].Fill)
	assert.Equal(t, choropleth.Categorical[1], vm.Features[1].Fill)

	// Data updates are a logged no-op.
	require.NoError(t, v.Select("births", "2025-01-01"))
	after, err := v.Model()
	require.NoError(t, err)
	assert.Equal(t, vm, after)

	svg, _, err := v.Render(FormatSVG, choropleth.Viewport{})
	require.NoError(t, err)
	assert.Contains(t, string(svg), `class="region-label"`)
}

func TestMapView_RedrawIsIdempotent(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	first, err := v.Model()
	require.NoError(t, err)

	require.NoError(t, v.Select("", "2024-07-01"))
	require.NoError(t, v.Select("", "2024-01-01"))
	second, err := v.Model()
	require.NoError(t, err)

	for i := range first.Features {
		assert.Equal(t, first.Features[i].Fill, second.Features[i].Fill)
	}
}

func TestMapView_RadiosKeepModel(t *testing.T) {
	v := LoadMapView(context.Background(), nil, testMapOptions(t))
	before, err := v.Model()
	require.NoError(t, err)

	v.SetRegionType("regions")
	v.SetDataType("economy")

	after, err := v.Model()
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, "regions", v.State().RegionType)
	assert.Zero(t, v.State().Revision)
}
