package choropleth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSVGDrawer_Draw(t *testing.T) {
	vm, err := Build(testFeatures(), testIndex(t), popVariable())
	require.NoError(t, err)

	var buf bytes.Buffer
	d := SVGDrawer{Layout: MunicipalityLayout, Viewport: MunicipalityLayout.Initial}
	require.NoError(t, d.Draw(&buf, vm))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `class="choropleth municipality"`)
	assert.Equal(t, 3, strings.Count(out, `<g class="municipality-feature"`))
	assert.Equal(t, 3, strings.Count(out, `class="municipality" fill=`))
	assert.Contains(t, out, `fill="#08306b"`)
	assert.Contains(t, out, `fill="#f0f0f0"`)
	assert.Contains(t, out, `data-name="Læsø"`)
	assert.Contains(t, out, `data-population_total="367000"`)
	assert.Contains(t, out, "<title>Aarhus&#xA;Region: Midtjylland&#xA;Total Population: 367,000</title>")
	assert.Contains(t, out, `transform="translate(-400,-400) scale(2)"`)
	assert.Contains(t, out, `stroke-width="0.5"`)
	assert.Equal(t, 11, strings.Count(out, "<stop "))
	assert.Contains(t, out, `<text x="0" y="44" class="legend-label" font-size="12" >0</text>`)
	assert.Contains(t, out, ">367,000</text>")
	assert.NotContains(t, out, "municipality-label")
}

func TestSVGDrawer_ClampsZoom(t *testing.T) {
	vm := Outline(testFeatures(), popVariable())

	var buf bytes.Buffer
	require.NoError(t, SVGDrawer{Layout: MunicipalityLayout, Viewport: Viewport{K: 40}}.Draw(&buf, vm))
	assert.Contains(t, buf.String(), "scale(8)")
	assert.NotContains(t, buf.String(), "<stop ")
	assert.NotContains(t, buf.String(), "data-population_total")
}

func TestSVGDrawer_RegionLabels(t *testing.T) {
	vm := BuildCategorical(testFeatures())

	var buf bytes.Buffer
	require.NoError(t, SVGDrawer{Layout: RegionLayout, Viewport: RegionLayout.Initial}.Draw(&buf, vm))
	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, `class="region-label"`))
	assert.Contains(t, out, ">Odense</text>")
	assert.Contains(t, out, `fill="#1f77b4"`)
	assert.Contains(t, out, `viewBox="0 0 1000 700"`)
}

func TestSVGDrawer_EscapesNames(t *testing.T) {
	features := testFeatures()
	features.Features[0].Name = `A&B "<x>"`
	vm := Outline(features, popVariable())

	var buf bytes.Buffer
	require.NoError(t, SVGDrawer{Layout: MunicipalityLayout}.Draw(&buf, vm))
	assert.NotContains(t, buf.String(), `"<x>"`)
	assert.Contains(t, buf.String(), "A&amp;B")
}

func TestSVGDrawer_NilModel(t *testing.T) {
	require.Error(t, SVGDrawer{}.Draw(&bytes.Buffer{}, nil))
}

func TestWriteErrorSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteErrorSVG(&buf, MunicipalityLayout, "Error loading map data. Please try again later."))
	assert.Contains(t, buf.String(), `class="error-message"`)
	assert.Contains(t, buf.String(), "Error loading map data. Please try again later.")
	assert.Contains(t, buf.String(), `viewBox="0 0 800 800"`)
	assert.True(t, strings.HasSuffix(buf.String(), "</svg>\n"))
}

func TestSVGDrawer_TitleBeforePath(t *testing.T) {
	vm, err := Build(testFeatures(), testIndex(t), popVariable())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SVGDrawer{Layout: MunicipalityLayout}.Draw(&buf, vm))
	out := buf.String()

	group := strings.Index(out, `<g class="municipality-feature"`)
	require.GreaterOrEqual(t, group, 0)
	title := strings.Index(out[group:], "<title>")
	path := strings.Index(out[group:], "<path ")
	end := strings.Index(out[group:], "</g>")
	assert.True(t, title < path && path < end, "tooltip and path share the feature group")
	assert.Contains(t, out, `<linearGradient id="legend-gradient" x1="0%" y1="0%" x2="100%" y2="0%">`)
	assert.Contains(t, out, `<stop offset="100%" stop-color="#08306b" stop-opacity="1.00"/>`)
	assert.Contains(t, out, `fill="url(#legend-gradient)"`)
}

func TestViewport(t *testing.T) {
	assert.Equal(t, Viewport{K: 1}, Viewport{}.Clamp())
	assert.Equal(t, 0.7, Viewport{K: 0.1}.Clamp().K)
	assert.Equal(t, Viewport{K: 2, X: -400, Y: -400}, ZoomAbout(2, 400, 400))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "1.23", num(1.2345))
	assert.Equal(t, "-12", num(-12))
}

func TestAttrName(t *testing.T) {
	assert.Equal(t, "population_total", attrName("population_total"))
	assert.Equal(t, "areakm", attrName("Area (km²)"))
}
