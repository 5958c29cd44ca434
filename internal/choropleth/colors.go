package choropleth

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// Fill colors shared by both maps.
const (
	FallbackFill  = "#f0f0f0"
	SchemeViridis = "Viridis"
)

// Categorical is the region map palette, assigned by feature index.
var Categorical = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd"}

// viridisStops are ten evenly spaced samples of the viridis ramp.
var viridisStops = []string{
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// Interpolator maps t in [0, 1] to a color. Values outside are clamped.
type Interpolator func(t float64) color.RGBA

var (
	interpMu    sync.Mutex
	interpCache = map[string]Interpolator{}
)

// SchemeInterpolator returns the continuous interpolator for a ColorBrewer
// scheme name or "Viridis".
func SchemeInterpolator(name string) (Interpolator, error) {
	interpMu.Lock()
	defer interpMu.Unlock()
	if fn, ok := interpCache[name]; ok {
		return fn, nil
	}

	var (
		fn  Interpolator
		err error
	)
	if name == SchemeViridis {
		fn, err = viridis()
	} else {
		fn, err = brewerBasis(name)
	}
	if err != nil {
		return nil, err
	}
	interpCache[name] = fn
	return fn, nil
}

// brewerBasis interpolates the largest class of a ColorBrewer scheme.
func brewerBasis(name string) (Interpolator, error) {
	for n := 11; n >= 3; n-- {
		p, err := brewer.GetPalette(brewer.TypeAny, name, n)
		if err == nil {
			return Basis(p.Colors()), nil
		}
	}
	return nil, eris.Errorf("choropleth: unknown color scheme %q", name)
}

func viridis() (Interpolator, error) {
	stops := make([]color.Color, len(viridisStops))
	for i, s := range viridisStops {
		c, err := ParseHex(s)
		if err != nil {
			return nil, err
		}
		stops[i] = c
	}

	cmap, err := moreland.NewLuminance(stops)
	if err != nil {
		zap.L().Debug("choropleth: viridis luminance ramp unavailable, using spline", zap.Error(err))
		return Basis(stops), nil
	}
	cmap.SetMin(0)
	cmap.SetMax(1)
	return colorMapInterpolator(cmap), nil
}

func colorMapInterpolator(cmap palette.ColorMap) Interpolator {
	return func(t float64) color.RGBA {
		c, err := cmap.At(clamp01(t))
		if err != nil {
			return color.RGBA{A: 0xff}
		}
		return toRGBA(c)
	}
}

// Basis returns a uniform cubic B-spline through the colors, per channel.
// The curve passes through the first and last color exactly.
func Basis(colors []color.Color) Interpolator {
	n := len(colors)
	if n == 0 {
		return func(float64) color.RGBA { return color.RGBA{A: 0xff} }
	}
	rs, gs, bs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, c := range colors {
		rgba := toRGBA(c)
		rs[i], gs[i], bs[i] = float64(rgba.R), float64(rgba.G), float64(rgba.B)
	}
	if n == 1 {
		c := toRGBA(colors[0])
		return func(float64) color.RGBA { return c }
	}

	r, g, b := basisSpline(rs), basisSpline(gs), basisSpline(bs)
	return func(t float64) color.RGBA {
		return color.RGBA{R: channel(r(t)), G: channel(g(t)), B: channel(b(t)), A: 0xff}
	}
}

func basisSpline(values []float64) func(float64) float64 {
	n := len(values) - 1
	return func(t float64) float64 {
		var i int
		switch {
		case t <= 0 || math.IsNaN(t):
			t, i = 0, 0
		case t >= 1:
			t, i = 1, n-1
		default:
			i = int(math.Floor(t * float64(n)))
		}

		v1, v2 := values[i], values[i+1]
		v0 := 2*v1 - v2
		if i > 0 {
			v0 = values[i-1]
		}
		v3 := 2*v2 - v1
		if i < n-1 {
			v3 = values[i+2]
		}
		return basis((t-float64(i)/float64(n))*float64(n), v0, v1, v2, v3)
	}
}

func basis(t1, v0, v1, v2, v3 float64) float64 {
	t2 := t1 * t1
	t3 := t2 * t1
	return ((1-3*t1+3*t2-t3)*v0 +
		(4-6*t2+3*t3)*v1 +
		(1+3*t1+3*t2-3*t3)*v2 +
		t3*v3) / 6
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Max(0, math.Min(1, t))
}

func toRGBA(c color.Color) color.RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	rgba := toRGBA(c)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// ParseHex reads #rgb or #rrggbb.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, eris.Errorf("choropleth: bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, eris.Wrapf(err, "choropleth: bad color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
