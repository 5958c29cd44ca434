package choropleth

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// Zoom limits.
const (
	MinZoom = 0.7
	MaxZoom = 8
)

// Margin is the inset of the map group inside the viewport.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Viewport is a zoom/pan transform applied to the map group.
type Viewport struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp limits K to [MinZoom, MaxZoom]. A zero K means identity.
func (v Viewport) Clamp() Viewport {
	if v.K == 0 || math.IsNaN(v.K) {
		v.K = 1
	}
	v.K = math.Max(MinZoom, math.Min(MaxZoom, v.K))
	return v
}

// Transform renders the viewport as an SVG transform attribute.
func (v Viewport) Transform() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(v.X), num(v.Y), num(v.K))
}

// ZoomAbout returns the viewport that scales by k about the point (cx, cy).
func ZoomAbout(k, cx, cy float64) Viewport {
	return Viewport{K: k, X: cx - cx*k, Y: cy - cy*k}.Clamp()
}

// Layout fixes a map's size, projection and styling.
type Layout struct {
	Width, Height float64
	Margin        Margin
	// Center and Scale configure a fixed Mercator projection. When Fit is
	// set, the projection is fitted to the features instead.
	Center [2]float64
	Scale  float64
	Fit    bool
	// Labels draws feature names at their centroids.
	Labels      bool
	Class       string
	Stroke      string
	StrokeWidth float64
	Initial     Viewport
}

// MunicipalityLayout is the 800×800 municipality map, zoomed 2× about its
// center.
var MunicipalityLayout = Layout{
	Width:       800,
	Height:      800,
	Margin:      Margin{Top: 20, Right: 20, Bottom: 20, Left: 20},
	Center:      [2]float64{10, 56},
	Scale:       3000,
	Class:       "municipality",
	Stroke:      "#fff",
	StrokeWidth: 1,
	Initial:     ZoomAbout(2, 400, 400),
}

// RegionLayout is the 1000×700 region map with centroid labels.
var RegionLayout = Layout{
	Width:       1000,
	Height:      700,
	Margin:      Margin{Top: 20, Right: 20, Bottom: 60, Left: 20},
	Center:      [2]float64{10, 56},
	Scale:       3000,
	Fit:         true,
	Labels:      true,
	Class:       "region",
	Stroke:      "#000",
	StrokeWidth: 1,
	Initial:     Viewport{K: 1},
}

// fitFill is the share of the inner area a fitted projection fills.
const fitFill = 0.9

// Inner returns the drawable size inside the margins.
func (l Layout) Inner() (float64, float64) {
	return l.Width - l.Margin.Left - l.Margin.Right, l.Height - l.Margin.Top - l.Margin.Bottom
}

// Projection returns the layout's projection for the features.
func (l Layout) Projection(features []FeatureView) Projection {
	w, h := l.Inner()
	if l.Fit {
		b := geom.NewBounds(geom.XY)
		for _, f := range features {
			if f.Feature != nil && f.Feature.Geometry != nil {
				b.Extend(f.Feature.Geometry)
			}
		}
		if p, ok := FitMercator(b, w, h, fitFill); ok {
			return p
		}
	}
	return Mercator(l.Center, l.Scale, w/2, h/2)
}
