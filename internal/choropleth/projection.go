package choropleth

import (
	"math"

	"github.com/twpayne/go-geom"
)

// maxLat keeps the Mercator y finite.
const maxLat = 85.05112878

// Projection is a spherical Mercator projection with a center, scale and
// translation, matching a web map's geoMercator setup.
type Projection struct {
	k      float64
	tx, ty float64
	x0, y0 float64
}

// Mercator projects center to (tx, ty) at scale k.
func Mercator(center [2]float64, k, tx, ty float64) Projection {
	x0, y0 := mercatorRaw(center[0], center[1])
	return Projection{k: k, tx: tx, ty: ty, x0: x0, y0: y0}
}

// FitMercator centers the bounds in a width×height box and scales them to
// fill the given fraction of it. Empty bounds return ok=false.
func FitMercator(b *geom.Bounds, width, height, fill float64) (Projection, bool) {
	if b == nil || b.IsEmpty() {
		return Projection{}, false
	}
	xa, ya := mercatorRaw(b.Min(0), b.Min(1))
	xb, yb := mercatorRaw(b.Max(0), b.Max(1))
	dx, dy := xb-xa, yb-ya
	if dx <= 0 && dy <= 0 {
		return Projection{}, false
	}

	k := math.Inf(1)
	if dx > 0 {
		k = width / dx
	}
	if dy > 0 {
		k = math.Min(k, height/dy)
	}
	return Projection{
		k:  k * fill,
		tx: width / 2,
		ty: height / 2,
		x0: (xa + xb) / 2,
		y0: (ya + yb) / 2,
	}, true
}

// Project maps longitude and latitude in degrees to screen coordinates.
func (p Projection) Project(lon, lat float64) (float64, float64) {
	x, y := mercatorRaw(lon, lat)
	return p.tx + p.k*(x-p.x0), p.ty - p.k*(y-p.y0)
}

func mercatorRaw(lon, lat float64) (float64, float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	lambda := lon * math.Pi / 180
	phi := lat * math.Pi / 180
	return lambda, math.Log(math.Tan(math.Pi/4 + phi/2))
}
