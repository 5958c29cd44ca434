package boundary

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// minRingPoints is the smallest closed ring: a triangle plus its closing point.
const minRingPoints = 4

// Simplify returns a copy of c with every polygon ring reduced by
// Douglas-Peucker at the given tolerance (in source units). A ring that would
// collapse below a triangle is kept whole. Tolerance <= 0 returns c.
func Simplify(c *Collection, tolerance float64) *Collection {
	if c == nil || tolerance <= 0 {
		return c
	}

	out := &Collection{Features: make([]*Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		sf := *f
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			flat, ends := simplifyRings(g.Stride(), g.FlatCoords(), g.Ends(), tolerance)
			sf.Geometry = geom.NewPolygonFlat(g.Layout(), flat, ends)
		case *geom.MultiPolygon:
			var (
				flat  []float64
				endss = make([][]int, 0, g.NumPolygons())
			)
			for i := range g.NumPolygons() {
				p := g.Polygon(i)
				pf, pe := simplifyRings(p.Stride(), p.FlatCoords(), p.Ends(), tolerance)
				for j := range pe {
					pe[j] += len(flat)
				}
				flat = append(flat, pf...)
				endss = append(endss, pe)
			}
			sf.Geometry = geom.NewMultiPolygonFlat(g.Layout(), flat, endss)
		}
		out.Features = append(out.Features, &sf)
	}
	return out
}

func simplifyRings(stride int, flat []float64, ends []int, tolerance float64) ([]float64, []int) {
	out := make([]float64, 0, len(flat))
	outEnds := make([]int, 0, len(ends))
	start := 0
	for _, end := range ends {
		ring := flat[start:end]
		keep := xy.SimplifyFlatCoords(ring, tolerance, stride)
		if len(keep) < minRingPoints {
			out = append(out, ring...)
		} else {
			for _, i := range keep {
				out = append(out, ring[i*stride:(i+1)*stride]...)
			}
		}
		outEnds = append(outEnds, len(out))
		start = end
	}
	return out, outEnds
}
