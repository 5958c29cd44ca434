package choropleth

// Scale is a sequential color scale over [Min, Max]. Values outside the
// domain are not clamped here; the interpolator clamps t.
type Scale struct {
	Min, Max float64
	interp   Interpolator
}

// NewScale builds a scale for the domain and interpolator.
func NewScale(minV, maxV float64, interp Interpolator) Scale {
	return Scale{Min: minV, Max: maxV, interp: interp}
}

// T maps v to its position in the domain. A degenerate domain maps every
// value to 0.5.
func (s Scale) T(v float64) float64 {
	if s.Max == s.Min {
		return 0.5
	}
	return (v - s.Min) / (s.Max - s.Min)
}

// Color returns the hex fill for v.
func (s Scale) Color(v float64) string {
	return Hex(s.interp(s.T(v)))
}
