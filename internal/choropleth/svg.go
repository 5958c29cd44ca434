package choropleth

import (
	"bufio"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// legendHeight is the space reserved under the map for the legend.
const legendHeight = 70

// Drawer renders a view model.
type Drawer interface {
	Draw(w io.Writer, vm *ViewModel) error
}

// SVGDrawer draws a view model as a standalone SVG document. Each feature is
// a group holding its tooltip <title> and its path, so hovering the path
// shows the tooltip.
type SVGDrawer struct {
	Layout   Layout
	Viewport Viewport
}

// Draw writes the SVG.
func (d SVGDrawer) Draw(w io.Writer, vm *ViewModel) error {
	if vm == nil {
		return eris.New("choropleth: nil view model")
	}
	l := d.Layout
	vp := d.Viewport.Clamp()
	proj := l.Projection(vm.Features)

	height := l.Height
	if vm.Legend != nil {
		height += legendHeight
	}

	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)
	canvas.Startraw(
		`width="100%"`, `height="100%"`,
		`viewBox="0 0 `+num(l.Width)+" "+num(height)+`"`,
		`preserveAspectRatio="xMidYMid meet"`,
		kv("class", "choropleth "+l.Class),
	)
	canvas.Gtransform("translate(" + num(l.Margin.Left) + "," + num(l.Margin.Top) + ")")
	canvas.Group(`class="map-group"`, kv("transform", vp.Transform()))

	dataAttr := ""
	if key := attrName(vm.Variable.Key); key != "" && vm.Legend != nil {
		dataAttr = "data-" + key
	}
	strokeWidth := num(l.StrokeWidth / vp.K)
	for _, f := range vm.Features {
		if f.Feature == nil {
			continue
		}
		attrs := []string{
			kv("class", l.Class),
			kv("fill", f.Fill),
			kv("stroke", l.Stroke),
			`stroke-width="` + strokeWidth + `"`,
			kv("data-name", f.Name),
		}
		if dataAttr != "" {
			attrs = append(attrs, dataAttr+`="`+num(f.Value)+`"`)
		}
		canvas.Group(kv("class", l.Class+"-feature"))
		canvas.Title(strings.Join(f.Tooltip, "\n"))
		canvas.Path(pathData(proj, f), attrs...)
		canvas.Gend()
	}

	if l.Labels {
		for _, f := range vm.Features {
			if f.Feature == nil {
				continue
			}
			c, err := f.Feature.Centroid()
			if err != nil {
				zap.L().Debug("choropleth: no label position", zap.String("name", f.Name), zap.Error(err))
				continue
			}
			x, y := proj.Project(c.X(), c.Y())
			name := f.Name
			if name == "" {
				name = "Unnamed"
			}
			canvas.Text(px(x), px(y), name, kv("class", l.Class+"-label"), `text-anchor="middle"`, `font-size="12"`)
		}
	}
	canvas.Gend()
	canvas.Gend()

	if vm.Legend != nil {
		writeLegend(canvas, vm.Legend, l)
	}
	canvas.End()

	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "choropleth: write svg")
	}
	return nil
}

func writeLegend(canvas *svg.SVG, lg *Legend, l Layout) {
	w, _ := l.Inner()
	canvas.Group(`class="legend"`, `transform="translate(`+num(l.Margin.Left)+","+num(l.Height+10)+`)"`)

	stops := make([]svg.Offcolor, len(lg.Stops))
	for i, s := range lg.Stops {
		stops[i] = svg.Offcolor{Offset: uint8(math.Round(min(max(s.Offset, 0), 100))), Color: attr(s.Color), Opacity: 1}
	}
	canvas.Def()
	canvas.LinearGradient("legend-gradient", 0, 0, 100, 0, stops)
	canvas.DefEnd()

	canvas.Text(px(w/2), 0, lg.Title, `class="legend-title"`, `text-anchor="middle"`, `font-size="14"`, `font-weight="600"`)
	canvas.Rect(0, 8, px(w), 20, `fill="url(#legend-gradient)"`, `stroke="#ddd"`, `stroke-width="0.5"`)
	canvas.Text(0, 44, lg.MinLabel, `class="legend-label"`, `font-size="12"`)
	canvas.Text(px(w), 44, lg.MaxLabel, `class="legend-label"`, `text-anchor="end"`, `font-size="12"`)
	canvas.Gend()
}

// WriteErrorSVG writes a placeholder document carrying msg.
func WriteErrorSVG(w io.Writer, l Layout, msg string) error {
	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)
	canvas.Startraw(
		`width="100%"`, `height="100%"`,
		`viewBox="0 0 `+num(l.Width)+" "+num(l.Height)+`"`,
		`class="error-message"`,
	)
	canvas.Text(px(l.Width/2), px(l.Height/2), msg, `text-anchor="middle"`, `font-size="16"`, `fill="#c00"`)
	canvas.End()
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "choropleth: write error svg")
	}
	return nil
}

// pathData renders the feature's polygons as an SVG path.
func pathData(proj Projection, f FeatureView) string {
	var sb strings.Builder
	for _, poly := range f.Feature.Polygons() {
		stride := poly.Stride()
		flat := poly.FlatCoords()
		start := 0
		for _, end := range poly.Ends() {
			for i := start; i+1 < end; i += stride {
				x, y := proj.Project(flat[i], flat[i+1])
				if i == start {
					sb.WriteByte('M')
				} else {
					sb.WriteByte('L')
				}
				sb.WriteString(num(x))
				sb.WriteByte(',')
				sb.WriteString(num(y))
			}
			if end > start {
				sb.WriteByte('Z')
			}
			start = end
		}
	}
	return sb.String()
}

// num formats v with at most two decimals.
func num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func attr(s string) string { return html.EscapeString(s) }

// kv renders name="value" with value escaped. svgo passes arguments holding
// "=" through as raw attributes.
func kv(name, value string) string { return name + `="` + attr(value) + `"` }

// px rounds v to the whole unit svgo places text and shapes at.
func px(v float64) int { return int(math.Round(v)) }

// attrName keeps the characters allowed in a data-* attribute name.
func attrName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, key)
}
