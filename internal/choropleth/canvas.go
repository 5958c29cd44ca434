package choropleth

import (
	"image/color"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
)

// Canvas output formats.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// CanvasDrawer draws a view model to a PDF or PNG page. Tooltips have no
// equivalent there and are omitted.
type CanvasDrawer struct {
	Layout   Layout
	Viewport Viewport
	Format   string
}

// Draw writes the page.
func (d CanvasDrawer) Draw(w io.Writer, vm *ViewModel) error {
	if vm == nil {
		return eris.New("choropleth: nil view model")
	}
	l := d.Layout
	height := l.Height
	if vm.Legend != nil {
		height += legendHeight
	}

	var c vg.CanvasWriterTo
	switch d.Format {
	case FormatPDF:
		c = vgpdf.New(vg.Length(l.Width), vg.Length(height))
	case FormatPNG, "":
		c = vgimg.PngCanvas{Canvas: vgimg.New(vg.Length(l.Width), vg.Length(height))}
	default:
		return eris.Errorf("choropleth: unknown canvas format %q", d.Format)
	}

	dc := draw.New(c)
	t := screen{vp: d.Viewport.Clamp(), margin: l.Margin, height: height}
	proj := l.Projection(vm.Features)
	stroke := parseOr(l.Stroke, color.Black)

	for _, f := range vm.Features {
		if f.Feature == nil {
			continue
		}
		fill := parseOr(f.Fill, color.White)
		for _, poly := range f.Feature.Polygons() {
			var path vg.Path
			stride := poly.Stride()
			flat := poly.FlatCoords()
			start := 0
			for _, end := range poly.Ends() {
				for i := start; i+1 < end; i += stride {
					pt := t.point(proj.Project(flat[i], flat[i+1]))
					if i == start {
						path.Move(pt)
					} else {
						path.Line(pt)
					}
				}
				if end > start {
					path.Close()
				}
				start = end
			}
			dc.SetColor(fill)
			dc.Fill(path)
			dc.SetColor(stroke)
			dc.SetLineWidth(vg.Length(l.StrokeWidth))
			dc.Stroke(path)
		}
	}

	if l.Labels {
		for _, f := range vm.Features {
			if f.Feature == nil {
				continue
			}
			cen, err := f.Feature.Centroid()
			if err != nil {
				zap.L().Debug("choropleth: no label position", zap.String("name", f.Name), zap.Error(err))
				continue
			}
			fillText(dc, f.Name, 12, t.point(proj.Project(cen.X(), cen.Y())), draw.XCenter)
		}
	}

	if vm.Legend != nil {
		drawLegend(dc, vm.Legend, l, height)
	}

	if _, err := c.WriteTo(w); err != nil {
		return eris.Wrapf(err, "choropleth: write %s", d.Format)
	}
	return nil
}

// screen maps projected map coordinates through the viewport and margin to
// canvas points. The canvas origin is bottom-left.
type screen struct {
	vp     Viewport
	margin Margin
	height float64
}

func (s screen) point(x, y float64) vg.Point {
	sx := s.margin.Left + s.vp.X + s.vp.K*x
	sy := s.margin.Top + s.vp.Y + s.vp.K*y
	return vg.Point{X: vg.Length(sx), Y: vg.Length(s.height - sy)}
}

func drawLegend(dc draw.Canvas, lg *Legend, l Layout, height float64) {
	w, _ := l.Inner()
	x0 := vg.Length(l.Margin.Left)
	top := vg.Length(height - l.Height - 18)

	fillText(dc, lg.Title, 14, vg.Point{X: x0 + vg.Length(w/2), Y: top + 4}, draw.XCenter)

	if n := len(lg.Stops); n > 1 {
		step := vg.Length(w) / vg.Length(n-1)
		for i := 0; i < n-1; i++ {
			x := x0 + vg.Length(i)*step
			dc.FillPolygon(parseOr(lg.Stops[i].Color, color.White), []vg.Point{
				{X: x, Y: top - 20},
				{X: x + step, Y: top - 20},
				{X: x + step, Y: top},
				{X: x, Y: top},
			})
		}
	}

	fillText(dc, lg.MinLabel, 12, vg.Point{X: x0, Y: top - 36}, draw.XLeft)
	fillText(dc, lg.MaxLabel, 12, vg.Point{X: x0 + vg.Length(w), Y: top - 36}, draw.XRight)
}

func fillText(dc draw.Canvas, txt string, size vg.Length, pt vg.Point, align draw.XAlignment) {
	if txt == "" {
		return
	}
	sty := draw.TextStyle{
		Color:   color.Black,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
		XAlign:  align,
	}
	sty.Font.Size = size
	dc.FillText(sty, pt, txt)
}

func parseOr(hex string, def color.Color) color.Color {
	c, err := ParseHex(hex)
	if err != nil {
		return def
	}
	return c
}
