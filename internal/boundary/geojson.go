// Package boundary loads municipality and region boundaries from GeoJSON or
// shapefiles and prepares them for drawing.
package boundary

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/fetcher"
)

// NameProperty is the feature property used as the join key.
const NameProperty = "name"

// Feature is one boundary polygon and its join name.
type Feature struct {
	ID         string
	Name       string
	Geometry   geom.T
	Properties map[string]any
}

// Collection is an ordered set of features.
type Collection struct {
	Features []*Feature
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Bounds returns the bounding box of every geometry in c. The result is
// empty when c holds no geometry.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	if c == nil {
		return b
	}
	for _, f := range c.Features {
		if f.Geometry != nil {
			b.Extend(f.Geometry)
		}
	}
	return b
}

// Centroid returns the geometric centroid of the feature.
func (f *Feature) Centroid() (geom.Coord, error) {
	if f.Geometry == nil {
		return nil, eris.Errorf("boundary: %q has no geometry", f.Name)
	}
	c, err := xy.Centroid(f.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: centroid of %q", f.Name)
	}
	return c, nil
}

// Polygons returns the feature's polygons. Non-areal geometries yield none.
func (f *Feature) Polygons() []*geom.Polygon {
	switch g := f.Geometry.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{g}
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, g.NumPolygons())
		for i := range g.NumPolygons() {
			out = append(out, g.Polygon(i))
		}
		return out
	default:
		return nil
	}
}

// DecodeGeoJSON reads a FeatureCollection. The feature name comes from the
// "name" property; a missing or non-string name becomes "".
func DecodeGeoJSON(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: read geojson")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	c := &Collection{Features: make([]*Feature, 0, len(fc.Features))}
	for _, gf := range fc.Features {
		name, _ := gf.Properties[NameProperty].(string)
		c.Features = append(c.Features, &Feature{
			ID:         gf.ID,
			Name:       name,
			Geometry:   gf.Geometry,
			Properties: gf.Properties,
		})
	}
	return c, nil
}

// Options configures Fetch.
type Options struct {
	// NameField is the shapefile attribute holding the feature name.
	NameField string
	// Tolerance enables Douglas-Peucker simplification when positive.
	Tolerance float64
}

// Fetch loads boundaries from a local path or URL. Sources ending in .shp
// are read as shapefiles; everything else is GeoJSON. Fetch does not retry.
func Fetch(ctx context.Context, f fetcher.Fetcher, source string, opts Options) (*Collection, error) {
	var (
		c   *Collection
		err error
	)
	if strings.EqualFold(path.Ext(source), ".shp") {
		c, err = fetchShapefile(ctx, f, source, opts.NameField)
	} else {
		c, err = fetchGeoJSON(ctx, f, source)
	}
	if err != nil {
		return nil, err
	}

	if opts.Tolerance > 0 {
		c = Simplify(c, opts.Tolerance)
	}
	zap.L().Info("boundary: loaded",
		zap.String("source", source),
		zap.Int("features", c.Len()),
	)
	return c, nil
}

func fetchGeoJSON(ctx context.Context, f fetcher.Fetcher, source string) (*Collection, error) {
	rc, err := fetcher.Open(ctx, f, source)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: fetch")
	}
	defer rc.Close() //nolint:errcheck

	c, err := DecodeGeoJSON(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: load %s", source)
	}
	return c, nil
}
