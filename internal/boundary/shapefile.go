package boundary

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/demographics-dashboard/internal/fetcher"
)

// DefaultNameField is the name attribute of the Danish administrative
// boundary shapefiles.
const DefaultNameField = "navn"

// ReadShapefile reads polygon features from a local shapefile. The .dbf
// sidecar must sit next to it. Records without polygon geometry are skipped.
func ReadShapefile(shpPath, nameField string) (*Collection, error) {
	if nameField == "" {
		nameField = DefaultNameField
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	nameIdx := -1
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(names[i], nameField) {
			nameIdx = i
		}
	}
	if nameIdx < 0 {
		zap.L().Warn("boundary: shapefile has no name field",
			zap.String("path", shpPath),
			zap.String("field", nameField),
		)
	}

	c := &Collection{}
	var skipped int
	for reader.Next() {
		row, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		for i, n := range names {
			props[n] = attribute(reader.Attribute(i))
		}
		name := ""
		if nameIdx >= 0 {
			name = attribute(reader.Attribute(nameIdx))
		}
		props[NameProperty] = name

		c.Features = append(c.Features, &Feature{
			ID:         strconv.Itoa(row),
			Name:       name,
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return c, nil
}

// attribute trims dBase padding. Values that are not valid UTF-8 are taken
// as Latin-1, the usual encoding of older Danish .dbf files.
func attribute(raw string) string {
	v := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if utf8.ValidString(v) {
		return v
	}
	dec, err := charmap.ISO8859_1.NewDecoder().String(v)
	if err != nil {
		return v
	}
	return dec
}

// fetchShapefile reads a local shapefile, or downloads a remote one and its
// .dbf into a temporary directory first.
func fetchShapefile(ctx context.Context, f fetcher.Fetcher, source, nameField string) (*Collection, error) {
	if !fetcher.IsRemote(source) {
		c, err := ReadShapefile(source, nameField)
		if err != nil {
			return nil, eris.Wrap(err, "boundary: fetch")
		}
		return c, nil
	}
	if f == nil {
		return nil, eris.Errorf("boundary: no http fetcher for %s", source)
	}

	dir, err := os.MkdirTemp("", "boundary-*")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	base := strings.TrimSuffix(path.Base(source), path.Ext(source))
	urlBase := strings.TrimSuffix(source, path.Ext(source))
	local := filepath.Join(dir, base+".shp")
	for _, ext := range []string{".shp", ".dbf"} {
		if _, err := f.DownloadToFile(ctx, urlBase+ext, filepath.Join(dir, base+ext)); err != nil {
			return nil, eris.Wrapf(err, "boundary: fetch %s", urlBase+ext)
		}
	}

	c, err := ReadShapefile(local, nameField)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: fetch")
	}
	return c, nil
}

// polygonToMultiPolygon converts a shapefile polygon to a MultiPolygon with
// one polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
