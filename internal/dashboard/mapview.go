package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/demographics-dashboard/internal/boundary"
	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/fetcher"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// MapErrorMessage replaces the map when its data failed to load.
const MapErrorMessage = "Error loading map data. Please try again later."

// View names.
const (
	ViewMunicipalities = "municipalities"
	ViewRegions        = "regions"
)

// FormatSVG is the interactive map format. PDF and PNG use
// choropleth.FormatPDF and choropleth.FormatPNG.
const FormatSVG = "svg"

// ErrUnavailable is returned when a view's data failed to load.
var ErrUnavailable = eris.New("dashboard: view unavailable")

// MapOptions configures LoadMapView.
type MapOptions struct {
	Name string
	// Boundaries is the GeoJSON or shapefile source.
	Boundaries string
	Boundary   boundary.Options
	// Demographics is the CSV source. Empty draws categorical fills.
	Demographics string
	Load         demographics.LoadOptions
	// KeyField joins records to features: "municipality" or "region".
	KeyField string
	Join     string
	Layout   choropleth.Layout
	Catalog  *choropleth.Catalog
	Initial  State
	Cache    *RenderCache
}

// MapView owns one map: its features, temporal index and current view
// model. Every control change runs under mu, one at a time.
type MapView struct {
	mu sync.Mutex

	name        string
	layout      choropleth.Layout
	catalog     *choropleth.Catalog
	features    *boundary.Collection
	index       *temporal.Index
	m           choropleth.Map
	state       State
	categorical bool
	err         error
	cache       *RenderCache
}

// LoadMapView fetches boundaries and demographics in parallel and draws
// the initial map. A failed fetch is kept on the view, which then renders
// the error placeholder. The view is never nil.
func LoadMapView(ctx context.Context, f fetcher.Fetcher, opts MapOptions) *MapView {
	v := &MapView{
		name:    opts.Name,
		layout:  opts.Layout,
		catalog: opts.Catalog,
		state:   opts.Initial,
		cache:   opts.Cache,
	}
	if v.catalog == nil {
		v.catalog = choropleth.NewCatalog(choropleth.MunicipalityVariables)
	}

	var (
		features *boundary.Collection
		records  []demographics.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := boundary.Fetch(gctx, f, opts.Boundaries, opts.Boundary)
		if err != nil {
			return eris.Wrap(err, "dashboard: load boundaries")
		}
		features = c
		return nil
	})
	if opts.Demographics != "" {
		g.Go(func() error {
			recs, err := demographics.Fetch(gctx, f, opts.Demographics, opts.Load)
			if err != nil {
				return eris.Wrap(err, "dashboard: load demographics")
			}
			records = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Error("dashboard: map data failed to load", zap.String("view", v.name), zap.Error(err))
		v.err = err
		return v
	}
	v.features = features

	if opts.Demographics == "" {
		v.categorical = true
		v.m.Set(choropleth.BuildCategorical(features))
		return v
	}

	norm, err := boundary.NewNormalizer(opts.Join)
	if err != nil {
		v.err = err
		return v
	}
	ix, err := temporal.Build(records, opts.KeyField, v.state.Date, v.state.Variable, temporal.WithKeyNormalizer(norm))
	if err != nil {
		v.err = eris.Wrap(err, "dashboard: index demographics")
		return v
	}
	v.index = ix
	v.redraw()

	zap.L().Info("dashboard: map loaded",
		zap.String("view", v.name),
		zap.Int("features", features.Len()),
		zap.Int("entities", ix.Len()),
	)
	return v
}

// Name returns the view name.
func (v *MapView) Name() string { return v.name }

// Err returns the load error, if any.
func (v *MapView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// State returns a copy of the control state.
func (v *MapView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Catalog returns the view's variable catalog.
func (v *MapView) Catalog() *choropleth.Catalog { return v.catalog }

// Dates returns the snapshot dates of the loaded data.
func (v *MapView) Dates() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index == nil {
		return nil
	}
	return v.index.Dates()
}

// Select applies a variable and date change and redraws. Empty arguments
// keep the current selection. A variable outside the catalog returns
// ErrUnknownVariable and an invalid date returns temporal.ErrInvalidDate;
// neither changes anything.
func (v *MapView) Select(variable, date string) error {
	if variable != "" && !v.catalog.Has(variable) {
		return eris.Wrapf(ErrUnknownVariable, "%q", variable)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.state
	next.SetVariable(variable)
	if date != "" {
		if _, err := next.SetDate(date); err != nil {
			return err
		}
	}
	if next.Revision == v.state.Revision {
		return nil
	}
	v.state = next

	if v.err != nil {
		return nil
	}
	if v.categorical {
		zap.L().Info("dashboard: data update ignored for categorical map",
			zap.String("view", v.name),
			zap.String("variable", v.state.Variable),
			zap.String("date", v.state.Date),
		)
		return nil
	}

	if err := v.index.UpdateCurrentData(v.state.Date, v.state.Variable); err != nil {
		return err
	}
	v.redraw()
	if v.cache != nil {
		v.cache.Invalidate(v.name)
	}
	return nil
}

// SetDateIndex selects the slider date at position i.
func (v *MapView) SetDateIndex(i int) error {
	if i < 0 || i >= len(SliderDates) {
		return eris.Wrapf(ErrSliderIndex, "%d", i)
	}
	return v.Select("", SliderDates[i])
}

// redraw rebuilds the view model. A failed build keeps the prior model.
func (v *MapView) redraw() {
	variable := v.catalog.Lookup(v.state.Variable)
	err := v.m.Redraw(v.features, v.index, variable)
	if err != nil && !errors.Is(err, choropleth.ErrNoData) {
		zap.L().Warn("dashboard: redraw kept the previous map", zap.String("view", v.name), zap.Error(err))
	}
}

// model returns the current view model, or a gray outline when no redraw
// has succeeded yet.
func (v *MapView) model() *choropleth.ViewModel {
	if vm := v.m.Current(); vm != nil {
		return vm
	}
	return choropleth.Outline(v.features, v.catalog.Lookup(v.state.Variable))
}

// Model returns the current view model.
func (v *MapView) Model() (*choropleth.ViewModel, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, eris.Wrap(ErrUnavailable, v.err.Error())
	}
	return v.model(), nil
}

// Render draws the map in format at viewport vp. A zero viewport uses the
// layout's initial transform. The bool reports a cache hit. When the view
// failed to load, SVG requests get the error placeholder along with
// ErrUnavailable.
func (v *MapView) Render(format string, vp choropleth.Viewport) ([]byte, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if vp == (choropleth.Viewport{}) {
		vp = v.layout.Initial
	}
	vp = vp.Clamp()

	if v.err != nil {
		if format != FormatSVG {
			return nil, false, eris.Wrap(ErrUnavailable, v.err.Error())
		}
		var buf bytes.Buffer
		if err := choropleth.WriteErrorSVG(&buf, v.layout, MapErrorMessage); err != nil {
			return nil, false, err
		}
		return buf.Bytes(), false, ErrUnavailable
	}

	key := RenderKey{View: v.name, Revision: v.state.Revision, Format: format, Viewport: vp}
	if v.cache != nil {
		if data := v.cache.Get(key); data != nil {
			return data, true, nil
		}
	}

	var d choropleth.Drawer
	switch format {
	case FormatSVG:
		d = choropleth.SVGDrawer{Layout: v.layout, Viewport: vp}
	case choropleth.FormatPDF, choropleth.FormatPNG:
		d = choropleth.CanvasDrawer{Layout: v.layout, Viewport: vp, Format: format}
	default:
		return nil, false, eris.Errorf("dashboard: unknown format %q", format)
	}

	var buf bytes.Buffer
	if err := d.Draw(&buf, v.model()); err != nil {
		return nil, false, eris.Wrapf(err, "dashboard: draw %s", v.name)
	}
	data := buf.Bytes()
	if v.cache != nil {
		v.cache.Put(key, data)
	}
	return data, false, nil
}

// SetRegionType records the region-type radio without redrawing.
func (v *MapView) SetRegionType(t string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SetRegionType(t)
}

// SetDataType records the data-type radio without redrawing.
func (v *MapView) SetDataType(t string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SetDataType(t)
}

// CacheStats returns the render cache statistics, or false when the view
// has no cache.
func (v *MapView) CacheStats() (CacheStats, bool) {
	if v.cache == nil {
		return CacheStats{}, false
	}
	return v.cache.Stats(), true
}
