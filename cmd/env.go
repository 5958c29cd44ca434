package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/demographics-dashboard/internal/boundary"
	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/config"
	"github.com/sells-group/demographics-dashboard/internal/dashboard"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/fetcher"
	"github.com/sells-group/demographics-dashboard/internal/store"
	"github.com/sells-group/demographics-dashboard/internal/table"
)

// dashboardEnv holds the loaded views and the optional record store used
// by the serve command.
type dashboardEnv struct {
	Municipalities *dashboard.MapView
	Regions        *dashboard.MapView
	Table          *dashboard.TableView
	Store          store.Store // may be nil
	Catalogs       choropleth.Catalogs
}

// Close releases resources held by the environment.
func (e *dashboardEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func newFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		RatePerSec: c.Fetch.RatePerSec,
	})
}

func loadOptions(c *config.Config) demographics.LoadOptions {
	return demographics.LoadOptions{
		NumericFields: c.Data.NumericFields,
		DecimalComma:  c.Data.DecimalComma,
	}
}

// mapOptions configures the named map view from c.
func mapOptions(c *config.Config, catalogs choropleth.Catalogs, view string) (dashboard.MapOptions, error) {
	opts := dashboard.MapOptions{
		Name: view,
		Boundary: boundary.Options{
			NameField: c.Data.ShapeNameField,
			Tolerance: c.Map.SimplifyTolerance,
		},
		Load: loadOptions(c),
		Join: c.Map.Join,
		Initial: dashboard.State{
			Variable: c.Map.DefaultVariable,
			Date:     c.Map.DefaultDate,
		},
		Cache: dashboard.NewRenderCache(c.Map.CacheEntries, time.Duration(c.Map.CacheTTLSecs)*time.Second),
	}

	switch view {
	case dashboard.ViewMunicipalities:
		opts.Boundaries = c.Data.MunicipalitiesGeoJSON
		opts.Demographics = c.Data.Demographics
		opts.KeyField = demographics.FieldMunicipality
		opts.Layout = choropleth.MunicipalityLayout
		opts.Catalog = catalogs.Municipality
	case dashboard.ViewRegions:
		opts.Boundaries = c.Data.RegionsGeoJSON
		opts.Demographics = c.Data.RegionDemographics
		opts.KeyField = demographics.FieldRegion
		opts.Layout = choropleth.RegionLayout
		opts.Catalog = catalogs.Region
	default:
		return dashboard.MapOptions{}, eris.Errorf("unknown view %q", view)
	}
	return opts, nil
}

// initDashboard loads the catalogs, opens the store and loads every view in
// parallel. A view whose data fails to load is kept and shows its error
// state. Callers should defer env.Close().
func initDashboard(ctx context.Context) (*dashboardEnv, error) {
	catalogs, err := choropleth.LoadCatalogFile(cfg.Map.VariablesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load variable catalog")
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	env := &dashboardEnv{Store: st, Catalogs: catalogs}
	f := newFetcher(cfg)

	municipalityOpts, err := mapOptions(cfg, catalogs, dashboard.ViewMunicipalities)
	if err != nil {
		env.Close()
		return nil, err
	}
	regionOpts, err := mapOptions(cfg, catalogs, dashboard.ViewRegions)
	if err != nil {
		env.Close()
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env.Municipalities = dashboard.LoadMapView(gctx, f, municipalityOpts)
		return nil
	})
	g.Go(func() error {
		env.Regions = dashboard.LoadMapView(gctx, f, regionOpts)
		return nil
	})
	g.Go(func() error {
		env.Table = dashboard.LoadTableView(gctx, f, cfg.Data.Demographics, loadOptions(cfg), table.Options{Locale: cfg.Table.Locale})
		return nil
	})
	_ = g.Wait()

	zap.L().Info("dashboard loaded",
		zap.Bool("municipalities_ok", env.Municipalities.Err() == nil),
		zap.Bool("regions_ok", env.Regions.Err() == nil),
		zap.Bool("table_ok", env.Table.Err() == nil),
		zap.Bool("store", st != nil),
	)
	return env, nil
}
