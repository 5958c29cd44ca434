package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/dashboard"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/filter"
	"github.com/sells-group/demographics-dashboard/internal/store"
	"github.com/sells-group/demographics-dashboard/internal/table"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

var contentTypes = map[string]string{
	dashboard.FormatSVG:  "image/svg+xml",
	choropleth.FormatPDF: "application/pdf",
	choropleth.FormatPNG: "image/png",
}

// mapQuery is the parsed query of a map request.
type mapQuery struct {
	Format   string  `validate:"oneof=svg pdf png"`
	Variable string  `validate:"omitempty,max=64"`
	Date     string  `validate:"omitempty,max=40"`
	K        float64 `validate:"gte=0,lte=100"`
	X        float64 `validate:"gte=-100000,lte=100000"`
	Y        float64 `validate:"gte=-100000,lte=100000"`
	Slider   *int
}

func (q mapQuery) viewport() choropleth.Viewport {
	return choropleth.Viewport{K: q.K, X: q.X, Y: q.Y}
}

// tableQuery is the parsed query of a table request.
type tableQuery struct {
	Region       string `validate:"omitempty,max=100"`
	Municipality string `validate:"omitempty,max=100"`
	Year         string `validate:"omitempty,len=4,numeric"`
	Format       string `validate:"omitempty,oneof=html json"`
}

func floatParam(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseMapQuery(r *http.Request) (mapQuery, error) {
	q := mapQuery{
		Format:   chi.URLParam(r, "format"),
		Variable: r.URL.Query().Get("variable"),
		Date:     r.URL.Query().Get("date"),
	}
	var err error
	if q.K, err = floatParam(r, "k"); err != nil {
		return q, errors.New("k must be a number")
	}
	if q.X, err = floatParam(r, "x"); err != nil {
		return q, errors.New("x must be a number")
	}
	if q.Y, err = floatParam(r, "y"); err != nil {
		return q, errors.New("y must be a number")
	}
	if s := r.URL.Query().Get("slider"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return q, errors.New("slider must be an integer")
		}
		q.Slider = &i
	}
	return q, nil
}

func (s *Server) mapView(name string) *dashboard.MapView {
	switch name {
	case dashboard.ViewMunicipalities:
		return s.opts.Municipalities
	case dashboard.ViewRegions:
		return s.opts.Regions
	}
	return nil
}

func (s *Server) handleMapRender(w http.ResponseWriter, r *http.Request) {
	v := s.mapView(chi.URLParam(r, "view"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown map view")
		return
	}
	q, err := parseMapQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := v.Select(q.Variable, q.Date); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, temporal.ErrInvalidDate) || errors.Is(err, dashboard.ErrUnknownVariable) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if q.Slider != nil {
		if err := v.SetDateIndex(*q.Slider); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	data, hit, err := v.Render(q.Format, q.viewport())
	if errors.Is(err, dashboard.ErrUnavailable) {
		if data == nil {
			writeError(w, http.StatusServiceUnavailable, dashboard.MapErrorMessage)
			return
		}
		w.Header().Set("Content-Type", contentTypes[dashboard.FormatSVG])
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write(data)
		return
	}
	if err != nil {
		zap.L().Error("server: map render failed", zap.String("view", v.Name()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "map render failed")
		return
	}

	w.Header().Set("Content-Type", contentTypes[q.Format])
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(data)
}

func (s *Server) handleMapModel(w http.ResponseWriter, r *http.Request) {
	v := s.mapView(chi.URLParam(r, "view"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown map view")
		return
	}
	vm, err := v.Model()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.MapErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		State dashboard.State       `json:"state"`
		Model *choropleth.ViewModel `json:"model"`
	}{v.State(), vm})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]dashboard.CacheStats)
	for _, v := range []*dashboard.MapView{s.opts.Municipalities, s.opts.Regions} {
		if v == nil {
			continue
		}
		if stats, ok := v.CacheStats(); ok {
			out[v.Name()] = stats
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if err := s.validate.Var(view, "omitempty,oneof=municipalities regions"); err != nil {
		writeError(w, http.StatusBadRequest, "view must be municipalities or regions")
		return
	}
	catalog := s.opts.Catalogs.Municipality
	if view == dashboard.ViewRegions {
		catalog = s.opts.Catalogs.Region
	}
	writeJSON(w, http.StatusOK, catalog.All())
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	var (
		records []demographics.Record
		err     error
	)
	switch {
	case s.opts.Store != nil:
		records, err = s.opts.Store.ListRecords(r.Context(), store.RecordFilter{})
	case s.opts.Table != nil:
		records, err = s.opts.Table.Records()
	default:
		err = errors.New("no data source configured")
	}
	if err != nil {
		zap.L().Error("server: records failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load demographic data")
		return
	}
	if records == nil {
		records = []demographics.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) tableView() *dashboard.TableView {
	if s.opts.Table == nil {
		return dashboard.FailedTableView(errors.New("no table configured"))
	}
	return s.opts.Table
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := tableQuery{
		Region:       r.URL.Query().Get("region"),
		Municipality: r.URL.Query().Get("municipality"),
		Year:         r.URL.Query().Get("year"),
		Format:       r.URL.Query().Get("format"),
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := s.tableView().Apply(filter.Selection{
		Region:       q.Region,
		Municipality: q.Municipality,
		Year:         q.Year,
	})
	writeTable(w, q.Format, view)
}

func (s *Server) handleTableReset(w http.ResponseWriter, r *http.Request) {
	writeTable(w, r.URL.Query().Get("format"), s.tableView().Reset())
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tableView().Filters(r.URL.Query().Get("region")))
}

func writeTable(w http.ResponseWriter, format string, view *table.View) {
	if format == "json" {
		writeJSON(w, http.StatusOK, view)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := table.WriteHTML(w, view); err != nil {
		zap.L().Error("server: write table", zap.Error(err))
	}
}

// handleControl records a radio selection on every map view. The maps do
// not redraw.
func (s *Server) handleControl(apply func(*dashboard.MapView, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		val := r.FormValue("value")
		if err := s.validate.Var(val, "max=64"); err != nil {
			writeError(w, http.StatusBadRequest, "value too long")
			return
		}
		for _, v := range []*dashboard.MapView{s.opts.Municipalities, s.opts.Regions} {
			if v != nil {
				apply(v, val)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
