package server

import (
	"embed"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/dashboard"
)

//go:embed static/index.html.tmpl
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "static/index.html.tmpl"))

// radio is one choice of a radio group.
type radio struct {
	Value   string
	Label   string
	Checked bool
}

// Radio choices. Selecting one is recorded on the maps without redrawing.
var (
	regionTypes = []radio{{Value: "municipality", Label: "Municipalities"}, {Value: "region", Label: "Regions"}}
	dataTypes   = []radio{{Value: "absolute", Label: "Absolute"}, {Value: "per-capita", Label: "Per capita"}}
)

// pageData feeds the page template.
type pageData struct {
	Variables   []choropleth.Variable
	Variable    string
	Dates       []string
	Slider      int
	SliderMax   int
	RegionTypes []radio
	DataTypes   []radio
	Filters     dashboard.FilterOptions
}

// checked marks the choice matching value, or the first when none does.
func checked(choices []radio, value string) []radio {
	out := slices.Clone(choices)
	i := slices.IndexFunc(out, func(r radio) bool { return r.Value == value })
	out[max(i, 0)].Checked = true
	return out
}

func (s *Server) page(region string) pageData {
	var st dashboard.State
	if s.opts.Municipalities != nil {
		st = s.opts.Municipalities.State()
	}
	slider := slices.Index(dashboard.SliderDates, st.Date)
	if slider < 0 {
		slider = len(dashboard.SliderDates) - 1
	}
	variable := st.Variable
	if variable == "" {
		variable = choropleth.DefaultVariable
	}

	filters := s.tableView().Filters(region)
	if region != "" {
		filters.Selection.Region = region
	}
	return pageData{
		Variables:   s.opts.Catalogs.Municipality.All(),
		Variable:    variable,
		Dates:       dashboard.SliderDates,
		Slider:      slider,
		SliderMax:   len(dashboard.SliderDates) - 1,
		RegionTypes: checked(regionTypes, st.RegionType),
		DataTypes:   checked(dataTypes, st.DataType),
		Filters:     filters,
	}
}

// handleData serves files from the data directory. CSV files are sent as
// text/csv. A path with no file behind it gets the page.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	fi, err := os.Stat(filepath.Join(s.opts.DataDir, filepath.FromSlash(name)))
	if err != nil || fi.IsDir() {
		s.writePage(w, r)
		return
	}
	if strings.EqualFold(path.Ext(name), ".csv") {
		w.Header().Set("Content-Type", "text/csv")
	}
	http.StripPrefix("/data/", http.FileServer(http.Dir(s.opts.DataDir))).ServeHTTP(w, r)
}

// handleIndex serves a file from the static directory when one matches,
// and the page for every other path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if dir := s.opts.StaticDir; dir != "" {
		rel := path.Clean("/" + chi.URLParam(r, "*"))
		if rel != "/" {
			full := filepath.Join(dir, filepath.FromSlash(rel))
			if fi, err := os.Stat(full); err == nil && !fi.IsDir() {
				http.ServeFile(w, r, full)
				return
			}
		}
	}
	s.writePage(w, r)
}

// writePage writes the static directory's index.html when there is one,
// else the built-in page. ?region= narrows the municipality filter.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request) {
	if dir := s.opts.StaticDir; dir != "" {
		if body, err := os.ReadFile(filepath.Join(dir, "index.html")); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(body)
			return
		}
	}

	region := r.URL.Query().Get("region")
	if err := s.validate.Var(region, "max=100"); err != nil {
		region = ""
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, s.page(region)); err != nil {
		zap.L().Error("server: render page", zap.Error(err))
	}
}
