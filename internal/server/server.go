// Package server exposes the dashboard over HTTP: the records API, map and
// table renders, static data files and the page itself.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/dashboard"
	"github.com/sells-group/demographics-dashboard/internal/store"
)

// Options wires the server to its views.
type Options struct {
	// DataDir is served under /data/.
	DataDir string
	// StaticDir may hold an index.html that replaces the embedded page.
	StaticDir string

	Municipalities *dashboard.MapView
	Regions        *dashboard.MapView
	Table          *dashboard.TableView
	// Store, when set, backs the records API instead of the loaded CSV.
	Store    store.Store
	Catalogs choropleth.Catalogs
}

// Server serves the dashboard.
type Server struct {
	opts     Options
	validate *validator.Validate
}

// New returns a Server over opts.
func New(opts Options) *Server {
	if opts.Catalogs.Municipality == nil || opts.Catalogs.Region == nil {
		opts.Catalogs = choropleth.DefaultCatalogs()
	}
	return &Server{opts: opts, validate: validator.New()}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/municipality-demographics", s.handleRecords)
		r.Get("/variables", s.handleVariables)
		r.Get("/map/{view}.{format}", s.handleMapRender)
		r.Get("/map/{view}", s.handleMapModel)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Get("/table", s.handleTable)
		r.Post("/table/reset", s.handleTableReset)
		r.Get("/filters", s.handleFilters)
		r.Post("/controls/region-type", s.handleControl(func(v *dashboard.MapView, val string) { v.SetRegionType(val) }))
		r.Post("/controls/data-type", s.handleControl(func(v *dashboard.MapView, val string) { v.SetDataType(val) }))
	})

	r.Get("/data/*", s.handleData)
	r.Get("/*", s.handleIndex)
	return r
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// requestLogger logs each request through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
