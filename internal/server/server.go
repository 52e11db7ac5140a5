package server

import (
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/api"
	"github.com/joeblew999/nyc-dob-map/internal/api/viewer"
	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/db"
	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/metrics"
	"github.com/joeblew999/nyc-dob-map/internal/service"
	"github.com/joeblew999/nyc-dob-map/internal/style"
	"github.com/joeblew999/nyc-dob-map/internal/templates"
	"github.com/joeblew999/nyc-dob-map/internal/tiler/gotiler"
	"github.com/joeblew999/nyc-dob-map/internal/tiler/tippecanoe"
	"github.com/joeblew999/nyc-dob-map/web"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    int
	DataDir string
	App     *config.Config
}

// Server is the complaints map HTTP server.
type Server struct {
	config   Config
	router   chi.Router
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	bus      *service.EventBus
	metrics  *metrics.Metrics
	viewer   *viewer.Handler
}

// New creates the server. A missing DuckDB only disables reading
// exports; catalog, basemap and template failures are fatal.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, eris.New("server: no map configuration")
	}

	var set *catalog.Set
	var err error
	if cfg.App.Catalog.Dir != "" {
		set, err = catalog.LoadFS(os.DirFS(cfg.App.Catalog.Dir))
	} else {
		set, err = catalog.Embedded()
	}
	if err != nil {
		return nil, eris.Wrap(err, "server: load catalogs")
	}
	basemap, err := style.LoadBasemap(cfg.App.Map.Basemap)
	if err != nil {
		return nil, err
	}
	renderer, err := templates.New(web.FS)
	if err != nil {
		return nil, err
	}

	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "dobmap"})
	if err != nil {
		zap.L().Warn("duckdb unavailable, exports cannot be read", zap.Error(err))
		conn = nil
	}

	m := metrics.New(true)
	bus := service.NewEventBus()
	maps := service.NewMapService(cfg.App, set, basemap)
	tiles := service.NewTileService(cfg.DataDir)
	sources := service.NewSourceService(cfg.DataDir, conn)
	services := &api.Services{
		Maps:   maps,
		Views:  service.NewViewService(maps, m),
		Tile:   tiles,
		Source: sources,
		Tiler: service.NewTilerService(sources.Load, tiles, set, cfg.App.Tiler, bus, m,
			tippecanoe.New(cfg.App.Tiler.Bin), gotiler.New()),
	}

	s := &Server{
		config:   cfg,
		db:       conn,
		services: services,
		bus:      bus,
		metrics:  m,
		viewer:   viewer.New(maps, services.Views, bus, renderer),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the services behind the handlers.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return db.Close()
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	links := humastar.NewLinks()
	humaConfig := huma.DefaultConfig("NYC DOB Complaints Map API", api.Version)
	humaConfig.Info.Description = "Active NYC Department of Buildings complaints per building: map styles, category catalogs, tile archives and live viewer sessions."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%d", displayHost(s.config.Host), s.config.Port), Description: "Local server"},
	}
	// No $schema property in responses
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s.humaAPI = humachi.New(r, humaConfig)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.services).RegisterRoutes(s.humaAPI)
	s.viewer.RegisterRoutes(s.humaAPI)
	links.Discover(s.humaAPI, "viewer")

	// Pages
	defaultViewer := "/viewer/" + s.config.App.Map.DefaultVariant
	r.Get("/", http.RedirectHandler(defaultViewer, http.StatusFound).ServeHTTP)
	r.Get("/viewer", http.RedirectHandler(defaultViewer, http.StatusFound).ServeHTTP)
	r.Get("/viewer/{variant}", s.viewer.Page)

	static, err := fs.Sub(web.FS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Handle("/metrics", s.metrics.Handler())

	// Tile archives, read by the pmtiles protocol with range requests
	origins := s.config.App.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Route("/tiles", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"Range", "If-Match", "If-None-Match"},
			ExposedHeaders: []string{"Content-Length", "Content-Range", "Accept-Ranges", "ETag"},
			MaxAge:         300,
		}))
		r.Get("/{archive}", s.serveArchive)
		r.Head("/{archive}", s.serveArchive)
	})

	s.router = r
}

// serveArchive serves a PMTiles file with range support.
func (s *Server) serveArchive(w http.ResponseWriter, r *http.Request) {
	path, err := s.services.Tile.Path(chi.URLParam(r, "archive"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.pmtiles")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// logRequests logs each request once it has been served.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "localhost"
	}
	return host
}
