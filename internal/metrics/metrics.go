// Package metrics holds the Prometheus instruments of the map server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dobmap"

// Metrics is the set of instruments, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	ViewsActive   prometheus.Gauge
	ViewsOpened   *prometheus.CounterVec
	Toggles       *prometheus.CounterVec
	Selections    *prometheus.CounterVec
	TileBytes     *prometheus.CounterVec
	TileBuilds    *prometheus.CounterVec
	TileBuildTime prometheus.Histogram
	HTTPDuration  *prometheus.HistogramVec
}

// New creates and registers the instruments. Process and Go runtime
// collectors are included when runtime is true.
func New(runtime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
			collectors.NewGoCollector(),
		)
	}

	m := &Metrics{
		registry: reg,
		ViewsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "views_active",
			Help: "Map views with an open page.",
		}),
		ViewsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "views_opened_total",
			Help: "Map views opened, by variant.",
		}, []string{"variant"}),
		Toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "layer_toggles_total",
			Help: "Layer visibility toggles, by variant.",
		}, []string{"variant"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "selections_total",
			Help: "Map clicks, by whether they hit a building.",
		}, []string{"result"}),
		TileBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tile_bytes_total",
			Help: "Bytes served from tile archives.",
		}, []string{"archive"}),
		TileBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tile_builds_total",
			Help: "Tile archive builds, by engine and result.",
		}, []string{"engine", "result"}),
		TileBuildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tile_build_seconds",
			Help:    "Tile archive build duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.ViewsActive, m.ViewsOpened, m.Toggles, m.Selections,
		m.TileBytes, m.TileBuilds, m.TileBuildTime, m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Selection records a map click.
func (m *Metrics) Selection(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Selections.WithLabelValues(result).Inc()
}

// Toggle records a layer toggle.
func (m *Metrics) Toggle(variant string) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(variant).Inc()
}

// ViewOpened records a new view.
func (m *Metrics) ViewOpened(variant string) {
	if m == nil {
		return
	}
	m.ViewsOpened.WithLabelValues(variant).Inc()
	m.ViewsActive.Inc()
}

// ViewClosed records a closed view.
func (m *Metrics) ViewClosed() {
	if m == nil {
		return
	}
	m.ViewsActive.Dec()
}

// TileBuild records a finished build.
func (m *Metrics) TileBuild(engine string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TileBuilds.WithLabelValues(engine, result).Inc()
	m.TileBuildTime.Observe(took.Seconds())
}

// Middleware times requests by chi route pattern and counts bytes served
// under /tiles/.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
		if archive := chi.URLParam(r, "archive"); archive != "" {
			m.TileBytes.WithLabelValues(archive).Add(float64(sw.bytes))
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush keeps server-sent event streams working through the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
