package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()
	srv, err := New(Config{
		Host:    "127.0.0.1",
		Port:    8086,
		DataDir: dataDir,
		App: &config.Config{
			Map: config.MapConfig{
				DefaultVariant: "current",
				BasemapArchive: "new-york.pmtiles",
				Center:         []float64{-73.935242, 40.73061},
				Zoom:           10,
			},
			Variants: style.DefaultVariants(),
			Tiler:    config.TilerConfig{Engine: "go", Layer: style.DefaultSourceLayer, MinZoom: 10, MaxZoom: 12},
			Tour:     config.TourConfig{Key: "t", Steps: config.DefaultTour()},
		},
	})
	require.NoError(t, err)
	return srv, dataDir
}

func get(srv http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(srv, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/viewer/current", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/api/v1/variants/legacy/style.json").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/static/viewer.js").Code)

	rec = get(srv, "/viewer/legacy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.dobMap.init(")
	assert.Equal(t, 1, srv.Services().Views.Len())
	assert.Equal(t, http.StatusNotFound, get(srv, "/viewer/nope").Code)

	rec = get(srv, "/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/views/{id}/ready")
	assert.Contains(t, srv.OpenAPI().Paths, "/api/v1/categories/{vintage}")
}

func TestServeArchive(t *testing.T) {
	srv, dataDir := newTestServer(t)
	tiles := filepath.Join(dataDir, "tiles")
	require.NoError(t, os.MkdirAll(tiles, 0o755))
	data := bytes.Repeat([]byte("0123456789"), 20)
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "nyc-rollup.pmtiles"), data, 0o644))

	rec := get(srv, "/tiles/nyc-rollup.pmtiles", "Range", "bytes=10-19", "Origin", "https://maps.example.org")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "bytes 10-19/200", rec.Header().Get("Content-Range"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/tiles/nyc-rollup.pmtiles", nil)
	req.Header.Set("Origin", "https://maps.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Range")
	pre := httptest.NewRecorder()
	srv.ServeHTTP(pre, req)
	assert.Less(t, pre.Code, 300)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNotFound, get(srv, "/tiles/missing.pmtiles").Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/tiles/notes.txt").Code)

	rec = get(srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dobmap_tile_bytes_total{archive="nyc-rollup.pmtiles"} 10`)
}
