package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/service"
	"github.com/joeblew999/nyc-dob-map/internal/style"
	"github.com/joeblew999/nyc-dob-map/internal/templates"
	"github.com/joeblew999/nyc-dob-map/web"
)

type fixture struct {
	router http.Handler
	views  *service.ViewService
	bus    *service.EventBus
}

func newFixture(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	set, err := catalog.Embedded()
	require.NoError(t, err)
	base, err := style.LoadBasemap("")
	require.NoError(t, err)
	renderer, err := templates.New(web.FS)
	require.NoError(t, err)

	cfg := &config.Config{
		Map: config.MapConfig{
			DefaultVariant: "current",
			BasemapArchive: "new-york.pmtiles",
			Center:         []float64{-73.935242, 40.73061},
			Zoom:           10,
			MinZoom:        10,
			MaxZoom:        19.9,
			Pitch:          20,
		},
		Variants: style.DefaultVariants(),
		Tour:     config.TourConfig{Key: "t", Steps: config.DefaultTour()},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	maps := service.NewMapService(cfg, set, base)
	views := service.NewViewService(maps, nil)
	bus := service.NewEventBus()

	h := New(maps, views, bus, renderer)
	router := chi.NewMux()
	links := humastar.NewLinks()
	hcfg := huma.DefaultConfig("test", "1.0.0")
	hcfg.Transformers = append(hcfg.Transformers, links.Transformer())
	a := humachi.New(router, hcfg)
	h.RegisterRoutes(a)
	links.Discover(a, "viewer")
	router.Get("/viewer/{variant}", h.Page)

	return &fixture{router: router, views: views, bus: bus}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

var viewIDPattern = regexp.MustCompile(`/api/v1/views/([0-9a-f-]{36})/ready`)

func (f *fixture) open(t *testing.T, variant string) string {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/viewer/"+variant, "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := viewIDPattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2)
	return m[1]
}

func TestPage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/viewer/legacy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Complaints (pre-2021 categories)</title>")
	assert.Contains(t, body, "/api/v1/variants/legacy/style.json?overlays=false")
	assert.Contains(t, body, `value="nyc-41"`)
	assert.Contains(t, body, "ELEVATOR")
	assert.Contains(t, body, "Click a building")
	assert.Equal(t, 1, f.views.Len())

	rec = f.do(t, http.MethodGet, "/viewer/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, f.views.Len())
}

func TestReadyAndToggle(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, "legacy")
	base := "/api/v1/views/" + id

	rec := f.do(t, http.MethodPost, base+"/layers/nyc-41/toggle", "{}")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/ready", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `window.dobMap.addLayer({"id":"nyc-dob"`)
	assert.Contains(t, body, `"highway_name_other");`)
	assert.Contains(t, body, `window.dobMap.setLayoutProperty("nyc-41", "visibility", "none");`)
	assert.Contains(t, body, "#layer-panel")

	rec = f.do(t, http.MethodPost, base+"/ready", "{}")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/layers/nyc-41/toggle", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, `window.dobMap.setLayoutProperty("nyc-41", "visibility", "visible");`)
	assert.NotContains(t, body, `setLayoutProperty("nyc-dob"`)

	rec = f.do(t, http.MethodPost, base+"/layers/nyc-nope/toggle", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view ViewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Ready)
	assert.Equal(t, []string{"nyc-dob", "nyc-41"}, view.Visible)
	assert.Contains(t, rec.Header().Values("Link"), `</api/v1/views/`+id+`>; rel="delete"; method="DELETE"; title="Close the view"`)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, "current")
	path := "/api/v1/views/" + id + "/select"

	rec := f.do(t, http.MethodPost, path, `{"selected": {"bin":"1000123","unit":"4A","complaint_category":"41","address":"123456MAIN ST100001"}, "error": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "123456main st")
	assert.Contains(t, body, "100001")
	assert.Contains(t, body, "ELEVATOR")
	assert.Contains(t, body, "#hud")

	rec = f.do(t, http.MethodPost, path, `{"selected": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Click a building")

	rec = f.do(t, http.MethodPost, path, `{"selected": [1]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/views/00000000-0000-0000-0000-000000000000/select", `{"selected": null}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTour(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, "current")

	rec := f.do(t, http.MethodPost, "/api/v1/views/"+id+"/tour", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.dobMap.tour([")
}

func TestDeleteView(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, "current")

	rec := f.do(t, http.MethodDelete, "/api/v1/views/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.views.Len())

	rec = f.do(t, http.MethodGet, "/api/v1/views/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// connect opens the view's event stream and returns the recorder and a
// func that disconnects it and waits for the handler to return.
func (f *fixture) connect(t *testing.T, id string) (*httptest.ResponseRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/views/"+id+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		f.router.ServeHTTP(rec, req)
		close(done)
	}()
	return rec, func() {
		cancel()
		<-done
	}
}

func TestEventsReloadAndReconnect(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, "current")

	rec, disconnect := f.connect(t, id)
	require.Eventually(t, func() bool { return f.bus.Len() == 1 }, time.Second, 5*time.Millisecond)
	f.bus.Publish(service.Event{Resource: "tiles", Action: "updated", ID: "nyc-rollup.pmtiles"})
	f.bus.Publish(service.Event{Resource: "tiles", Action: "updated", ID: "other.pmtiles"})
	f.bus.Publish(service.Event{Resource: "sources", Action: "updated", ID: "nyc-rollup.pmtiles"})
	time.Sleep(50 * time.Millisecond)
	disconnect()

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `window.dobMap.reloadSource("dobTiles");`))
	assert.Contains(t, body, "resource-changed")
	assert.Contains(t, body, "other.pmtiles")
	assert.NotContains(t, body, `"sources"`)
	assert.Equal(t, 0, f.bus.Len())

	// A dropped stream keeps the view for the grace period.
	assert.Equal(t, 1, f.views.Len())
	assert.Equal(t, 0, f.views.Sweep())
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/views/"+id+"/ready", "{}").Code)

	_, disconnect = f.connect(t, id)
	require.Eventually(t, func() bool { return f.bus.Len() == 1 }, time.Second, 5*time.Millisecond)
	disconnect()
	assert.Equal(t, 1, f.views.Len())
}

func TestAbandonedPagesExpire(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Server.ViewTTL = 20 * time.Millisecond })

	for i := 0; i < 50; i++ {
		f.open(t, "current")
	}
	kept := f.open(t, "legacy")
	_, disconnect := f.connect(t, kept)
	defer disconnect()
	require.Eventually(t, func() bool { return f.bus.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 51, f.views.Len())

	require.Eventually(t, func() bool {
		f.views.Sweep()
		return f.views.Len() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/views/"+kept+"/ready", "{}").Code)
}
