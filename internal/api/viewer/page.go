package viewer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/service"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// MapOptions are the camera settings the page creates the map with.
type MapOptions struct {
	Center  []float64 `json:"center"`
	Zoom    float64   `json:"zoom"`
	MinZoom float64   `json:"minZoom"`
	MaxZoom float64   `json:"maxZoom"`
	Pitch   float64   `json:"pitch"`
}

// PanelRow is one checkbox of the layer panel.
type PanelRow struct {
	ID        string
	Label     string
	Visible   bool
	Aggregate bool
}

// PanelData is the layer panel of a view.
type PanelData struct {
	ViewID string
	Rows   []PanelRow
}

// PageData is everything the viewer page template needs.
type PageData struct {
	ViewID   string
	Variant  string
	Title    string
	StyleURL string
	TourKey  string
	Map      MapOptions
	Panel    PanelData
	Legend   []style.LegendItem
	Variants []style.Variant
}

func panelData(view *service.View) PanelData {
	entries := view.Entries()
	rows := make([]PanelRow, 0, len(view.Layers()))
	for _, l := range view.Layers() {
		e, _ := entries.Lookup(l.ID)
		rows = append(rows, PanelRow{
			ID:        l.ID,
			Label:     l.Metadata.Label,
			Visible:   e.Visible,
			Aggregate: l.IsAggregate(),
		})
	}
	return PanelData{ViewID: view.ID, Rows: rows}
}

func (h *Handler) pageData(view *service.View) (PageData, error) {
	v, err := h.maps.Variant(view.Variant)
	if err != nil {
		return PageData{}, err
	}
	legend, err := h.maps.Legend(v.Name)
	if err != nil {
		return PageData{}, err
	}
	m := h.maps.Config().Map
	return PageData{
		ViewID:   view.ID,
		Variant:  v.Name,
		Title:    v.Title,
		StyleURL: "/api/v1/variants/" + v.Name + "/style.json?overlays=false",
		TourKey:  h.tour.Key,
		Map: MapOptions{
			Center:  m.Center,
			Zoom:    m.Zoom,
			MinZoom: m.MinZoom,
			MaxZoom: m.MaxZoom,
			Pitch:   m.Pitch,
		},
		Panel:    panelData(view),
		Legend:   legend,
		Variants: h.maps.Variants(),
	}, nil
}

// Page opens a view of the variant named in the URL and renders its page.
// The view lives while its event stream is connected. Without one it is
// swept after the idle TTL.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.Open(chi.URLParam(r, "variant"))
	if err != nil {
		if errors.Is(err, service.ErrVariantNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		zap.L().Error("open view", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data, err := h.pageData(view)
	if err == nil {
		var html string
		if html, err = h.Renderer.Render("viewer", data); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write([]byte(html))
			return
		}
	}
	_ = h.views.Close(view.ID)
	zap.L().Error("render viewer page", zap.String("variant", view.Variant), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
