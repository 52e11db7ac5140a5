package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/api"
	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/detail"
	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/service"
	"github.com/joeblew999/nyc-dob-map/internal/style"
	"github.com/joeblew999/nyc-dob-map/internal/templates"
)

// Handler serves the viewer page and its view endpoints.
type Handler struct {
	humastar.Handler
	maps  *service.MapService
	views *service.ViewService
	bus   *service.EventBus
	tour  config.TourConfig
}

// New creates a viewer handler. bus may be nil, in which case event
// streams only keep views alive.
func New(maps *service.MapService, views *service.ViewService, bus *service.EventBus, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		maps:    maps,
		views:   views,
		bus:     bus,
		tour:    maps.Config().Tour,
	}
}

type ViewInput struct {
	ID string `path:"id" doc:"View id" format:"uuid"`
}

type ToggleInput struct {
	ViewInput
	Layer string `path:"layer" doc:"Layer id" example:"nyc-41"`
}

type SelectInput struct {
	ViewInput
	humastar.SignalsInput
}

// ViewBody describes an open view.
type ViewBody struct {
	ID        string        `json:"id" doc:"View id"`
	Variant   string        `json:"variant" doc:"Map variant"`
	Ready     bool          `json:"ready" doc:"Whether the map has loaded its layers"`
	Visible   []string      `json:"visible" doc:"Layers currently drawn"`
	Selected  *detail.Panel `json:"selected,omitempty" doc:"Current selection"`
	CreatedAt time.Time     `json:"createdAt" doc:"When the page was opened"`
}

var (
	readyAction = humastar.ActionDef{Rel: "ready", Pattern: "/api/v1/views/%s/ready", Method: "POST", Title: "Add layers"}
	viewActions = []humastar.ActionDef{
		{Rel: "select", Pattern: "/api/v1/views/%s/select", Method: "POST", Title: "Select a building"},
		{Rel: "tour", Pattern: "/api/v1/views/%s/tour", Method: "POST", Title: "Play the camera tour"},
		{Rel: "events", Pattern: "/api/v1/views/%s/events", Method: "GET", Title: "Event stream"},
		{Rel: "delete", Pattern: "/api/v1/views/%s", Method: "DELETE", Title: "Close the view"},
	}
)

// Actions lists what a client can do with the view next.
func (b ViewBody) Actions() []humastar.Action {
	defs := viewActions
	if !b.Ready {
		defs = append([]humastar.ActionDef{readyAction}, defs...)
	}
	return humastar.ActionsFor(b.ID, defs)
}

func viewBody(v *service.View) ViewBody {
	visible := v.Entries().Visible()
	if visible == nil {
		visible = []string{}
	}
	return ViewBody{
		ID:        v.ID,
		Variant:   v.Variant,
		Ready:     v.IsReady(),
		Visible:   visible,
		Selected:  v.Selected(),
		CreatedAt: v.CreatedAt,
	}
}

// RegisterRoutes registers the view resource and the page's SSE endpoints.
func (h *Handler) RegisterRoutes(a huma.API) {
	huma.Get(a, "/api/v1/views", h.ListViews, huma.OperationTags("views"))
	huma.Get(a, "/api/v1/views/{id}", h.GetView, huma.OperationTags("views"))
	huma.Delete(a, "/api/v1/views/{id}", h.DeleteView, huma.OperationTags("views"))

	huma.Post(a, "/api/v1/views/{id}/ready", h.Ready, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/views/{id}/layers/{layer}/toggle", h.Toggle, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/views/{id}/select", h.Select, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/views/{id}/tour", h.Tour, huma.OperationTags("viewer"))
	huma.Get(a, "/api/v1/views/{id}/events", h.Events, huma.OperationTags("viewer"))
}

func (h *Handler) ListViews(ctx context.Context, input *struct{}) (*struct{ Body []ViewBody }, error) {
	out := []ViewBody{}
	for _, id := range h.views.IDs() {
		if v, err := h.views.Get(id); err == nil {
			out = append(out, viewBody(v))
		}
	}
	return &struct{ Body []ViewBody }{Body: out}, nil
}

func (h *Handler) GetView(ctx context.Context, input *ViewInput) (*struct{ Body ViewBody }, error) {
	v, err := h.views.Get(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}
	return &struct{ Body ViewBody }{Body: viewBody(v)}, nil
}

func (h *Handler) DeleteView(ctx context.Context, input *ViewInput) (*struct{}, error) {
	if err := h.views.Close(input.ID); err != nil {
		return nil, api.HTTPError(err)
	}
	return &struct{}{}, nil
}

func (h *Handler) renderPanel(v *service.View) string {
	html, err := h.Renderer.Render("layer-panel", panelData(v))
	if err != nil {
		zap.L().Error("render layer panel", zap.String("view", v.ID), zap.Error(err))
	}
	return html
}

// Ready adds the variant's layers to the loaded map and applies their
// initial visibility.
func (h *Handler) Ready(ctx context.Context, input *ViewInput) (*huma.StreamResponse, error) {
	view, err := h.views.Get(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}
	if view.IsReady() {
		return nil, api.HTTPError(service.ErrAlreadyReady)
	}

	return h.Stream(func(sse humastar.SSE) {
		r := newScriptRenderer()
		err := view.Ready(r)
		if errors.Is(err, service.ErrAlreadyReady) {
			sse.Error(err.Error())
			return
		}
		if runErr := sse.Run(r.script); runErr != nil {
			zap.L().Debug("send layers", zap.String("view", view.ID), zap.Error(runErr))
			return
		}
		if err != nil {
			zap.L().Warn("view ready", zap.String("view", view.ID), zap.Error(err))
			sse.Error(err.Error())
		}
		sse.Patch(h.renderPanel(view), "#layer-panel")
	}), nil
}

// Toggle flips one layer and sends the visibility writes that changed.
func (h *Handler) Toggle(ctx context.Context, input *ToggleInput) (*huma.StreamResponse, error) {
	view, err := h.views.Get(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}
	if !view.IsReady() {
		return nil, api.HTTPError(service.ErrNotReady)
	}
	if _, ok := view.Entries().Lookup(input.Layer); !ok {
		return nil, api.HTTPError(service.ErrLayerNotFound)
	}

	return h.Stream(func(sse humastar.SSE) {
		r := newScriptRenderer()
		_, err := view.Toggle(r, input.Layer)
		if runErr := sse.Run(r.script); runErr != nil {
			zap.L().Debug("send visibility", zap.String("view", view.ID), zap.Error(runErr))
			return
		}
		if err != nil {
			sse.Error(err.Error())
		}
		sse.Patch(h.renderPanel(view), "#layer-panel")
	}), nil
}

// Select shows the clicked building in the HUD, or clears it when the
// selected signal is null.
func (h *Handler) Select(ctx context.Context, input *SelectInput) (*huma.StreamResponse, error) {
	view, err := h.views.Get(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}
	raw, err := input.Raw("selected")
	if err != nil {
		return nil, err
	}
	panel, err := view.Select(raw)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("selected must be an object of feature properties: " + err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		name, data := "hud-empty", any(nil)
		if panel != nil {
			name, data = "hud", panel
		}
		html, err := h.Renderer.Render(name, data)
		if err != nil {
			zap.L().Error("render hud", zap.String("view", view.ID), zap.Error(err))
			sse.Error("could not show the selection")
			return
		}
		sse.Patch(html, "#hud")
	}), nil
}

// Tour plays the configured camera sequence.
func (h *Handler) Tour(ctx context.Context, input *ViewInput) (*huma.StreamResponse, error) {
	view, err := h.views.Get(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}

	return h.Stream(func(sse humastar.SSE) {
		if len(h.tour.Steps) == 0 {
			return
		}
		r := newScriptRenderer()
		if err := r.FlyThrough(h.tour.Steps); err != nil {
			zap.L().Error("encode tour", zap.String("view", view.ID), zap.Error(err))
			return
		}
		_ = sse.Run(r.script)
	}), nil
}

// Events keeps the view open while the page is connected. Rebuilt archives
// of the view's variant make the map reload its complaint source. After the
// stream ends the view stays for the idle TTL so a reconnect finds it.
func (h *Handler) Events(ctx context.Context, input *ViewInput) (*huma.StreamResponse, error) {
	view, detach, err := h.views.Attach(input.ID)
	if err != nil {
		return nil, api.HTTPError(err)
	}
	variant, err := h.maps.Variant(view.Variant)
	if err != nil {
		detach()
		return nil, api.HTTPError(err)
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			defer detach()
			sse := humastar.NewSSE(humaCtx)

			var events <-chan service.Event
			if h.bus != nil {
				sub := h.bus.Subscribe(service.OfResource("tiles"))
				defer sub.Close()
				events = sub.C
			}

			done := humaCtx.Context().Done()
			for {
				select {
				case <-done:
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					if ev.ID == variant.Archive {
						r := newScriptRenderer()
						_ = r.ReloadSource(style.DefaultSource)
						if err := sse.Run(r.script); err != nil {
							return
						}
					}
					if err := sse.DispatchCustomEvent("resource-changed", ev); err != nil {
						return
					}
				}
			}
		},
	}, nil
}
