package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nyc-dob-map/internal/style"
)

type VariantBody struct {
	style.Variant
	Layers    int    `json:"layers" doc:"Number of complaint layers"`
	StyleURL  string `json:"styleUrl" doc:"Style document of the variant"`
	ViewerURL string `json:"viewerUrl" doc:"Map page of the variant"`
}

type VariantInput struct {
	Name string `path:"name" doc:"Variant name" example:"current"`
}

type LayerInput struct {
	VariantInput
	ID string `path:"id" doc:"Layer id" example:"nyc-41"`
}

// StyleInput resolves the external origin of the request so archive URLs
// in the document are absolute.
type StyleInput struct {
	VariantInput
	Overlays bool   `query:"overlays" default:"true" doc:"Include the complaint layers"`
	Proto    string `header:"X-Forwarded-Proto" doc:"Scheme seen by the client"`

	base string
}

func (i *StyleInput) Resolve(ctx huma.Context) []error {
	scheme := "http"
	if ctx.TLS() != nil {
		scheme = "https"
	}
	if i.Proto != "" {
		scheme = i.Proto
	}
	i.base = scheme + "://" + ctx.Host()
	return nil
}

// RegisterVariants registers variant, layer and style routes.
func (h *APIHandler) RegisterVariants(api huma.API) {
	huma.Get(api, "/api/v1/variants", h.ListVariants, huma.OperationTags("variants"))
	huma.Get(api, "/api/v1/variants/{name}", h.GetVariant, huma.OperationTags("variants"))
	huma.Get(api, "/api/v1/variants/{name}/layers", h.ListLayers, huma.OperationTags("variants"))
	huma.Get(api, "/api/v1/variants/{name}/layers/{id}", h.GetLayer, huma.OperationTags("variants"))
	huma.Get(api, "/api/v1/variants/{name}/legend", h.GetLegend, huma.OperationTags("variants"))
	huma.Get(api, "/api/v1/variants/{name}/style.json", h.GetStyle, huma.OperationTags("variants"))
}

func (h *APIHandler) variantBody(v style.Variant) (VariantBody, error) {
	layers, err := h.svc.Maps.Layers(v.Name)
	if err != nil {
		return VariantBody{}, err
	}
	return VariantBody{
		Variant:   v,
		Layers:    len(layers),
		StyleURL:  fmt.Sprintf("/api/v1/variants/%s/style.json", v.Name),
		ViewerURL: "/viewer/" + v.Name,
	}, nil
}

func (h *APIHandler) ListVariants(ctx context.Context, input *struct{}) (*struct{ Body []VariantBody }, error) {
	out := []VariantBody{}
	for _, v := range h.svc.Maps.Variants() {
		body, err := h.variantBody(v)
		if err != nil {
			return nil, HTTPError(err)
		}
		out = append(out, body)
	}
	return &struct{ Body []VariantBody }{Body: out}, nil
}

func (h *APIHandler) GetVariant(ctx context.Context, input *VariantInput) (*struct{ Body VariantBody }, error) {
	v, err := h.svc.Maps.Variant(input.Name)
	if err != nil {
		return nil, HTTPError(err)
	}
	body, err := h.variantBody(v)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body VariantBody }{Body: body}, nil
}

func (h *APIHandler) ListLayers(ctx context.Context, input *VariantInput) (*struct{ Body []style.LayerSpec }, error) {
	layers, err := h.svc.Maps.Layers(input.Name)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body []style.LayerSpec }{Body: layers}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *LayerInput) (*struct{ Body style.LayerSpec }, error) {
	layer, err := h.svc.Maps.Layer(input.Name, input.ID)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body style.LayerSpec }{Body: layer}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *VariantInput) (*struct{ Body []style.LegendItem }, error) {
	legend, err := h.svc.Maps.Legend(input.Name)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body []style.LegendItem }{Body: legend}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *StyleInput) (*struct{ Body style.Document }, error) {
	doc, err := h.svc.Maps.Style(input.Name, input.base, input.Overlays)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body style.Document }{Body: doc}, nil
}
