package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

type CategoryBody struct {
	catalog.Category
	PriorityLabel string `json:"priorityLabel" doc:"Priority as shown in the detail panel"`
	LayerID       string `json:"layerId" doc:"Id of the category's map layer" example:"nyc-41"`
}

type CategoriesInput struct {
	Vintage string `path:"vintage" enum:"legacy,2021" doc:"Code vintage"`
	Offset  int    `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit   int    `query:"limit" minimum:"1" maximum:"200" default:"20" doc:"Page size"`
}

type CategoryInput struct {
	Vintage string `path:"vintage" enum:"legacy,2021" doc:"Code vintage"`
	Code    string `path:"code" doc:"Category code" example:"41"`
}

// RegisterCategories registers the category catalog routes.
func (h *APIHandler) RegisterCategories(api huma.API) {
	huma.Get(api, "/api/v1/categories/{vintage}", h.ListCategories, huma.OperationTags("categories"))
	huma.Get(api, "/api/v1/categories/{vintage}/{code}", h.GetCategory, huma.OperationTags("categories"))
}

func (h *APIHandler) catalog(vintage string) (*catalog.Catalog, error) {
	v, ok := catalog.ParseVintage(vintage)
	if !ok {
		return nil, huma.Error404NotFound("unknown vintage " + vintage)
	}
	cat, ok := h.svc.Maps.Catalogs().Catalog(v)
	if !ok {
		return nil, huma.Error404NotFound("no catalog for vintage " + vintage)
	}
	return cat, nil
}

func (h *APIHandler) categoryBody(c catalog.Category) CategoryBody {
	return CategoryBody{
		Category:      c,
		PriorityLabel: h.svc.Maps.Catalogs().PriorityLabel(c.Code),
		LayerID:       style.LayerID(c.Code),
	}
}

func (h *APIHandler) ListCategories(ctx context.Context, input *CategoriesInput) (*struct {
	Body humastar.PageBody[CategoryBody]
}, error) {
	cat, err := h.catalog(input.Vintage)
	if err != nil {
		return nil, err
	}
	all := cat.Categories()
	items := make([]CategoryBody, len(all))
	for i, c := range all {
		items[i] = h.categoryBody(c)
	}
	return &struct {
		Body humastar.PageBody[CategoryBody]
	}{Body: humastar.Paginate(items, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetCategory(ctx context.Context, input *CategoryInput) (*struct{ Body CategoryBody }, error) {
	cat, err := h.catalog(input.Vintage)
	if err != nil {
		return nil, err
	}
	c, ok := cat.Lookup(input.Code)
	if !ok {
		return nil, huma.Error404NotFound("unknown category " + input.Code)
	}
	return &struct{ Body CategoryBody }{Body: h.categoryBody(c)}, nil
}
