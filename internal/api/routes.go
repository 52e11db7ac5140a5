// Package api defines the Huma REST routes: variants and their styles,
// category catalogs, feature detail, tile archives and complaint exports.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nyc-dob-map/internal/service"
)

// Version is the API version reported by /health and the OpenAPI document.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Maps   *service.MapService
	Views  *service.ViewService
	Tile   *service.TileService
	Source *service.SourceService
	Tiler  *service.TilerService
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// APIHandler holds the REST handlers. Methods named Register* are
// discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers the health check.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}
