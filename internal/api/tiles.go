package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/service"
)

type TileNameInput struct {
	Name string `path:"name" doc:"PMTiles file name" example:"nyc-rollup.pmtiles"`
}

type GenerateInput struct {
	Body service.GenerateOptions
}

// RegisterTiles registers archive listing, inspection and build routes.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/tiles", h.ListTiles, huma.OperationTags("tiles"))
	huma.Get(api, "/api/v1/tiles/{name}", h.GetTile, huma.OperationTags("tiles"))
	huma.Post(api, "/api/v1/tiles/generate", h.GenerateTiles, huma.OperationTags("tiles"))
	huma.Post(api, "/api/v1/tiles/generate/stream", h.GenerateTilesStream, huma.OperationTags("viewer"))
}

func (h *APIHandler) ListTiles(ctx context.Context, input *struct{}) (*struct{ Body []service.TileFile }, error) {
	tiles, err := h.svc.Tile.List()
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body []service.TileFile }{Body: tiles}, nil
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileNameInput) (*struct{ Body service.TileInfo }, error) {
	info, err := h.svc.Tile.Inspect(input.Name)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body service.TileInfo }{Body: info}, nil
}

func (h *APIHandler) GenerateTiles(ctx context.Context, input *GenerateInput) (*struct{ Body service.GenerateResult }, error) {
	if h.svc.Tiler == nil {
		return nil, huma.Error503ServiceUnavailable("tile generation not available")
	}
	res, err := h.svc.Tiler.Generate(ctx, input.Body, nil)
	if err != nil {
		return nil, generateError(err)
	}
	return &struct{ Body service.GenerateResult }{Body: res}, nil
}

// GenerateTilesStream builds an archive and reports progress through the
// tileProgress and tileStatus signals.
func (h *APIHandler) GenerateTilesStream(ctx context.Context, input *GenerateInput) (*huma.StreamResponse, error) {
	if h.svc.Tiler == nil {
		return nil, huma.Error503ServiceUnavailable("tile generation not available")
	}
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			progress := func(pct int, status string) {
				sse.Signals(map[string]any{"tileProgress": pct, "tileStatus": status})
			}
			res, err := h.svc.Tiler.Generate(humaCtx.Context(), input.Body, progress)
			if err != nil {
				sse.Error(generateError(err).Error())
				return
			}
			sse.Success(fmt.Sprintf("Tiles generated: %s (%d buildings)", res.Output, res.Stats.Buildings))
		},
	}, nil
}

// generateError keeps lookup failures as mapped by HTTPError; anything
// else is a build failure reported with its message.
func generateError(err error) error {
	switch {
	case errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrDBUnavailable):
		return HTTPError(err)
	}
	zap.L().Warn("tile generation failed", zap.Error(err))
	return huma.Error422UnprocessableEntity(err.Error())
}
