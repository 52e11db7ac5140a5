package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	dbOK    bool
	svc     *Services
}

func NewInfoHandler(dataDir string, dbOK bool, svc *Services) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string          `json:"name" doc:"Service name"`
	Version  string          `json:"version" doc:"Service version"`
	DataDir  string          `json:"data_dir" doc:"Data directory path"`
	DB       bool            `json:"db" doc:"Whether DuckDB is available for reading exports"`
	Variants []string        `json:"variants" doc:"Configured map variants"`
	Engines  map[string]bool `json:"engines" doc:"Tiling engines and whether each can run"`
	Views    int             `json:"views" doc:"Open viewer pages"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "nyc-dob-map",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Variants: []string{},
		Engines:  map[string]bool{},
	}
	if h.svc != nil {
		if h.svc.Maps != nil {
			for _, v := range h.svc.Maps.Variants() {
				body.Variants = append(body.Variants, v.Name)
			}
		}
		if h.svc.Tiler != nil {
			body.Engines = h.svc.Tiler.Engines()
		}
		if h.svc.Views != nil {
			body.Views = h.svc.Views.Len()
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}

