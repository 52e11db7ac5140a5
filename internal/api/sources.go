package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nyc-dob-map/internal/db"
	"github.com/joeblew999/nyc-dob-map/internal/service"
)

type SourceNameInput struct {
	Name string `path:"name" doc:"Export file name" example:"dob_complaints.csv"`
}

type SummaryBody struct {
	Name       string             `json:"name" doc:"Export file name"`
	Complaints int64              `json:"complaints" doc:"Records in the export"`
	Categories []db.CategoryCount `json:"categories" doc:"Records per category, most frequent first"`
}

// RegisterSources registers complaint export routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.ListSources, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/sources/{name}/summary", h.GetSourceSummary, huma.OperationTags("sources"))
}

func (h *APIHandler) ListSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// GetSourceSummary counts an export's complaints per category through DuckDB.
func (h *APIHandler) GetSourceSummary(ctx context.Context, input *SourceNameInput) (*struct{ Body SummaryBody }, error) {
	counts, err := h.svc.Source.Summary(ctx, input.Name)
	if err != nil {
		return nil, HTTPError(err)
	}
	body := SummaryBody{Name: input.Name, Categories: counts}
	for _, c := range counts {
		body.Complaints += c.Count
	}
	return &struct{ Body SummaryBody }{Body: body}, nil
}
