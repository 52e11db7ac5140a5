package api

import (
	"bytes"
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/nyc-dob-map/internal/detail"
)

type DetailInput struct {
	RawBody []byte `contentType:"application/json" doc:"Properties of a building feature"`
}

// RegisterDetail registers the feature formatting route.
func (h *APIHandler) RegisterDetail(api huma.API) {
	huma.Post(api, "/api/v1/detail", h.PostDetail,
		huma.OperationTags("detail"),
		func(op *huma.Operation) {
			op.Summary = "Format a building feature"
			op.Description = "Formats the properties of a clicked building the way the map's detail panel shows them."
		},
	)
}

func (h *APIHandler) PostDetail(ctx context.Context, input *DetailInput) (*struct{ Body detail.Panel }, error) {
	raw := bytes.TrimSpace(input.RawBody)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, huma.Error422UnprocessableEntity("no feature given")
	}
	feat, err := detail.ParseFeatureJSON(raw)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("feature properties must be a JSON object: " + err.Error())
	}
	return &struct{ Body detail.Panel }{Body: h.svc.Maps.Formatter().Format(feat)}, nil
}
