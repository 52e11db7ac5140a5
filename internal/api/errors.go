package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/service"
)

// HTTPError maps service errors to Huma status errors. Unexpected errors
// are logged and reported as 500 without detail.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrLayerNotFound),
		errors.Is(err, service.ErrViewNotFound),
		errors.Is(err, service.ErrFileNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrInvalidName):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrNotReady), errors.Is(err, service.ErrAlreadyReady):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrDBUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	zap.L().Error("request failed", zap.Error(err))
	return huma.Error500InternalServerError("internal error")
}
