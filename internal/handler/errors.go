package handler

import (
	"errors"
	"net/http"

	"medwatch-server/internal/service"
	"medwatch-server/pkg/response"
)

// writeServiceError maps the service error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrServiceUnavailable):
		response.ServiceUnavailable(w, err.Error())
	default:
		response.InternalError(w, "Internal server error")
	}
}
