package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/vkozyrev/backupd/internal/common"
)

// ErrResponse is the uniform error body rendered by all handlers.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	Error          string `json:"error"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errInvalidRequest(msg string) render.Renderer {
	return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Error: msg}
}

// errRender maps service sentinels onto HTTP statuses. Anything unmatched
// is a 500 with a generic body so internals never leak.
func errRender(err error) render.Renderer {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return &ErrResponse{HTTPStatusCode: http.StatusNotFound, Error: "not found"}
	case errors.Is(err, common.ErrConflict):
		return &ErrResponse{HTTPStatusCode: http.StatusConflict, Error: "already exists"}
	case errors.Is(err, common.ErrAlreadyActive):
		return &ErrResponse{HTTPStatusCode: http.StatusConflict, Error: "license already activated"}
	case errors.Is(err, common.ErrEmptyPayload):
		return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Error: "empty payload"}
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return &ErrResponse{HTTPStatusCode: http.StatusUnauthorized, Error: "unauthorized"}
	case errors.Is(err, common.ErrKeyUnavailable):
		return &ErrResponse{HTTPStatusCode: http.StatusServiceUnavailable, Error: "signing key unavailable"}
	default:
		return &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, Error: "internal error"}
	}
}
