package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/stores"
)

// StatusClientClosedRequest is reported when the caller went away mid-request.
const StatusClientClosedRequest = 499

// ErrRunNotFound indicates no run was recorded under the id
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrBadRequest indicates a malformed request body or parameter
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *pipeline.ValidationError
		badRequest *ErrBadRequest
		discovery  *stores.DiscoveryError
		notFound   *ErrRunNotFound
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &discovery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
