package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/stores"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &pipeline.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{"bad request", &ErrBadRequest{Message: "empty"}, http.StatusBadRequest},
		{"run not found", &ErrRunNotFound{RunID: "x"}, http.StatusNotFound},
		{"discovery", &stores.DiscoveryError{StoreID: "yamaichi", URL: "https://yamaichi-foods.jp", Message: "HTTP status 503"}, http.StatusBadGateway},
		{"wrapped discovery", fmt.Errorf("discover: %w", &stores.DiscoveryError{StoreID: "s"}), http.StatusBadGateway},
		{"cancelled", context.Canceled, StatusClientClosedRequest},
		{"deadline", fmt.Errorf("extract: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "run not found: abc", (&ErrRunNotFound{RunID: "abc"}).Error())
	assert.Equal(t, "store_id is required", (&ErrBadRequest{Message: "store_id is required"}).Error())
}
