package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", Newf(ErrInternal, http.StatusTeapot, "x"), http.StatusTeapot},
		{"wrapped invalid input", fmt.Errorf("parsing: %w", ErrInvalidInput), http.StatusBadRequest},
		{"run in progress", ErrRunInProgress, http.StatusConflict},
		{"store outage", fmt.Errorf("query: %w", ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"upstream", ErrUpstream, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestInvalidCarriesMessage(t *testing.T) {
	err := fmt.Errorf("options: %w", Invalid("limit must be positive, got %d", -1))
	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "limit must be positive, got -1", msg)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
