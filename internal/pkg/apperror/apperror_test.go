package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad quantity"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("login required"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admins only"), http.StatusForbidden},
		{"not found", NotFound("order not found"), http.StatusNotFound},
		{"conflict", Conflict("dates no longer available"), http.StatusConflict},
		{"upstream", Upstream("load cart", errors.New("connection refused")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create booking: %w", Conflict("taken")), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "order not found", PublicMessage(NotFound("order not found")))
	assert.Equal(t, "Internal server error", PublicMessage(Upstream("insert order", errors.New("pq: secret detail"))))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("raw")))
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Upstream("verify payment", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindUpstream))
	assert.False(t, Is(nil, KindUpstream))
	assert.Contains(t, err.Error(), "verify payment")
}
