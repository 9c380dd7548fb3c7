package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndKindOf(t *testing.T) {
	err := New(NotFound, "account not found")
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Conflict))
}

func TestKindOfDefaultsToInternalForPlainErrors(t *testing.T) {
	err := fmt.Errorf("something broke")
	assert.Equal(t, Internal, KindOf(err))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StoreUnavailable, "list groups", cause)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, StoreUnavailable, appErr.Kind)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Unauthenticated:   http.StatusUnauthorized,
		Forbidden:         http.StatusForbidden,
		NotFound:          http.StatusNotFound,
		Conflict:          http.StatusConflict,
		Validation:        http.StatusBadRequest,
		ArtifactInvalid:   http.StatusBadRequest,
		Deprecated:        http.StatusGone,
		RateLimited:       http.StatusTooManyRequests,
		UpstreamTransient: http.StatusInternalServerError,
		UpstreamPermanent: http.StatusInternalServerError,
		StoreUnavailable:  http.StatusInternalServerError,
		Internal:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), "kind %s", kind)
	}
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := New(Validation, "plan has no stripe price configured")
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "plan has no stripe price configured")
}
