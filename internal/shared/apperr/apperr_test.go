package apperr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapi-template/internal/shared/apperr"
)

func TestKindBindings(t *testing.T) {
	tests := []struct {
		name        string
		err         *apperr.Error
		kind        apperr.Kind
		status      int
		operational bool
	}{
		{"bad request", apperr.BadRequest("m"), apperr.KindBadRequest, http.StatusBadRequest, true},
		{"unauthorized", apperr.Unauthorized("m"), apperr.KindUnauthorized, http.StatusUnauthorized, true},
		{"invalid session", apperr.InvalidSession("m"), apperr.KindInvalidSession, http.StatusUnauthorized, true},
		{"refresh required", apperr.SessionRefreshRequired("m"), apperr.KindSessionRefreshRequired, http.StatusUnauthorized, true},
		{"forbidden", apperr.Forbidden("m"), apperr.KindForbidden, http.StatusForbidden, true},
		{"not found", apperr.NotFound("m"), apperr.KindNotFound, http.StatusNotFound, true},
		{"user not found", apperr.UserNotFound("m"), apperr.KindUserNotFound, http.StatusNotFound, true},
		{"conflict", apperr.Conflict("m"), apperr.KindConflict, http.StatusConflict, true},
		{"user exists", apperr.UserAlreadyExists("m"), apperr.KindUserAlreadyExists, http.StatusConflict, true},
		{"validation", apperr.ValidationFailed("m"), apperr.KindValidationFailed, http.StatusUnprocessableEntity, true},
		{"internal", apperr.Internal("m", nil), apperr.KindInternal, http.StatusInternalServerError, false},
		{"database", apperr.Database("m", nil), apperr.KindDatabase, http.StatusInternalServerError, false},
		{"unavailable", apperr.Unavailable("m"), apperr.KindUnavailable, http.StatusServiceUnavailable, false},
		{"external service", apperr.ExternalService("auth", "m", nil), apperr.KindExternalService, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.operational, tt.err.Operational())
			assert.Equal(t, "m", tt.err.Message())
		})
	}
}

func TestPayload(t *testing.T) {
	err := apperr.UserNotFound("User not found").With("userId", "u1")

	t.Run("dev includes context", func(t *testing.T) {
		p := err.Payload(false)
		assert.Equal(t, apperr.KindUserNotFound, p.Code)
		assert.Equal(t, "User not found", p.Message)
		assert.Equal(t, map[string]any{"userId": "u1"}, p.Context)
	})

	t.Run("production strips context", func(t *testing.T) {
		p := err.Payload(true)
		assert.Equal(t, apperr.KindUserNotFound, p.Code)
		assert.Nil(t, p.Context)

		raw, jerr := json.Marshal(p)
		require.NoError(t, jerr)
		assert.NotContains(t, string(raw), "context")
	})

	t.Run("cause never serialized", func(t *testing.T) {
		withCause := apperr.Internal("boom", errors.New("pq: connection refused"))
		raw, jerr := json.Marshal(withCause.Payload(false))
		require.NoError(t, jerr)
		assert.NotContains(t, string(raw), "connection refused")
	})
}

func TestFrom(t *testing.T) {
	t.Run("passes through typed errors", func(t *testing.T) {
		orig := apperr.Forbidden("no")
		wrapped := fmt.Errorf("handler: %w", orig)
		assert.Same(t, orig, apperr.From(wrapped))
	})

	t.Run("defaults unknown errors to internal", func(t *testing.T) {
		err := apperr.From(errors.New("nil pointer dereference"))
		assert.Equal(t, apperr.KindInternal, err.Kind())
		assert.False(t, err.Operational())
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := apperr.Database("query failed", cause)
	assert.True(t, errors.Is(err, cause))

	var ae *apperr.Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &ae))
	assert.Equal(t, apperr.KindDatabase, ae.Kind())
}

func TestHelpers(t *testing.T) {
	assert.True(t, apperr.IsKind(apperr.NotFound("m"), apperr.KindNotFound))
	assert.False(t, apperr.IsKind(errors.New("plain"), apperr.KindNotFound))
	assert.True(t, apperr.IsOperational(apperr.BadRequest("m")))
	assert.False(t, apperr.IsOperational(errors.New("plain")))
	assert.Nil(t, apperr.As(errors.New("plain")))
}

func TestRequiredField(t *testing.T) {
	err := apperr.RequiredField("email")
	assert.Equal(t, apperr.KindValidationFailed, err.Kind())
	assert.Equal(t, map[string]any{"field": "email"}, err.Context())
}

func TestExternalServiceContext(t *testing.T) {
	err := apperr.ExternalService("auth", "provider unreachable", errors.New("dial tcp"))
	assert.Equal(t, "auth", err.Context()["service"])
	assert.False(t, err.Operational())
}
