package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapi-template/internal/middleware"
	"webapi-template/internal/shared/apperr"
)

type capturedRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// capturingHandler records every emitted log record for assertions.
type capturingHandler struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (h *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := capturedRecord{level: r.Level, msg: r.Message, attrs: map[string]any{}}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingHandler) WithGroup(string) slog.Handler      { return h }

func (h *capturingHandler) last(t *testing.T) capturedRecord {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.records)
	return h.records[len(h.records)-1]
}

func newTestRouter(production bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Errors(slog.New(slog.NewTextHandler(io.Discard, nil)), production))
	return r
}

func perform(t *testing.T, r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestErrorsRendersTypedError(t *testing.T) {
	r := newTestRouter(true)
	r.GET("/private", func(c *gin.Context) {
		_ = c.Error(apperr.InvalidSession("Not authenticated. Please log in."))
		c.Abort()
	})

	rec := perform(t, r, http.MethodGet, "/private")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INVALID_SESSION","message":"Not authenticated. Please log in."}}`,
		rec.Body.String())
}

func TestErrorsContextRedaction(t *testing.T) {
	handler := func(c *gin.Context) {
		_ = c.Error(apperr.UserNotFound("User not found").With("userId", "u-1"))
		c.Abort()
	}

	t.Run("development exposes context", func(t *testing.T) {
		r := newTestRouter(false)
		r.GET("/users/u-1", handler)

		rec := perform(t, r, http.MethodGet, "/users/u-1")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t,
			`{"error":{"code":"USER_NOT_FOUND","message":"User not found","context":{"userId":"u-1"}}}`,
			rec.Body.String())
	})

	t.Run("production omits context", func(t *testing.T) {
		r := newTestRouter(true)
		r.GET("/users/u-1", handler)

		rec := perform(t, r, http.MethodGet, "/users/u-1")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t,
			`{"error":{"code":"USER_NOT_FOUND","message":"User not found"}}`,
			rec.Body.String())
	})
}

func TestErrorsRecoversPanic(t *testing.T) {
	t.Run("production hides the panic message", func(t *testing.T) {
		r := newTestRouter(true)
		r.GET("/boom", func(c *gin.Context) {
			panic(errors.New("nil pointer somewhere deep"))
		})

		rec := perform(t, r, http.MethodGet, "/boom")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t,
			`{"error":{"code":"INTERNAL_SERVER_ERROR","message":"Internal server error"}}`,
			rec.Body.String())
	})

	t.Run("development surfaces the message", func(t *testing.T) {
		r := newTestRouter(false)
		r.GET("/boom", func(c *gin.Context) {
			panic(errors.New("nil pointer somewhere deep"))
		})

		rec := perform(t, r, http.MethodGet, "/boom")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "nil pointer somewhere deep")
	})

	t.Run("non-error panic values", func(t *testing.T) {
		r := newTestRouter(true)
		r.GET("/boom", func(c *gin.Context) {
			panic("just a string")
		})

		rec := perform(t, r, http.MethodGet, "/boom")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	})
}

func TestErrorsLogSeverity(t *testing.T) {
	newCapturingRouter := func(production bool) (*gin.Engine, *capturingHandler) {
		gin.SetMode(gin.TestMode)
		h := &capturingHandler{}
		r := gin.New()
		r.Use(middleware.Errors(slog.New(h), production))
		return r, h
	}

	t.Run("operational errors log at warn", func(t *testing.T) {
		r, h := newCapturingRouter(true)
		r.GET("/users/u-1", func(c *gin.Context) {
			_ = c.Error(apperr.UserNotFound("User not found").With("userId", "u-1"))
			c.Abort()
		})

		perform(t, r, http.MethodGet, "/users/u-1")

		rec := h.last(t)
		assert.Equal(t, slog.LevelWarn, rec.level)
		assert.Equal(t, "USER_NOT_FOUND", rec.attrs["code"])
		assert.Equal(t, "User not found", rec.attrs["message"])
		assert.Equal(t, int64(http.StatusNotFound), rec.attrs["status"])
		assert.Equal(t, http.MethodGet, rec.attrs["method"])
		assert.Equal(t, "/users/u-1", rec.attrs["url"])
		assert.NotContains(t, rec.attrs, "stack", "no stack in production")
	})

	t.Run("non-operational errors log at error", func(t *testing.T) {
		r, h := newCapturingRouter(true)
		r.GET("/broken", func(c *gin.Context) {
			_ = c.Error(apperr.Database("User lookup failed", errors.New("conn refused")))
			c.Abort()
		})

		perform(t, r, http.MethodGet, "/broken")

		rec := h.last(t)
		assert.Equal(t, slog.LevelError, rec.level)
		assert.Equal(t, "DATABASE_ERROR", rec.attrs["code"])
		assert.Equal(t, int64(http.StatusInternalServerError), rec.attrs["status"])
		assert.NotContains(t, rec.attrs, "stack")
	})

	t.Run("development includes the stack", func(t *testing.T) {
		r, h := newCapturingRouter(false)
		r.GET("/broken", func(c *gin.Context) {
			_ = c.Error(apperr.Database("User lookup failed", errors.New("conn refused")))
			c.Abort()
		})

		perform(t, r, http.MethodGet, "/broken")

		rec := h.last(t)
		assert.Equal(t, slog.LevelError, rec.level)
		assert.Contains(t, rec.attrs, "stack")
		assert.NotEmpty(t, rec.attrs["stack"])
	})

	t.Run("unknown errors always log at error with stack", func(t *testing.T) {
		r, h := newCapturingRouter(true)
		r.GET("/err", func(c *gin.Context) {
			_ = c.Error(errors.New("driver: connection reset"))
			c.Abort()
		})

		perform(t, r, http.MethodGet, "/err")

		rec := h.last(t)
		assert.Equal(t, slog.LevelError, rec.level)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", rec.attrs["code"])
		assert.Contains(t, rec.attrs, "stack")
	})
}

func TestErrorsUnknownErrorBecomesInternal(t *testing.T) {
	r := newTestRouter(true)
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errors.New("driver: connection reset"))
		c.Abort()
	})

	rec := perform(t, r, http.MethodGet, "/err")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INTERNAL_SERVER_ERROR","message":"Internal server error"}}`,
		rec.Body.String())
}

func TestErrorsSkipsWrittenResponse(t *testing.T) {
	r := newTestRouter(true)
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "already sent")
		_ = c.Error(errors.New("too late"))
	})

	rec := perform(t, r, http.MethodGet, "/partial")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already sent", rec.Body.String())
}

func TestErrorsSuccessPassThrough(t *testing.T) {
	r := newTestRouter(true)
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rec := perform(t, r, http.MethodGet, "/ok")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
