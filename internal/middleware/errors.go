package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"webapi-template/internal/shared/apperr"
)

// fallbackBody is written when response formatting itself fails. The
// translator must never be the thing that crashes a request.
const fallbackBody = `{"error":{"code":"INTERNAL_SERVER_ERROR","message":"Internal server error"}}`

type errorEnvelope struct {
	Error apperr.Payload `json:"error"`
}

// Errors is the boundary error translator. Installed once, it recovers
// panics and renders every error attached by handlers or middleware into
// the JSON error envelope. Handlers only raise; nothing else formats error
// responses.
func Errors(log *slog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				translate(c, log, production, err, debug.Stack())
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			translate(c, log, production, c.Errors.Last().Err, nil)
		}
	}
}

func translate(c *gin.Context, log *slog.Logger, production bool, err error, stack []byte) {
	defer func() {
		if recover() != nil {
			writeFallback(c)
		}
	}()

	if c.Writer.Written() {
		// A handler already produced a response; just log.
		log.Error("error after response written",
			slog.String("method", c.Request.Method),
			slog.String("url", c.Request.URL.String()),
			slog.Any("err", err))
		return
	}

	ae := apperr.As(err)
	if ae == nil {
		if stack == nil {
			stack = debug.Stack()
		}
		message := "Internal server error"
		if !production {
			message = err.Error()
		}
		log.Error("unhandled error",
			slog.String("code", string(apperr.KindInternal)),
			slog.String("method", c.Request.Method),
			slog.String("url", c.Request.URL.String()),
			slog.Int("status", http.StatusInternalServerError),
			slog.Any("err", err),
			slog.String("stack", string(stack)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorEnvelope{
			Error: apperr.Payload{Code: apperr.KindInternal, Message: message},
		})
		return
	}

	attrs := []slog.Attr{
		slog.String("code", string(ae.Kind())),
		slog.String("message", ae.Message()),
		slog.Int("status", ae.HTTPStatus()),
		slog.String("method", c.Request.Method),
		slog.String("url", c.Request.URL.String()),
	}
	if len(ae.Context()) > 0 {
		attrs = append(attrs, slog.Any("context", ae.Context()))
	}
	if cause := ae.Unwrap(); cause != nil {
		attrs = append(attrs, slog.Any("cause", cause))
	}
	if !production {
		if stack == nil {
			stack = debug.Stack()
		}
		attrs = append(attrs, slog.String("stack", string(stack)))
	}

	level := slog.LevelError
	if ae.Operational() {
		level = slog.LevelWarn
	}
	log.LogAttrs(c.Request.Context(), level, "request failed", attrs...)

	c.AbortWithStatusJSON(ae.HTTPStatus(), errorEnvelope{Error: ae.Payload(production)})
}

func writeFallback(c *gin.Context) {
	defer func() { _ = recover() }()
	c.Abort()
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Writer.WriteHeader(http.StatusInternalServerError)
	_, _ = c.Writer.WriteString(fallbackBody)
}
