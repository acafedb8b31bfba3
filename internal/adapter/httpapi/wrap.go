// Package httpapi exposes the HTTP surface of the service: route table,
// request handlers and their DTOs. Handlers raise typed errors; the
// boundary translator middleware renders them.
package httpapi

import "github.com/gin-gonic/gin"

// Handler is a request handler that raises instead of writing error
// responses itself.
type Handler func(c *gin.Context) error

// Wrap adapts a Handler to gin, attaching any raised error to the context
// so the translator picks it up.
func Wrap(h Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}
