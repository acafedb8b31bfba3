package middleware

import (
	"github.com/gin-gonic/gin"

	"webapi-template/internal/auth"
)

// RequireSession resolves the session and aborts with the typed error when
// the request is not authenticated. Downstream handlers can read the
// identity from the context bag.
func RequireSession(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := resolver.Resolve(c.Request.Context(), Carrier(c), c, true); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalSession attempts session resolution but lets the request through
// regardless of the outcome. Handlers see an identity only when one was
// resolved.
func OptionalSession(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _ = resolver.Resolve(c.Request.Context(), Carrier(c), c, false)
		c.Next()
	}
}
