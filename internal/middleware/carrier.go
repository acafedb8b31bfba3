// Package middleware provides the gin middleware chain: request id,
// logging, metrics, CORS, rate limiting, session resolution and the
// boundary error translator.
package middleware

import (
	"github.com/gin-gonic/gin"

	"webapi-template/internal/auth"
)

// ginCarrier adapts *gin.Context to the framework-agnostic auth.Carrier.
type ginCarrier struct {
	c *gin.Context
}

// Carrier wraps the gin context for the session resolver.
func Carrier(c *gin.Context) auth.Carrier { return ginCarrier{c: c} }

func (g ginCarrier) GetHeader(name string) string { return g.c.GetHeader(name) }

func (g ginCarrier) GetCookie(name string) (string, bool) {
	v, err := g.c.Cookie(name)
	if err != nil {
		return "", false
	}
	return v, true
}

func (g ginCarrier) Method() string { return g.c.Request.Method }

func (g ginCarrier) URL() string { return g.c.Request.URL.String() }

func (g ginCarrier) SetHeader(name, value string) { g.c.Header(name, value) }

func (g ginCarrier) SetCookie(name, value string, maxAge int) {
	g.c.SetCookie(name, value, maxAge, "/", "", false, true)
}
