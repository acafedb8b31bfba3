package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webapi-template/internal/auth"
	"webapi-template/internal/domain/user"
	"webapi-template/internal/middleware"
)

// RouterOptions carries everything the route table needs.
type RouterOptions struct {
	Log        *slog.Logger
	Production bool

	Resolver *auth.Resolver
	Users    user.Store

	// Registry receives the HTTP collectors and backs /metrics. Optional.
	Registry *prometheus.Registry

	// Limiter throttles requests per client IP. Optional.
	Limiter *middleware.RateLimiter

	// CORSOrigins lists allowed origins; empty disables CORS handling.
	CORSOrigins []string
}

// NewRouter builds the gin engine with the full middleware chain and route
// table. Middleware order is fixed: request id, logging, metrics, CORS, the
// error translator, then rate limiting and dispatch. The translator sits
// after CORS so even error responses carry CORS headers, and before
// anything that raises.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(opts.Log))

	if opts.Registry != nil {
		metrics := middleware.NewMetrics(opts.Registry)
		r.Use(metrics.Handler())
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}

	r.Use(middleware.Errors(opts.Log, opts.Production))

	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware())
	}

	health := NewHealthHandler(opts.Users)
	users := NewUserHandler(opts.Users)
	sessions := NewSessionHandler()

	r.GET("/healthz", Wrap(health.Check))
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/users", Wrap(users.Create))
		v1.POST("/auth/session", middleware.OptionalSession(opts.Resolver), Wrap(sessions.Introspect))

		private := v1.Group("", middleware.RequireSession(opts.Resolver))
		{
			private.GET("/me", Wrap(sessions.Me))
			private.GET("/users", Wrap(users.List))
			private.GET("/users/:id", Wrap(users.Get))
			private.PUT("/users/:id", Wrap(users.Update))
			private.DELETE("/users/:id", Wrap(users.Delete))
		}
	}

	return r
}
