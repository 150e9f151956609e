package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                         // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"       // recovery from handler panics

	"github.com/iliyamo/auth-session-engine/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/auth-session-engine/internal/logging"    // structured request logging
	"github.com/iliyamo/auth-session-engine/internal/middleware" // authentication, admission control and role enforcement
	"github.com/iliyamo/auth-session-engine/internal/obs"        // Prometheus instrumentation
	"github.com/iliyamo/auth-session-engine/internal/ratelimit"  // token-bucket limiter
)

// Chain holds what the global middleware stack needs.
type Chain struct {
	Log             logging.Logger
	Metrics         *obs.Metrics
	Limiter         ratelimit.Limiter // nil disables admission control
	RateLimitPrefix string
	Verifier        middleware.TokenVerifier
}

// Use installs the global middleware in order: metrics, request log, panic
// recovery, admission control on the credential-entry prefix, then the
// Request Authenticator.
func Use(e *echo.Echo, ch Chain) {
	if ch.Metrics != nil {
		e.Use(ch.Metrics.Instrument())
	}
	e.Use(middleware.RequestLogger(ch.Log))
	e.Use(echomw.Recover())
	if ch.Limiter != nil {
		var observer middleware.RateLimitObserver
		if ch.Metrics != nil {
			observer = ch.Metrics
		}
		e.Use(middleware.RateLimit(ch.Limiter, ch.RateLimitPrefix, ch.Log, observer))
	}
	e.Use(middleware.Authenticate(ch.Verifier))
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *obs.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the credential-entry routes under /auth.
// Register, login and refresh are open; logout needs an identity.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.RequireAuth())
}

// RegisterUsers registers the caller's profile and device-session routes.
// Every route requires an identity with the USER or ADMIN role.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, s *handler.SessionHandler) {
	g := e.Group("/users/me")
	g.Use(middleware.RequireRole("USER", "ADMIN"))
	g.GET("", a.Me)
	g.GET("/sessions", s.List)
	g.DELETE("/sessions", s.RevokeAll)
	g.DELETE("/sessions/:id", s.Revoke)
}
