package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-engine/internal/logging"
    "github.com/iliyamo/auth-session-engine/internal/ratelimit"
)

// rateLimitedBody is written verbatim on rejection.
var rateLimitedBody = []byte(`{"error":"Too many requests","code":"RATE_LIMIT_EXCEEDED","status":429}`)

// RateLimitObserver receives admission-control outcomes; *obs.Metrics
// implements it.
type RateLimitObserver interface {
    RateLimited()
    RateLimiterFailed()
}

// RateLimit guards every path under prefix with one token per request from
// the bucket of ClientID.  A rejected request never reaches the handler.
// When the limiter backend fails the request is let through and the
// failure logged.
func RateLimit(l ratelimit.Limiter, prefix string, log logging.Logger, observer RateLimitObserver) echo.MiddlewareFunc {
    if l == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = logging.Nop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !strings.HasPrefix(c.Request().URL.Path, prefix) {
                return next(c)
            }
            ctx := c.Request().Context()
            key := ClientID(c)

            d, err := l.Allow(ctx, key)
            if err != nil {
                log.Warn(ctx, "rate limiter unavailable; admitting request", "client", key, "error", err)
                if observer != nil {
                    observer.RateLimiterFailed()
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                if secs < 1 {
                    secs = 1
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                log.Info(ctx, "rate limit exceeded", "client", key, "path", c.Request().URL.Path)
                if observer != nil {
                    observer.RateLimited()
                }
                return c.JSONBlob(http.StatusTooManyRequests, rateLimitedBody)
            }
            return next(c)
        }
    }
}
