package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-engine/internal/logging"
)

// RequestLogger writes one structured line per request.  The user_id field
// is set when the request was authenticated.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo write the response so the status below is final
                c.Error(err)
            }

            req := c.Request()
            args := []any{
                "method", req.Method,
                "path", req.URL.Path,
                "status", c.Response().Status,
                "duration_ms", time.Since(start).Milliseconds(),
                "ip", ClientIP(c),
            }
            if id, ok := IdentityFrom(c); ok {
                args = append(args, "user_id", id.UserID)
            }
            if err != nil {
                args = append(args, "error", err.Error())
            }
            log.Info(req.Context(), "request", args...)
            return nil
        }
    }
}
