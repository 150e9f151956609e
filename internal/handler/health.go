package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded readiness probes
    "net/http" // net/http provides status codes and response helpers
    "time"     // probe timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple liveness endpoint used by load balancers.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Ready reports 503 while the durable store is unreachable.  With a nil
// pinger (memory backend) it always reports ready.
func Ready(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if db != nil {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            defer cancel()
            if err := db.PingContext(ctx); err != nil {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "unreachable"})
            }
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
    }
}
