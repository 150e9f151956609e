package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// errorBody mirrors the boundary's error shape.
type errorBody struct {
    Error  string `json:"error"`
    Code   string `json:"code"`
    Status int    `json:"status"`
}

// RequireAuth rejects anonymous requests with 401.  It must run after
// Authenticate.
func RequireAuth() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if _, ok := IdentityFrom(c); !ok {
                return c.JSON(http.StatusUnauthorized, errorBody{
                    Error:  "Authentication failed",
                    Code:   "AUTHENTICATION_FAILED",
                    Status: http.StatusUnauthorized,
                })
            }
            return next(c)
        }
    }
}

// RequireRole returns a middleware function that enforces that the
// authenticated user carries at least one of the given roles.  Anonymous
// requests get 401, authenticated ones without a matching role get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    auth := RequireAuth()
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return auth(func(c echo.Context) error {
            id, _ := IdentityFrom(c)
            for _, r := range roles {
                if id.HasRole(r) {
                    return next(c)
                }
            }
            return c.JSON(http.StatusForbidden, errorBody{
                Error:  "Access denied",
                Code:   "ACCESS_DENIED",
                Status: http.StatusForbidden,
            })
        })
    }
}
