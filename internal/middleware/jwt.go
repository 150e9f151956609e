package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "strings" // prefix checking and trimming of the Authorization header

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/auth-session-engine/internal/utils" // token claims
)

// TokenVerifier checks an access token's signature and expiry.  It never
// consults storage.
type TokenVerifier interface {
    Verify(token string) (*utils.Claims, error)
}

// Authenticate returns the Request Authenticator.  It reads a Bearer token
// from the Authorization header and, when it verifies, attaches the
// caller's Identity to the context.  A missing, malformed, expired or
// forged token, or a refresh token presented as a bearer, leaves the
// request anonymous; route-level middleware such as RequireAuth decides
// whether that is acceptable.  A revoked access token is still accepted
// until it expires.
func Authenticate(v TokenVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return next(c)
            }
            claims, err := v.Verify(raw)
            if err != nil || claims.IsRefresh() {
                return next(c)
            }
            setIdentity(c, Identity{
                UserID: claims.Subject,
                Email:  claims.Email,
                Roles:  claims.Roles,
            })
            return next(c)
        }
    }
}

func bearerToken(header string) (string, bool) {
    const prefix = "Bearer "
    if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
        return "", false
    }
    raw := strings.TrimSpace(header[len(prefix):])
    return raw, raw != ""
}
