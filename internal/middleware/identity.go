package middleware

// identity.go carries the authenticated caller through the Echo context and
// the request context, and derives client addresses from proxy headers.

import (
    "context"
    "net"
    "strings"

    "github.com/labstack/echo/v4"
)

// Identity is the caller established by the Request Authenticator.
type Identity struct {
    UserID string
    Email  string
    Roles  []string
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role string) bool {
    for _, r := range i.Roles {
        if r == role {
            return true
        }
    }
    return false
}

const identityKey = "identity"

type identityCtxKey struct{}

func setIdentity(c echo.Context, id Identity) {
    c.Set(identityKey, id)
    req := c.Request()
    c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityCtxKey{}, id)))
}

// IdentityFrom returns the identity attached to c, if any.  Anonymous
// requests return false.
func IdentityFrom(c echo.Context) (Identity, bool) {
    id, ok := c.Get(identityKey).(Identity)
    return id, ok
}

// IdentityFromContext is IdentityFrom for code that only sees the request
// context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
    id, ok := ctx.Value(identityCtxKey{}).(Identity)
    return id, ok
}

// ClientID keys the rate limiter: first X-Forwarded-For entry, trimmed,
// else the direct peer address.
func ClientID(c echo.Context) string {
    if ip := forwardedFor(c); ip != "" {
        return ip
    }
    return peerAddr(c)
}

// ClientIP is the address recorded on sessions and login events:
// X-Forwarded-For first entry, else X-Real-IP, else the peer.
func ClientIP(c echo.Context) string {
    if ip := forwardedFor(c); ip != "" {
        return ip
    }
    if ip := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRealIP)); ip != "" {
        return ip
    }
    return peerAddr(c)
}

func forwardedFor(c echo.Context) string {
    xff := c.Request().Header.Get(echo.HeaderXForwardedFor)
    if xff == "" {
        return ""
    }
    first, _, _ := strings.Cut(xff, ",")
    return strings.TrimSpace(first)
}

func peerAddr(c echo.Context) string {
    addr := c.Request().RemoteAddr
    if host, _, err := net.SplitHostPort(addr); err == nil {
        return host
    }
    return addr
}
