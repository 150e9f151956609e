package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-engine/internal/logging"
    "github.com/iliyamo/auth-session-engine/internal/middleware"
    "github.com/iliyamo/auth-session-engine/internal/model"
    "github.com/iliyamo/auth-session-engine/internal/service"
)

// SessionHandler serves the caller's device sessions.  Revoking a session
// does not revoke any token.
type SessionHandler struct {
    Sessions *service.SessionTracker
    Log      logging.Logger
}

func NewSessionHandler(t *service.SessionTracker, log logging.Logger) *SessionHandler {
    if log == nil {
        log = logging.Nop()
    }
    return &SessionHandler{Sessions: t, Log: log}
}

type sessionResp struct {
    ID         string    `json:"id"`
    DeviceName string    `json:"device_name"`
    OS         string    `json:"os"`
    IPAddress  string    `json:"ip_address"`
    LastUsedAt time.Time `json:"last_used_at"`
    CreatedAt  time.Time `json:"created_at"`
}

func newSessionResp(s model.DeviceSession) sessionResp {
    return sessionResp{
        ID:         s.ID,
        DeviceName: s.DeviceName,
        OS:         s.OS,
        IPAddress:  s.IPAddress,
        LastUsedAt: s.LastUsedAt,
        CreatedAt:  s.CreatedAt,
    }
}

// List: GET /users/me/sessions, most recently used first.
func (h *SessionHandler) List(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.Sessions.ListActive(ctx, id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    out := make([]sessionResp, 0, len(list))
    for _, s := range list {
        out = append(out, newSessionResp(s))
    }
    return c.JSON(http.StatusOK, out)
}

// Revoke: DELETE /users/me/sessions/:id.
func (h *SessionHandler) Revoke(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Sessions.RevokeOwned(ctx, id.UserID, c.Param("id")); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// RevokeAll: DELETE /users/me/sessions.
func (h *SessionHandler) RevokeAll(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Sessions.RevokeAll(ctx, id.UserID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
