package handler

import (
    "context"  // provides context with cancellation for store calls
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts and expiry arithmetic

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/auth-session-engine/internal/logging"    // structured logging
    "github.com/iliyamo/auth-session-engine/internal/middleware" // caller identity and client address
    "github.com/iliyamo/auth-session-engine/internal/model"      // identity model
    "github.com/iliyamo/auth-session-engine/internal/service"    // session lifecycle engine
)

// requestTimeout bounds every store round trip made on behalf of a request.
const requestTimeout = 5 * time.Second

// OutcomeRecorder counts lifecycle operations; *obs.Metrics implements it.
type OutcomeRecorder interface {
    AuthOutcome(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthOutcome(string, string) {}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Engine  *service.Engine
    Log     logging.Logger
    Metrics OutcomeRecorder
}

func NewAuthHandler(e *service.Engine, log logging.Logger, m OutcomeRecorder) *AuthHandler {
    if log == nil {
        log = logging.Nop()
    }
    if m == nil {
        m = nopRecorder{}
    }
    return &AuthHandler{Engine: e, Log: log, Metrics: m}
}

// ----- DTOs -----

type registerReq struct {
    Email       string `json:"email"`
    Password    string `json:"password"`
    DisplayName string `json:"display_name"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
    AccessToken      string    `json:"access_token"`
    RefreshToken     string    `json:"refresh_token"`
    TokenType        string    `json:"token_type"`
    ExpiresIn        int64     `json:"expires_in"` // access token lifetime in seconds
    RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type userResp struct {
    ID          string    `json:"id"`
    Email       string    `json:"email"`
    DisplayName string    `json:"display_name"`
    Roles       []string  `json:"roles"`
    CreatedAt   time.Time `json:"created_at"`
}

func newTokenResp(p service.TokenPair) tokenResp {
    return tokenResp{
        AccessToken:      p.AccessToken,
        RefreshToken:     p.RefreshToken,
        TokenType:        p.TokenType,
        ExpiresIn:        int64(p.AccessTTL / time.Second),
        RefreshExpiresAt: p.RefreshExpiresAt,
    }
}

func newUserResp(u model.User) userResp {
    return userResp{
        ID:          u.ID,
        Email:       u.Email,
        DisplayName: u.DisplayName,
        Roles:       model.RoleNames(u.Roles),
        CreatedAt:   u.CreatedAt,
    }
}

func clientInfo(c echo.Context) service.ClientInfo {
    return service.ClientInfo{
        IP:        middleware.ClientIP(c),
        UserAgent: c.Request().UserAgent(),
    }
}

// Register: create the identity and return a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return validationError(c, "Invalid request body")
    }
    var missing []string
    if strings.TrimSpace(req.Email) == "" {
        missing = append(missing, "Email is required")
    }
    if req.Password == "" {
        missing = append(missing, "Password is required")
    }
    if strings.TrimSpace(req.DisplayName) == "" {
        missing = append(missing, "Display name is required")
    }
    if len(missing) > 0 {
        return validationError(c, missing...)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    pair, err := h.Engine.Register(ctx, req.Email, req.Password, req.DisplayName, clientInfo(c))
    h.Metrics.AuthOutcome("register", outcome(err))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, newTokenResp(pair))
}

// Login: verify the password and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return validationError(c, "Invalid request body")
    }
    var missing []string
    if strings.TrimSpace(req.Email) == "" {
        missing = append(missing, "Email is required")
    }
    if req.Password == "" {
        missing = append(missing, "Password is required")
    }
    if len(missing) > 0 {
        return validationError(c, missing...)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    pair, err := h.Engine.Login(ctx, req.Email, req.Password, clientInfo(c))
    h.Metrics.AuthOutcome("login", outcome(err))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, newTokenResp(pair))
}

// Refresh: rotate the presented refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return validationError(c, "Invalid request body")
    }
    if strings.TrimSpace(req.RefreshToken) == "" {
        return validationError(c, "Refresh token is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    pair, err := h.Engine.Refresh(ctx, req.RefreshToken, clientInfo(c))
    h.Metrics.AuthOutcome("refresh", outcome(err))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, newTokenResp(pair))
}

// Logout revokes every refresh token of the caller.  Requires an identity.
func (h *AuthHandler) Logout(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    err := h.Engine.Logout(ctx, id.UserID)
    h.Metrics.AuthOutcome("logout", outcome(err))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Engine.GetUser(ctx, id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, newUserResp(u))
}
