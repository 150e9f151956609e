package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-engine/internal/autherr"
    "github.com/iliyamo/auth-session-engine/internal/logging"
)

const (
    codeInternal   = "INTERNAL_ERROR"
    codeValidation = "VALIDATION_ERROR"
    msgInternal    = "An unexpected error occurred"
)

// errorResp is the body of every non-2xx response.
type errorResp struct {
    Error      string   `json:"error"`
    Code       string   `json:"code"`
    Status     int      `json:"status"`
    Violations []string `json:"violations,omitempty"`
}

// StatusFor maps every domain kind to its transport status.
func StatusFor(k autherr.Kind) int {
    switch k {
    case autherr.InvalidCredentials, autherr.InvalidToken, autherr.TokenExpired, autherr.TokenRevoked:
        return http.StatusUnauthorized
    case autherr.EmailAlreadyUsed:
        return http.StatusConflict
    case autherr.WeakPassword, autherr.InvalidArgument:
        return http.StatusBadRequest
    case autherr.UserNotFound, autherr.SessionNotFound:
        return http.StatusNotFound
    }
    return http.StatusInternalServerError
}

// outcome is the metrics label for err: "ok", a domain code or
// INTERNAL_ERROR.
func outcome(err error) string {
    if err == nil {
        return "ok"
    }
    if k, ok := autherr.KindOf(err); ok {
        return k.Code()
    }
    return codeInternal
}

// writeError shapes err into the error body.  Anything that is not a
// domain error is logged and hidden behind a generic 500.
func writeError(c echo.Context, log logging.Logger, err error) error {
    var ae *autherr.Error
    if !errors.As(err, &ae) {
        log.Error(c.Request().Context(), "request failed", "path", c.Request().URL.Path, "error", err)
        return c.JSON(http.StatusInternalServerError, errorResp{
            Error:  msgInternal,
            Code:   codeInternal,
            Status: http.StatusInternalServerError,
        })
    }
    status := StatusFor(ae.Kind)
    return c.JSON(status, errorResp{
        Error:      ae.Message,
        Code:       ae.Kind.Code(),
        Status:     status,
        Violations: ae.Violations,
    })
}

// validationError reports missing or malformed request fields.
func validationError(c echo.Context, problems ...string) error {
    return c.JSON(http.StatusBadRequest, errorResp{
        Error:  strings.Join(problems, "; "),
        Code:   codeValidation,
        Status: http.StatusBadRequest,
    })
}
