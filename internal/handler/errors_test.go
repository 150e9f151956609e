package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/auth-session-engine/internal/autherr"
    "github.com/iliyamo/auth-session-engine/internal/logging"
)

func TestStatusForCoversEveryKind(t *testing.T) {
    want := map[autherr.Kind]int{
        autherr.InvalidCredentials: http.StatusUnauthorized,
        autherr.EmailAlreadyUsed:   http.StatusConflict,
        autherr.WeakPassword:       http.StatusBadRequest,
        autherr.InvalidToken:       http.StatusUnauthorized,
        autherr.TokenExpired:       http.StatusUnauthorized,
        autherr.TokenRevoked:       http.StatusUnauthorized,
        autherr.UserNotFound:       http.StatusNotFound,
        autherr.SessionNotFound:    http.StatusNotFound,
        autherr.InvalidArgument:    http.StatusBadRequest,
    }
    for _, k := range autherr.Kinds {
        status, ok := want[k]
        require.True(t, ok, "kind %s has no expected status", k.Code())
        assert.Equal(t, status, StatusFor(k), k.Code())
    }
}

func runWriteError(t *testing.T, err error) (int, errorResp) {
    t.Helper()
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
    require.NoError(t, writeError(c, logging.Nop(), err))

    var body errorResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    return rec.Code, body
}

func TestWriteError(t *testing.T) {
    status, body := runWriteError(t, autherr.NewWeakPassword([]string{"a", "b"}))
    assert.Equal(t, http.StatusBadRequest, status)
    assert.Equal(t, errorResp{
        Error:      "Password does not meet requirements",
        Code:       "WEAK_PASSWORD",
        Status:     http.StatusBadRequest,
        Violations: []string{"a", "b"},
    }, body)

    status, body = runWriteError(t, fmt.Errorf("wrapped: %w", autherr.NewTokenRevoked()))
    assert.Equal(t, http.StatusUnauthorized, status)
    assert.Equal(t, "TOKEN_REVOKED", body.Code)

    status, body = runWriteError(t, errors.New("dial tcp: connection refused"))
    assert.Equal(t, http.StatusInternalServerError, status)
    assert.Equal(t, errorResp{Error: "An unexpected error occurred", Code: "INTERNAL_ERROR", Status: 500}, body)
}

func TestOutcome(t *testing.T) {
    assert.Equal(t, "ok", outcome(nil))
    assert.Equal(t, "INVALID_CREDENTIALS", outcome(autherr.NewInvalidCredentials()))
    assert.Equal(t, "INTERNAL_ERROR", outcome(errors.New("boom")))
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthAndReady(t *testing.T) {
    e := echo.New()
    e.GET("/healthz", Health)
    e.GET("/ready-ok", Ready(fakePinger{}))
    e.GET("/ready-down", Ready(fakePinger{err: errors.New("down")}))
    e.GET("/ready-memory", Ready(nil))

    for path, code := range map[string]int{
        "/healthz":      http.StatusOK,
        "/ready-ok":     http.StatusOK,
        "/ready-down":   http.StatusServiceUnavailable,
        "/ready-memory": http.StatusOK,
    } {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
        assert.Equal(t, code, rec.Code, path)
    }
}
