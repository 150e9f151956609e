package model

import "time"

// TokenStatus is the rotation state of a refresh-token record.
type TokenStatus uint8

const (
    TokenActive TokenStatus = iota
    TokenExpired
    TokenRevoked
)

func (s TokenStatus) String() string {
    switch s {
    case TokenExpired:
        return "EXPIRED"
    case TokenRevoked:
        return "REVOKED"
    }
    return "ACTIVE"
}

// RefreshToken models a row of `refresh_tokens`.  Only the SHA-256
// fingerprint of the transport token is kept.
//
// Fields:
//  ID          – ULID record id.
//  UserID      – owning identity.
//  Fingerprint – hex SHA-256 of the signed refresh token; unique.
//  ExpiresAt   – copied from the token's exp claim.
//  Revoked     – set once, never cleared.
type RefreshToken struct {
    ID          string
    UserID      string
    Fingerprint string
    ExpiresAt   time.Time
    Revoked     bool
    Lifecycle
}

func NewRefreshToken(id, userID, fingerprint string, expiresAt, now time.Time) RefreshToken {
    rt := RefreshToken{
        ID:          id,
        UserID:      userID,
        Fingerprint: fingerprint,
        ExpiresAt:   expiresAt.UTC(),
    }
    rt.OnCreate(now)
    return rt
}

// Status checks expiry before revocation, so an expired record that was
// also revoked reports TokenExpired.  A soft-deleted record is never active
// and reports TokenRevoked unless it has expired.
func (t RefreshToken) Status(now time.Time) TokenStatus {
    if !now.Before(t.ExpiresAt) {
        return TokenExpired
    }
    if t.Revoked || t.IsDeleted() {
        return TokenRevoked
    }
    return TokenActive
}

func (t RefreshToken) Valid(now time.Time) bool { return t.Status(now) == TokenActive }

// Revoke is idempotent.
func (t *RefreshToken) Revoke(now time.Time) {
    if t.Revoked {
        return
    }
    t.Revoked = true
    t.OnUpdate(now)
}
