package utils // package utils provides token signing, fingerprinting and credential helpers

import (
    "crypto/sha256" // SHA-256 fingerprints for refresh tokens
    "encoding/hex"  // hex encoding of fingerprints
    "errors"        // error kinds from the jwt library
    "time"          // expirations and the injected clock

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
    "github.com/google/uuid"       // random jti values

    "github.com/iliyamo/auth-session-engine/internal/autherr" // domain error kinds
    "github.com/iliyamo/auth-session-engine/internal/model"   // identity model
)

// TypeRefresh is the value of the "type" claim on refresh tokens.  Access
// tokens carry no type claim.
const TypeRefresh = "refresh"

// Claims is the payload of both token kinds.  Access tokens fill Email and
// Roles; refresh tokens fill Type.
type Claims struct {
    Email string   `json:"email,omitempty"`
    Roles []string `json:"roles,omitempty"`
    Type  string   `json:"type,omitempty"`
    jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool { return c.Type == TypeRefresh }

// IssuedToken is a signed token along with its expiry.
type IssuedToken struct {
    Token     string    // the serialized JWT string
    ExpiresAt time.Time // the UTC expiration time
}

// TokenCodec signs and verifies HS256 tokens with a single shared secret.
// It holds no state besides its configuration and is safe for concurrent use.
type TokenCodec struct {
    secret     []byte
    accessTTL  time.Duration
    refreshTTL time.Duration
    now        func() time.Time
}

// NewTokenCodec builds a codec.  A nil clock means time.Now.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenCodec {
    if now == nil {
        now = time.Now
    }
    return &TokenCodec{
        secret:     []byte(secret),
        accessTTL:  accessTTL,
        refreshTTL: refreshTTL,
        now:        now,
    }
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess mints an access token for u: sub, email, roles, iat, exp.
func (c *TokenCodec) IssueAccess(u model.User) (IssuedToken, error) {
    return c.sign(u.ID, c.accessTTL, func(cl *Claims) {
        cl.Email = u.Email
        cl.Roles = model.RoleNames(u.Roles)
    })
}

// IssueRefresh mints a refresh token for subjectID: sub, type=refresh, iat, exp.
func (c *TokenCodec) IssueRefresh(subjectID string) (IssuedToken, error) {
    return c.sign(subjectID, c.refreshTTL, func(cl *Claims) {
        cl.Type = TypeRefresh
    })
}

func (c *TokenCodec) sign(subject string, ttl time.Duration, fill func(*Claims)) (IssuedToken, error) {
    now := c.now().UTC()
    exp := now.Add(ttl)
    claims := &Claims{
        RegisteredClaims: jwt.RegisteredClaims{
            ID:        uuid.NewString(),
            Subject:   subject,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    fill(claims)
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
    if err != nil {
        return IssuedToken{}, err
    }
    // exp is serialized with second precision
    return IssuedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// Verify checks signature, algorithm and expiry.  Every failure, including
// an expired token, is reported as InvalidToken.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
    claims := &Claims{}
    parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errors.New("unexpected signing method")
        }
        return c.secret, nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(c.now),
    )
    if err != nil || !parsed.Valid || claims.Subject == "" {
        return nil, autherr.NewInvalidToken()
    }
    return claims, nil
}

// IsValid never fails; it is true only when Verify succeeds.
func (c *TokenCodec) IsValid(token string) bool {
    _, err := c.Verify(token)
    return err == nil
}

// HashRefreshRaw returns the hex SHA-256 fingerprint of a transport token.
// Only fingerprints are persisted.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
