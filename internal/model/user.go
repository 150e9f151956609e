package model

import (
    "regexp"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/iliyamo/auth-session-engine/internal/autherr"
)

// Role is a coarse role carried inside access tokens.
type Role string

const (
    RoleUser  Role = "USER"
    RoleAdmin Role = "ADMIN"
)

// DefaultRoles is assigned to every newly registered identity.
func DefaultRoles() []Role { return []Role{RoleUser} }

// ParseRole accepts a role name in any case.  Unknown names are rejected.
func ParseRole(s string) (Role, bool) {
    switch Role(strings.ToUpper(strings.TrimSpace(s))) {
    case RoleUser:
        return RoleUser, true
    case RoleAdmin:
        return RoleAdmin, true
    }
    return "", false
}

// RoleNames converts roles to the string form embedded in tokens.
func RoleNames(roles []Role) []string {
    out := make([]string, 0, len(roles))
    seen := make(map[Role]struct{}, len(roles))
    for _, r := range roles {
        if _, dup := seen[r]; dup || r == "" {
            continue
        }
        seen[r] = struct{}{}
        out = append(out, string(r))
    }
    return out
}

// MaxDisplayNameLen bounds display names in runes.
const MaxDisplayNameLen = 255

// User is an identity as stored in the `users` and `user_roles` tables.
//
// Fields:
//  ID           – opaque UUID.
//  Email        – normalized (trimmed, lower-cased) unique address.
//  PasswordHash – bcrypt hash; never leaves the service.
//  DisplayName  – free-text name shown in profiles.
//  Roles        – non-empty role set; USER by default.
type User struct {
    ID           string
    Email        string
    PasswordHash string
    DisplayName  string
    Roles        []Role
    Lifecycle
}

// NewUser builds a ready-to-persist identity with the default role set.
// The caller is expected to have normalized the email already.
func NewUser(id, email, passwordHash, displayName string, now time.Time) User {
    u := User{
        ID:           id,
        Email:        email,
        PasswordHash: passwordHash,
        DisplayName:  NormalizeDisplayName(displayName),
        Roles:        DefaultRoles(),
    }
    u.OnCreate(now)
    return u
}

// NormalizeDisplayName trims and truncates a display name.
func NormalizeDisplayName(s string) string {
    s = strings.TrimSpace(s)
    if utf8.RuneCountInString(s) <= MaxDisplayNameLen {
        return s
    }
    return string([]rune(s)[:MaxDisplayNameLen])
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lower-cases raw, then validates it.  Failures are
// reported as InvalidArgument.
func NormalizeEmail(raw string) (string, error) {
    e := strings.ToLower(strings.TrimSpace(raw))
    if e == "" {
        return "", autherr.NewInvalidArgument("Email cannot be blank")
    }
    if !emailPattern.MatchString(e) {
        return "", autherr.NewInvalidArgument("Invalid email format: " + e)
    }
    return e, nil
}
