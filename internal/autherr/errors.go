// Package autherr defines the closed set of domain failures raised by the
// session lifecycle engine. Every failure carries a Kind with a stable
// machine-readable code; mapping to transport status codes is left to the
// HTTP boundary.
package autherr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates every domain error the engine can raise.
type Kind uint8

const (
	InvalidCredentials Kind = iota + 1
	EmailAlreadyUsed
	WeakPassword
	InvalidToken
	TokenExpired
	TokenRevoked
	UserNotFound
	SessionNotFound
	InvalidArgument
)

// Kinds lists all kinds in declaration order.
var Kinds = []Kind{
	InvalidCredentials, EmailAlreadyUsed, WeakPassword, InvalidToken,
	TokenExpired, TokenRevoked, UserNotFound, SessionNotFound, InvalidArgument,
}

// Code returns the stable code sent to clients.
func (k Kind) Code() string {
	switch k {
	case InvalidCredentials:
		return "INVALID_CREDENTIALS"
	case EmailAlreadyUsed:
		return "EMAIL_ALREADY_USED"
	case WeakPassword:
		return "WEAK_PASSWORD"
	case InvalidToken:
		return "INVALID_TOKEN"
	case TokenExpired:
		return "TOKEN_EXPIRED"
	case TokenRevoked:
		return "TOKEN_REVOKED"
	case UserNotFound:
		return "USER_NOT_FOUND"
	case SessionNotFound:
		return "SESSION_NOT_FOUND"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	}
	return "UNKNOWN"
}

func (k Kind) String() string { return k.Code() }

// Error is the single concrete domain error type. Violations is populated
// only for WeakPassword.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Violations, "; "))
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, autherr.New(k, ""))
// and the sentinel helpers below work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the domain kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func NewInvalidCredentials() *Error {
	return New(InvalidCredentials, "Invalid email or password")
}

func NewEmailAlreadyUsed(email string) *Error {
	return New(EmailAlreadyUsed, "Email already in use: "+email)
}

func NewWeakPassword(violations []string) *Error {
	v := make([]string, len(violations))
	copy(v, violations)
	return &Error{Kind: WeakPassword, Message: "Password does not meet requirements", Violations: v}
}

func NewInvalidToken() *Error { return New(InvalidToken, "Invalid token") }

func NewTokenExpired() *Error { return New(TokenExpired, "Token has expired") }

func NewTokenRevoked() *Error { return New(TokenRevoked, "Token has been revoked") }

func NewUserNotFound(id string) *Error {
	return New(UserNotFound, "User not found with id: "+id)
}

func NewSessionNotFound(id string) *Error {
	return New(SessionNotFound, "Session not found: "+id)
}

func NewInvalidArgument(msg string) *Error { return New(InvalidArgument, msg) }
