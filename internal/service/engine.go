// Package service holds the session lifecycle engine and its collaborators:
// the password policy, the device session tracker and event notification.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
	"github.com/iliyamo/auth-session-engine/internal/ids"
	"github.com/iliyamo/auth-session-engine/internal/logging"
	"github.com/iliyamo/auth-session-engine/internal/model"
	q "github.com/iliyamo/auth-session-engine/internal/queue"
	"github.com/iliyamo/auth-session-engine/internal/repository"
	"github.com/iliyamo/auth-session-engine/internal/utils"
)

// UserStore is the identity store the engine reads and writes.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	FindActiveByEmail(ctx context.Context, email string) (model.User, error)
	FindActiveByID(ctx context.Context, id string) (model.User, error)
	ExistsActiveByEmail(ctx context.Context, email string) (bool, error)
}

// TokenStore keeps refresh-token records.  Rotate must let at most one of
// several concurrent calls on the same fingerprint reach next.
type TokenStore interface {
	Put(ctx context.Context, rec model.RefreshToken) error
	FindByFingerprint(ctx context.Context, fingerprint string) (model.RefreshToken, error)
	Revoke(ctx context.Context, id string, now time.Time) error
	RevokeAllForSubject(ctx context.Context, userID string, now time.Time) (int64, error)
	Rotate(ctx context.Context, fingerprint string, now time.Time, next repository.RotateFunc) (model.RefreshToken, error)
}

// PasswordHasher is the one-way credential primitive.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// ClientInfo describes the caller of a credential exchange.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// TokenPair is returned by every successful credential exchange.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	AccessExpiresAt  time.Time
	AccessTTL        time.Duration
	RefreshExpiresAt time.Time
	Session          model.DeviceSession
}

// Engine composes the stores, the token codec and the password primitives
// into register, login, refresh and logout.
type Engine struct {
	users    UserStore
	tokens   TokenStore
	sessions *SessionTracker
	codec    *utils.TokenCodec
	hasher   PasswordHasher
	policy   PasswordPolicy
	notifier Notifier
	log      logging.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides time.Now.  The codec and tracker carry their own
// clocks; tests pass the same function to all three.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// NewEngine wires an engine.  Without WithNotifier events go to the log.
func NewEngine(users UserStore, tokens TokenStore, sessions *SessionTracker, codec *utils.TokenCodec, hasher PasswordHasher, opts ...Option) *Engine {
	e := &Engine{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{Log: e.log}
	}
	return e
}

// Register creates an identity with the default role and signs it in.
func (e *Engine) Register(ctx context.Context, email, password, displayName string, client ClientInfo) (TokenPair, error) {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return TokenPair{}, err
	}
	exists, err := e.users.ExistsActiveByEmail(ctx, normalized)
	if err != nil {
		return TokenPair{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return TokenPair{}, autherr.NewEmailAlreadyUsed(normalized)
	}
	if err := e.policy.Validate(password); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(displayName) == "" {
		return TokenPair{}, autherr.NewInvalidArgument("Display name is required")
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	now := e.now()
	u := model.NewUser(ids.NewSubject(), normalized, hash, displayName, now)
	if err := e.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return TokenPair{}, autherr.NewEmailAlreadyUsed(normalized)
		}
		return TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := e.issue(ctx, u, client)
	if err != nil {
		return TokenPair{}, err
	}
	if err := e.notifier.UserRegistered(ctx, q.UserRegisteredEvent{
		UserID:       u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		RegisteredAt: now.UTC().Format(time.RFC3339),
	}); err != nil {
		e.log.Warn(ctx, "registered notification failed", "user_id", u.ID, "error", err)
	}
	return pair, nil
}

// Login exchanges a password for a token pair.  Unknown emails and wrong
// passwords fail identically with InvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, password string, client ClientInfo) (TokenPair, error) {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := e.users.FindActiveByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		// burn a comparable bcrypt round so timing does not reveal the miss
		e.hasher.Verify(e.dummy(), password)
		return TokenPair{}, autherr.NewInvalidCredentials()
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if !e.hasher.Verify(u.PasswordHash, password) {
		return TokenPair{}, autherr.NewInvalidCredentials()
	}

	pair, err := e.issue(ctx, u, client)
	if err != nil {
		return TokenPair{}, err
	}
	if err := e.notifier.UserLoggedIn(ctx, q.UserLoggedInEvent{
		UserID:     u.ID,
		Email:      u.Email,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
		LoggedInAt: e.now().UTC().Format(time.RFC3339),
	}); err != nil {
		e.log.Warn(ctx, "login notification failed", "user_id", u.ID, "error", err)
	}
	return pair, nil
}

// Refresh rotates a refresh token.  The presented record is revoked and
// its replacement stored in one atomic step; a second presentation of the
// same token fails with TokenRevoked.
//
// The owner is resolved and the replacement minted before the rotation
// starts, so the store's atomic unit performs no other I/O.  The record is
// re-checked under the store's lock; of concurrent callers only one wins.
func (e *Engine) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, autherr.NewInvalidArgument("Refresh token is required")
	}
	fp := utils.HashRefreshRaw(refreshToken)
	now := e.now()

	cur, err := e.tokens.FindByFingerprint(ctx, fp)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, autherr.NewInvalidToken()
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find refresh token: %w", err)
	}
	switch cur.Status(now) {
	case model.TokenExpired:
		return TokenPair{}, autherr.NewTokenExpired()
	case model.TokenRevoked:
		return TokenPair{}, autherr.NewTokenRevoked()
	}

	u, err := e.users.FindActiveByID(ctx, cur.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, autherr.NewUserNotFound(cur.UserID)
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	pair, rec, err := e.mint(u)
	if err != nil {
		return TokenPair{}, err
	}

	if _, err := e.tokens.Rotate(ctx, fp, now, func(context.Context, model.RefreshToken) (model.RefreshToken, error) {
		return rec, nil
	}); err != nil {
		return TokenPair{}, err
	}
	pair.Session = e.openSession(ctx, u.ID, client)
	return pair, nil
}

// Logout revokes every refresh token of the subject.  Device sessions and
// already issued access tokens are left alone; the latter stay usable
// until they expire.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	n, err := e.tokens.RevokeAllForSubject(ctx, userID, e.now())
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	e.log.Debug(ctx, "logout", "user_id", userID, "revoked", n)
	return nil
}

// GetUser returns the active identity behind an access token.
func (e *Engine) GetUser(ctx context.Context, userID string) (model.User, error) {
	u, err := e.users.FindActiveByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, autherr.NewUserNotFound(userID)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Sessions exposes the tracker for the session management endpoints.
func (e *Engine) Sessions() *SessionTracker { return e.sessions }

// issue mints a pair, stores its refresh record and opens a session.
func (e *Engine) issue(ctx context.Context, u model.User, client ClientInfo) (TokenPair, error) {
	pair, rec, err := e.mint(u)
	if err != nil {
		return TokenPair{}, err
	}
	if err := e.tokens.Put(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	pair.Session = e.openSession(ctx, u.ID, client)
	return pair, nil
}

// openSession records the exchange as a visible device session.  It runs
// after the refresh record is stored; a failed write is logged and leaves
// the zero session in the pair.
func (e *Engine) openSession(ctx context.Context, userID string, client ClientInfo) model.DeviceSession {
	s, err := e.sessions.Create(ctx, userID, client.IP, client.UserAgent)
	if err != nil {
		e.log.Warn(ctx, "device session not recorded", "user_id", userID, "error", err)
		return model.DeviceSession{}
	}
	return s
}

func (e *Engine) mint(u model.User) (TokenPair, model.RefreshToken, error) {
	access, err := e.codec.IssueAccess(u)
	if err != nil {
		return TokenPair{}, model.RefreshToken{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.codec.IssueRefresh(u.ID)
	if err != nil {
		return TokenPair{}, model.RefreshToken{}, fmt.Errorf("issue refresh token: %w", err)
	}
	now := e.now()
	rec := model.NewRefreshToken(ids.NewAt(now), u.ID, utils.HashRefreshRaw(refresh.Token), refresh.ExpiresAt, now)
	return TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		AccessExpiresAt:  access.ExpiresAt,
		AccessTTL:        e.codec.AccessTTL(),
		RefreshExpiresAt: refresh.ExpiresAt,
	}, rec, nil
}

func (e *Engine) dummy() string {
	e.dummyOnce.Do(func() {
		e.dummyHash, _ = e.hasher.Hash("dummy-password-for-timing")
	})
	return e.dummyHash
}
