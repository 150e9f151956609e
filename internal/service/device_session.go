package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
	"github.com/iliyamo/auth-session-engine/internal/ids"
	"github.com/iliyamo/auth-session-engine/internal/model"
	"github.com/iliyamo/auth-session-engine/internal/repository"
	"github.com/iliyamo/auth-session-engine/internal/utils"
)

// maxUserAgentLen matches the device_sessions.user_agent column.
const maxUserAgentLen = 512

// SessionStore persists device sessions.
type SessionStore interface {
	Create(ctx context.Context, s model.DeviceSession) error
	ListActive(ctx context.Context, userID string) ([]model.DeviceSession, error)
	FindByID(ctx context.Context, id string) (model.DeviceSession, error)
	Revoke(ctx context.Context, id string, now time.Time) error
	RevokeAll(ctx context.Context, userID string, now time.Time) error
}

// SessionTracker records one visible session per credential exchange.
// Sessions never affect token validity.
type SessionTracker struct {
	store SessionStore
	now   func() time.Time
}

// NewSessionTracker builds a tracker.  A nil clock means time.Now.
func NewSessionTracker(store SessionStore, now func() time.Time) *SessionTracker {
	if now == nil {
		now = time.Now
	}
	return &SessionTracker{store: store, now: now}
}

// Create always inserts a new session row; sessions are never merged by
// device.
func (t *SessionTracker) Create(ctx context.Context, userID, ip, userAgent string) (model.DeviceSession, error) {
	now := t.now()
	ua := truncateRunes(userAgent, maxUserAgentLen)
	s := model.DeviceSession{
		ID:         ids.NewAt(now),
		UserID:     userID,
		IPAddress:  ip,
		UserAgent:  ua,
		DeviceName: utils.DeviceName(ua),
		OS:         utils.OSName(ua),
	}
	s.OnCreate(now)
	if err := t.store.Create(ctx, s); err != nil {
		return model.DeviceSession{}, fmt.Errorf("create device session: %w", err)
	}
	return s, nil
}

// ListActive returns non-revoked sessions, most recently used first.
func (t *SessionTracker) ListActive(ctx context.Context, userID string) ([]model.DeviceSession, error) {
	out, err := t.store.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list device sessions: %w", err)
	}
	return out, nil
}

// Revoke is a silent no-op for unknown ids.
func (t *SessionTracker) Revoke(ctx context.Context, id string) error {
	return t.store.Revoke(ctx, id, t.now())
}

func (t *SessionTracker) RevokeAll(ctx context.Context, userID string) error {
	return t.store.RevokeAll(ctx, userID, t.now())
}

// RevokeOwned revokes a session on behalf of its owner.  Sessions that do
// not exist, belong to someone else or are already gone all report
// SessionNotFound so ids of other users cannot be probed.
func (t *SessionTracker) RevokeOwned(ctx context.Context, userID, id string) error {
	s, err := t.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return autherr.NewSessionNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("find device session: %w", err)
	}
	if s.UserID != userID || !s.Listed() {
		return autherr.NewSessionNotFound(id)
	}
	return t.Revoke(ctx, id)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
