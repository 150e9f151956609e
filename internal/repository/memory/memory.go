// Package memory provides in-process stores with the same semantics as the
// MySQL repositories. They back the "memory" store backend and the service
// tests. Every store is safe for concurrent use.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
	"github.com/iliyamo/auth-session-engine/internal/model"
	"github.com/iliyamo/auth-session-engine/internal/repository"
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{byID: map[string]model.User{}, byEmail: map[string]string{}}
}

func (s *UserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return repository.ErrEmailExists
	}
	u.Roles = append([]model.Role(nil), u.Roles...)
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) FindActiveByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return s.activeLocked(id)
}

func (s *UserStore) FindActiveByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(id)
}

func (s *UserStore) ExistsActiveByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindActiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SoftDelete marks the identity deleted; its email stays reserved, as with
// the unique column in MySQL.
func (s *UserStore) SoftDelete(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.SoftDelete(now)
		s.byID[id] = u
	}
}

func (s *UserStore) activeLocked(id string) (model.User, error) {
	u, ok := s.byID[id]
	if !ok || u.IsDeleted() {
		return model.User{}, repository.ErrNotFound
	}
	u.Roles = append([]model.Role(nil), u.Roles...)
	return u, nil
}

// TokenStore holds refresh-token records. Rotation runs entirely under the
// store lock, which gives the same single-winner guarantee as the row lock
// in MySQL.
type TokenStore struct {
	mu     sync.Mutex
	byFP   map[string]*model.RefreshToken
	byUser map[string][]string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{byFP: map[string]*model.RefreshToken{}, byUser: map[string][]string{}}
}

func (s *TokenStore) Put(_ context.Context, rec model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(rec)
}

func (s *TokenStore) putLocked(rec model.RefreshToken) error {
	if _, dup := s.byFP[rec.Fingerprint]; dup {
		return repository.ErrDuplicateFingerprint
	}
	r := rec
	s.byFP[rec.Fingerprint] = &r
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec.Fingerprint)
	return nil
}

func (s *TokenStore) FindByFingerprint(_ context.Context, fp string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byFP[fp]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return *r, nil
}

func (s *TokenStore) Revoke(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byFP {
		if r.ID == id {
			r.Revoke(now)
			return nil
		}
	}
	return nil
}

func (s *TokenStore) RevokeAllForSubject(_ context.Context, userID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, fp := range s.byUser[userID] {
		if r := s.byFP[fp]; !r.Revoked {
			r.Revoke(now)
			n++
		}
	}
	return n, nil
}

func (s *TokenStore) Rotate(ctx context.Context, fp string, now time.Time, next repository.RotateFunc) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byFP[fp]
	if !ok {
		return model.RefreshToken{}, autherr.NewInvalidToken()
	}
	switch r.Status(now) {
	case model.TokenExpired:
		return model.RefreshToken{}, autherr.NewTokenExpired()
	case model.TokenRevoked:
		return model.RefreshToken{}, autherr.NewTokenRevoked()
	}

	cur := *r
	cur.Revoke(now)
	repl, err := next(ctx, cur)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if err := s.putLocked(repl); err != nil {
		return model.RefreshToken{}, err
	}
	*r = cur
	return repl, nil
}

type SessionStore struct {
	mu   sync.RWMutex
	byID map[string]model.DeviceSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: map[string]model.DeviceSession{}}
}

func (s *SessionStore) Create(_ context.Context, ds model.DeviceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[ds.ID] = ds
	return nil
}

func (s *SessionStore) ListActive(_ context.Context, userID string) ([]model.DeviceSession, error) {
	s.mu.RLock()
	out := make([]model.DeviceSession, 0)
	for _, ds := range s.byID {
		if ds.UserID == userID && ds.Listed() {
			out = append(out, ds)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.After(out[j].LastUsedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) > 0
	})
	return out, nil
}

func (s *SessionStore) FindByID(_ context.Context, id string) (model.DeviceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.byID[id]
	if !ok {
		return model.DeviceSession{}, repository.ErrNotFound
	}
	return ds, nil
}

func (s *SessionStore) Revoke(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.byID[id]; ok {
		ds.Revoke(now)
		s.byID[id] = ds
	}
	return nil
}

func (s *SessionStore) RevokeAll(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ds := range s.byID {
		if ds.UserID == userID && !ds.Revoked {
			ds.Revoke(now)
			s.byID[id] = ds
		}
	}
	return nil
}
