package model

import "time"

// DeviceSession is a visible login event kept in `device_sessions`.  Its
// lifecycle is independent of refresh tokens: revoking one does not touch
// the other.
//
// Fields:
//  ID         – ULID session id.
//  UserID     – owning identity.
//  IPAddress  – client address at creation.
//  UserAgent  – raw User-Agent header.
//  DeviceName – label derived from UserAgent.
//  OS         – label derived from UserAgent.
//  LastUsedAt – drives most-recent-first ordering.
//  Revoked    – set by explicit session revocation.
type DeviceSession struct {
    ID         string
    UserID     string
    IPAddress  string
    UserAgent  string
    DeviceName string
    OS         string
    LastUsedAt time.Time
    Revoked    bool
    Lifecycle
}

func (s *DeviceSession) OnCreate(now time.Time) {
    s.Lifecycle.OnCreate(now)
    s.LastUsedAt = now.UTC()
}

func (s *DeviceSession) Revoke(now time.Time) {
    if s.Revoked {
        return
    }
    s.Revoked = true
    s.OnUpdate(now)
}

// Listed reports whether the session shows up in active listings.
func (s DeviceSession) Listed() bool { return !s.Revoked && !s.IsDeleted() }
