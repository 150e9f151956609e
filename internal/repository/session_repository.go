package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/auth-session-engine/internal/model"
)

// SessionRepo stores device sessions in `device_sessions`.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const selectSessionSQL = `SELECT id, user_id, ip_address, user_agent, device_name, os, last_used_at, revoked, created_at, updated_at, deleted_at FROM device_sessions`

func (r *SessionRepo) Create(ctx context.Context, s model.DeviceSession) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO device_sessions (id, user_id, ip_address, user_agent, device_name, os, last_used_at, revoked, created_at, updated_at, deleted_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		s.ID, s.UserID, s.IPAddress, s.UserAgent, s.DeviceName, s.OS, s.LastUsedAt, s.Revoked, s.CreatedAt, s.UpdatedAt, s.DeletedAtPtr())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListActive returns non-revoked, non-deleted sessions, most recently used
// first. Ties on last_used_at fall back to the (time-ordered) id.
func (r *SessionRepo) ListActive(ctx context.Context, userID string) ([]model.DeviceSession, error) {
	rows, err := r.DB.QueryContext(ctx,
		selectSessionSQL+" WHERE user_id = ? AND revoked = 0 AND deleted_at IS NULL ORDER BY last_used_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DeviceSession, 0)
	for rows.Next() {
		var (
			s         model.DeviceSession
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.DeviceName, &s.OS,
			&s.LastUsedAt, &s.Revoked, &s.CreatedAt, &s.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		s.SetDeletedAt(nullTimePtr(deletedAt))
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindByID returns the session in any state.
func (r *SessionRepo) FindByID(ctx context.Context, id string) (model.DeviceSession, error) {
	var (
		s         model.DeviceSession
		deletedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, selectSessionSQL+" WHERE id = ? LIMIT 1", id).Scan(
		&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.DeviceName, &s.OS,
		&s.LastUsedAt, &s.Revoked, &s.CreatedAt, &s.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DeviceSession{}, ErrNotFound
	}
	if err != nil {
		return model.DeviceSession{}, err
	}
	s.SetDeletedAt(nullTimePtr(deletedAt))
	return s, nil
}

// Revoke marks one session revoked; unknown ids are ignored.
func (r *SessionRepo) Revoke(ctx context.Context, id string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE device_sessions SET revoked = 1, updated_at = ? WHERE id = ? AND revoked = 0",
		now.UTC(), id)
	return err
}

// RevokeAll marks every session of the user revoked.
func (r *SessionRepo) RevokeAll(ctx context.Context, userID string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE device_sessions SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0",
		now.UTC(), userID)
	return err
}
