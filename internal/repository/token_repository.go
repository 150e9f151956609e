package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/auth-session-engine/internal/autherr"
	"github.com/iliyamo/auth-session-engine/internal/model"
)

// TokenRepo persists refresh-token records keyed by fingerprint
// (unique 'token_hash' column).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const selectTokenSQL = `SELECT id, user_id, token_hash, expires_at, revoked, created_at, updated_at, deleted_at FROM refresh_tokens`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Put inserts a new active record.
func (r *TokenRepo) Put(ctx context.Context, rec model.RefreshToken) error {
	return insertToken(ctx, r.DB, rec)
}

func insertToken(ctx context.Context, db execer, rec model.RefreshToken) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at, updated_at, deleted_at) VALUES (?,?,?,?,?,?,?,?)",
		rec.ID, rec.UserID, rec.Fingerprint, rec.ExpiresAt, rec.Revoked, rec.CreatedAt, rec.UpdatedAt, rec.DeletedAtPtr())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateFingerprint
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindByFingerprint returns the record regardless of its state.
func (r *TokenRepo) FindByFingerprint(ctx context.Context, fingerprint string) (model.RefreshToken, error) {
	rec, err := scanToken(r.DB.QueryRowContext(ctx, selectTokenSQL+" WHERE token_hash = ? LIMIT 1", fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return rec, err
}

// Revoke marks one record revoked. Revoking twice is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, id string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE id = ? AND revoked = 0",
		now.UTC(), id)
	return err
}

// RevokeAllForSubject revokes every active record of the user and returns
// how many changed.
func (r *TokenRepo) RevokeAllForSubject(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0",
		now.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rotate runs the single-use rotation protocol in one transaction. The
// presented row is locked with SELECT ... FOR UPDATE and revoked with a
// conditional UPDATE, so of two concurrent rotations on the same
// fingerprint only one reaches next; the other sees TokenRevoked.
func (r *TokenRepo) Rotate(ctx context.Context, fingerprint string, now time.Time, next RotateFunc) (model.RefreshToken, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.RefreshToken{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanToken(tx.QueryRowContext(ctx,
		selectTokenSQL+" WHERE token_hash = ? LIMIT 1 FOR UPDATE", fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, autherr.NewInvalidToken()
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("lock refresh token: %w", err)
	}
	switch cur.Status(now) {
	case model.TokenExpired:
		return model.RefreshToken{}, autherr.NewTokenExpired()
	case model.TokenRevoked:
		return model.RefreshToken{}, autherr.NewTokenRevoked()
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE id = ? AND revoked = 0",
		now.UTC(), cur.ID)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.RefreshToken{}, err
	} else if n == 0 {
		return model.RefreshToken{}, autherr.NewTokenRevoked()
	}
	cur.Revoke(now)

	repl, err := next(ctx, cur)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if err := insertToken(ctx, tx, repl); err != nil {
		return model.RefreshToken{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.RefreshToken{}, err
	}
	return repl, nil
}

func scanToken(row *sql.Row) (model.RefreshToken, error) {
	var (
		rec       model.RefreshToken
		deletedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Fingerprint, &rec.ExpiresAt, &rec.Revoked,
		&rec.CreatedAt, &rec.UpdatedAt, &deletedAt); err != nil {
		return model.RefreshToken{}, err
	}
	rec.SetDeletedAt(nullTimePtr(deletedAt))
	return rec, nil
}
