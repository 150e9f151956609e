package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/auth-session-engine/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const selectUserSQL = `SELECT u.id, u.email, u.password_hash, u.display_name, u.created_at, u.updated_at, u.deleted_at,
 COALESCE(GROUP_CONCAT(r.role ORDER BY r.role SEPARATOR ','), '')
 FROM users u LEFT JOIN user_roles r ON r.user_id = u.id`

// Create inserts the identity and its roles in one transaction.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, created_at, updated_at, deleted_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt, u.UpdatedAt, u.DeletedAtPtr())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	for _, role := range model.RoleNames(u.Roles) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role) VALUES (?,?)", u.ID, role); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
	}
	return tx.Commit()
}

// FindActiveByEmail fetches a non-deleted user by normalized email.
func (r *UserRepo) FindActiveByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, " WHERE u.email = ? AND u.deleted_at IS NULL GROUP BY u.id", email)
}

// FindActiveByID fetches a non-deleted user by id.
func (r *UserRepo) FindActiveByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, " WHERE u.id = ? AND u.deleted_at IS NULL GROUP BY u.id", id)
}

// ExistsActiveByEmail reports whether a non-deleted user owns the email.
func (r *UserRepo) ExistsActiveByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE email = ? AND deleted_at IS NULL", email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg any) (model.User, error) {
	var (
		u         model.User
		deletedAt sql.NullTime
		roles     string
	)
	err := r.DB.QueryRowContext(ctx, selectUserSQL+where, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt, &deletedAt, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.SetDeletedAt(nullTimePtr(deletedAt))
	for _, name := range strings.Split(roles, ",") {
		if role, ok := model.ParseRole(name); ok {
			u.Roles = append(u.Roles, role)
		}
	}
	if len(u.Roles) == 0 {
		u.Roles = model.DefaultRoles()
	}
	return u, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
