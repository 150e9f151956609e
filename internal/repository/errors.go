// Package repository holds the MySQL-backed stores for identities, refresh
// tokens and device sessions. The sentinel errors below are shared with the
// in-memory stores so the service layer can treat both backends alike.
package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/auth-session-engine/internal/model"
)

// ErrNotFound is returned when a lookup matches no active row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting an identity whose email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateFingerprint is returned when a refresh-token fingerprint is
// inserted twice. It indicates a bug in token minting rather than a client
// error.
var ErrDuplicateFingerprint = errors.New("duplicate refresh token fingerprint")

// RotateFunc builds the replacement record during a rotation. It runs after
// the presented record has been revoked and before the rotation commits;
// returning an error aborts the whole rotation.
type RotateFunc func(ctx context.Context, current model.RefreshToken) (model.RefreshToken, error)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
