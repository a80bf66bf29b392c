// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish failure
// scenarios without inspecting SQL errors. Conflicts wrap ErrConflict so a
// single errors.Is check maps every one of them to HTTP 409.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an operation cannot proceed because of the
// current state of a record.
var ErrConflict = errors.New("conflict")

var (
	ErrUnitNotFound = errors.New("unit not found")
	ErrStayNotFound = errors.New("stay not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

var (
	ErrUnitOccupied   = fmt.Errorf("%w: unit already occupied", ErrConflict)
	ErrStayCompleted  = fmt.Errorf("%w: stay already completed", ErrConflict)
	ErrUsernameExists = fmt.Errorf("%w: username already exists", ErrConflict)
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
