// Package repository holds the MySQL data access code.  The sentinel
// errors below let handlers tell failure kinds apart without looking at
// driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/trekker-booking/internal/ledger"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed because
// of dependent rows, such as deleting a room that still has active
// reservations.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// MySQL server error numbers that mean another transaction held the row.
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
)

// mapDBError turns lock wait timeouts and deadlocks into
// ledger.ErrContention so callers can ask the client to retry.
func mapDBError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %s", ledger.ErrContention, me.Message)
		case errDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		}
	}
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
