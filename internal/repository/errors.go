// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when an update or delete targets a row that
// does not exist. Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete cannot be performed because
// other rows still reference the target (e.g. a produto that appears
// in a pedido). Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUnknownColumn is returned when an update names a field the table
// has no column for.
var ErrUnknownColumn = errors.New("unknown column")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry = 1062
	mysqlRowReferenced  = 1451
)

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool  { return mysqlErrno(err) == mysqlDuplicateEntry }
func isReferenced(err error) bool { return mysqlErrno(err) == mysqlRowReferenced }
