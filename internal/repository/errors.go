// Package repository defines the MySQL-backed stores for users and registry
// records together with the sentinel errors that let higher layers tell the
// failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrUsernameExists is returned by UserRepo.Create when the unique index on
// username rejects the insert.  Handlers translate it into HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrRecordNotFound is returned when an update or delete matched no row.
var ErrRecordNotFound = errors.New("record not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
