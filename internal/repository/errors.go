// Package repository implements MySQL persistence for the payment
// ledger.  Shared error helpers live here so individual repositories
// stay focused on their queries.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user registration hits the unique
// email constraint.  Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// mysqlMissingTable is the server error number MySQL reports when a
// statement references a table that does not exist.
const mysqlMissingTable = 1146

// isTableMissing reports whether err is a "table does not exist" driver
// error.  Environments provisioned before the payments table was added
// hit this on history reads; callers treat it as an empty history
// instead of a hard failure.
func isTableMissing(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlMissingTable
}
