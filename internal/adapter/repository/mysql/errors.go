package mysql

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"escrow-ledger/internal/domain/ledger"
)

// MySQL server error numbers that mean "retry with a fresh read".
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// translate maps driver and gorm errors onto the ledger taxonomy. what names
// the missing entity in NotFound messages.
func translate(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if what == "" {
			what = "record"
		}
		return ledger.NotFound(op, what)
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && (me.Number == errLockWaitTimeout || me.Number == errDeadlock) {
		return ledger.Wrap(ledger.KindConcurrencyConflict, op, err)
	}
	return err
}
