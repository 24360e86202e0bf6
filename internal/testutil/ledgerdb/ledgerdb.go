// Package ledgerdb opens a migrated in-memory sqlite database for tests that
// need the real gorm unit of work.
package ledgerdb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/db"
	"escrow-ledger/pkg/id"
)

// Open returns a fresh database. The pool is pinned to one connection so the
// in-memory schema survives; code under test must not query outside its tx
// while a tx is open.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenGormWithDialector(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Dec parses s or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

// SeedAccount inserts an active account with the given balance and no ledger
// history; tests that check the ledger-sum rule should fund through a deposit.
func SeedAccount(t *testing.T, gdb *gorm.DB, balance string, opts ...func(*ledger.EscrowAccount)) *ledger.EscrowAccount {
	t.Helper()
	a := &ledger.EscrowAccount{
		ID:               id.NewID32(),
		OwnerID:          id.NewID32(),
		Type:             ledger.AccountTypeLoan,
		Status:           ledger.AccountStatusActive,
		Currency:         "IDR",
		CurrentBalance:   Dec(t, balance),
		AvailableBalance: Dec(t, balance),
		CreatedAt:        time.Now().UTC(),
	}
	for _, o := range opts {
		o(a)
	}
	if err := gdb.Create(a).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

// Account reloads an account outside any tx.
func Account(t *testing.T, gdb *gorm.DB, accountID string) ledger.EscrowAccount {
	t.Helper()
	var a ledger.EscrowAccount
	if err := gdb.Where("id = ?", accountID).First(&a).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	return a
}

// Transactions lists every transaction referencing accountID, oldest first.
func Transactions(t *testing.T, gdb *gorm.DB, accountID string) []ledger.Transaction {
	t.Helper()
	var txs []ledger.Transaction
	if err := gdb.Where("escrow_account_id = ?", accountID).Order("created_at ASC, id ASC").Find(&txs).Error; err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txs
}

// AssertBalanced fails unless the account satisfies its balance invariants and
// current balance equals the ledger sum.
func AssertBalanced(t *testing.T, gdb *gorm.DB, accountID string) {
	t.Helper()
	a := Account(t, gdb, accountID)
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("account invariants: %v", err)
	}
	if sum := ledger.LedgerSum(Transactions(t, gdb, accountID)); !sum.Equal(a.CurrentBalance) {
		t.Fatalf("ledger sum %s != current balance %s", sum, a.CurrentBalance)
	}
}
