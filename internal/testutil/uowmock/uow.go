package uowmock

import (
	"context"
	"errors"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn         func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinAccountTxFn  func(ctx context.Context, accountID string, fn func(r uow.Repos, a *ledger.EscrowAccount) error) error
	WithinAccountsTxFn func(ctx context.Context, accountIDs []string, fn func(r uow.Repos, accts map[string]*ledger.EscrowAccount) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinAccountTx(fn func(context.Context, string, func(uow.Repos, *ledger.EscrowAccount) error) error) *UoW {
	m.WithinAccountTxFn = fn
	return m
}
func (m *UoW) WithWithinAccountsTx(fn func(context.Context, []string, func(uow.Repos, map[string]*ledger.EscrowAccount) error) error) *UoW {
	m.WithinAccountsTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Failing returns a UoW whose every method fails with err without running fn.
func Failing(err error) *UoW {
	return New().
		WithWithinTx(func(context.Context, func(uow.Repos) error) error { return err }).
		WithWithinAccountTx(func(context.Context, string, func(uow.Repos, *ledger.EscrowAccount) error) error { return err }).
		WithWithinAccountsTx(func(context.Context, []string, func(uow.Repos, map[string]*ledger.EscrowAccount) error) error { return err })
}

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinAccountTx(ctx context.Context, accountID string, fn func(r uow.Repos, a *ledger.EscrowAccount) error) error {
	if m.WithinAccountTxFn != nil {
		return m.WithinAccountTxFn(ctx, accountID, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinAccountsTx(ctx context.Context, accountIDs []string, fn func(r uow.Repos, accts map[string]*ledger.EscrowAccount) error) error {
	if m.WithinAccountsTxFn != nil {
		return m.WithinAccountsTxFn(ctx, accountIDs, fn)
	}
	return errUnimplemented
}
