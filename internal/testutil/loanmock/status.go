package loanmock

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/port"
)

var _ port.LoanStatus = (*Status)(nil)

// Status is a function-backed mock that satisfies port.LoanStatus.
// Without GetLoanFn it serves Loans; without NotifyDisbursedFn it records the
// increments in Disbursed.
type Status struct {
	GetLoanFn         func(ctx context.Context, loanID string) (port.LoanSummary, error)
	NotifyDisbursedFn func(ctx context.Context, loanID string, incremental decimal.Decimal) error

	mu        sync.Mutex
	Loans     map[string]port.LoanSummary
	Disbursed map[string][]decimal.Decimal
}

// WithLoan registers a disbursable loan with the given principal.
func (m *Status) WithLoan(loanID, principal string) *Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Loans == nil {
		m.Loans = map[string]port.LoanSummary{}
	}
	m.Loans[loanID] = port.LoanSummary{
		LoanID:      loanID,
		Principal:   decimal.RequireFromString(principal),
		State:       "approved",
		Disbursable: true,
	}
	return m
}

func (m *Status) GetLoan(ctx context.Context, loanID string) (port.LoanSummary, error) {
	if m.GetLoanFn != nil {
		return m.GetLoanFn(ctx, loanID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Loans[loanID]
	if !ok {
		return port.LoanSummary{}, ledger.NotFound("loanmock.get", "loan")
	}
	return l, nil
}

func (m *Status) NotifyDisbursed(ctx context.Context, loanID string, incremental decimal.Decimal) error {
	if m.NotifyDisbursedFn != nil {
		return m.NotifyDisbursedFn(ctx, loanID, incremental)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disbursed == nil {
		m.Disbursed = map[string][]decimal.Decimal{}
	}
	m.Disbursed[loanID] = append(m.Disbursed[loanID], incremental)
	return nil
}

// Total sums the increments recorded for loanID.
func (m *Status) Total(loanID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, d := range m.Disbursed[loanID] {
		sum = sum.Add(d)
	}
	return sum
}
