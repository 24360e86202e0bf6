package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"escrow-ledger/internal/adapter/repository/mysql"
	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/testutil/ledgerdb"
	"escrow-ledger/internal/testutil/notifymock"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/pkg/id"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	db  *gorm.DB
	uc  *Usecase
	rec *ledger.Usecase
	ntf *notifymock.Notifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := ledgerdb.Open(t)
	ntf := &notifymock.Notifier{}
	deps := usecase.Deps{UoW: mysql.NewGormUoW(db), Notifier: ntf}
	return &env{db: db, uc: NewUsecase(deps), rec: ledger.NewUsecase(deps, ledger.Config{}), ntf: ntf}
}

// funded seeds an account and funds it through a deposit so the ledger sum holds.
func (e *env) funded(t *testing.T, amount string, opts ...func(*domain.EscrowAccount)) *domain.EscrowAccount {
	t.Helper()
	a := ledgerdb.SeedAccount(t, e.db, "0", opts...)
	if d := dec(amount); d.IsPositive() {
		if _, err := e.rec.Deposit(context.Background(), ledger.DepositInput{AccountID: a.ID, Amount: d}); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}
	return a
}

func TestScenarioD_Transfer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.funded(t, "300.00")
	b := e.funded(t, "0")

	res, err := e.uc.Transfer(ctx, Input{FromID: a.ID, ToID: b.ID, Amount: dec("300.00"), Description: "rebalance"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := ledgerdb.Account(t, e.db, a.ID); !got.CurrentBalance.IsZero() || !got.AvailableBalance.IsZero() {
		t.Fatalf("source balance = %s/%s, want 0", got.CurrentBalance, got.AvailableBalance)
	}
	if got := ledgerdb.Account(t, e.db, b.ID); !got.CurrentBalance.Equal(dec("300")) {
		t.Fatalf("target balance = %s, want 300", got.CurrentBalance)
	}

	var legs []domain.Transaction
	e.db.Where("type = ?", domain.TxTransfer).Find(&legs)
	if len(legs) != 2 {
		t.Fatalf("transfer legs = %d, want 2", len(legs))
	}
	byID := map[string]domain.Transaction{}
	for _, l := range legs {
		byID[l.ID] = l
		if l.Metadata[domain.MetaTransferID] != res.TransferID {
			t.Fatalf("leg %s transfer id = %v", l.ID, l.Metadata[domain.MetaTransferID])
		}
	}
	debit, credit := byID[res.Debit.ID], byID[res.Credit.ID]
	if debit.Direction != domain.Debit || *debit.EscrowAccountID != a.ID {
		t.Fatalf("debit leg = %+v", debit)
	}
	if credit.Direction != domain.Credit || *credit.EscrowAccountID != b.ID {
		t.Fatalf("credit leg = %+v", credit)
	}
	if debit.Metadata[domain.MetaCounterpartTxID] != credit.ID || credit.Metadata[domain.MetaCounterpartTxID] != debit.ID {
		t.Fatalf("legs do not reference each other: %v / %v", debit.Metadata, credit.Metadata)
	}
	if credit.Metadata[domain.MetaCounterpartAccount] != a.ID {
		t.Fatalf("credit counterpart account = %v", credit.Metadata[domain.MetaCounterpartAccount])
	}

	ledgerdb.AssertBalanced(t, e.db, a.ID)
	ledgerdb.AssertBalanced(t, e.db, b.ID)
	// one funding deposit plus both legs
	if e.ntf.Count("transaction") != 3 {
		t.Fatalf("notifications = %v", e.ntf.Events())
	}
}

func TestTransfer_Atomicity(t *testing.T) {
	limit := dec("100")
	tests := []struct {
		name   string
		target func(e *env, t *testing.T) *domain.EscrowAccount
		want   error
	}{
		{
			name: "frozen target",
			target: func(e *env, t *testing.T) *domain.EscrowAccount {
				return e.funded(t, "0", func(a *domain.EscrowAccount) { a.Status = domain.AccountStatusFrozen })
			},
			want: domain.ErrInvalidState,
		},
		{
			name: "target at its maximum",
			target: func(e *env, t *testing.T) *domain.EscrowAccount {
				return e.funded(t, "90", func(a *domain.EscrowAccount) { a.MaximumBalance = &limit })
			},
			want: domain.ErrLimitExceeded,
		},
		{
			name: "closed target",
			target: func(e *env, t *testing.T) *domain.EscrowAccount {
				return e.funded(t, "0", func(a *domain.EscrowAccount) { a.Status = domain.AccountStatusClosed })
			},
			want: domain.ErrInvalidState,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			src := e.funded(t, "50")
			dst := tc.target(e, t)
			dstBefore := ledgerdb.Account(t, e.db, dst.ID)

			if _, err := e.uc.Transfer(ctx, Input{FromID: src.ID, ToID: dst.ID, Amount: dec("20")}); !errors.Is(err, tc.want) {
				t.Fatalf("Transfer err = %v, want %v", err, tc.want)
			}

			// the debit leg must not survive the failed credit
			if got := ledgerdb.Account(t, e.db, src.ID); !got.CurrentBalance.Equal(dec("50")) {
				t.Fatalf("source balance = %s, want 50", got.CurrentBalance)
			}
			if got := ledgerdb.Account(t, e.db, dst.ID); !got.CurrentBalance.Equal(dstBefore.CurrentBalance) {
				t.Fatalf("target balance moved: %s", got.CurrentBalance)
			}
			var n int64
			e.db.Model(&domain.Transaction{}).Where("type = ?", domain.TxTransfer).Count(&n)
			if n != 0 {
				t.Fatalf("transfer rows written: %d", n)
			}
			ledgerdb.AssertBalanced(t, e.db, src.ID)
		})
	}
}

func TestTransfer_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.funded(t, "100")
	b := e.funded(t, "0")

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"same account", Input{FromID: a.ID, ToID: a.ID, Amount: dec("1")}, domain.ErrValidation},
		{"zero amount", Input{FromID: a.ID, ToID: b.ID, Amount: decimal.Zero}, domain.ErrValidation},
		{"negative amount", Input{FromID: a.ID, ToID: b.ID, Amount: dec("-5")}, domain.ErrValidation},
		{"missing source", Input{ToID: b.ID, Amount: dec("1")}, domain.ErrValidation},
		{"insufficient funds", Input{FromID: a.ID, ToID: b.ID, Amount: dec("100.01")}, domain.ErrInsufficientFunds},
		{"unknown target", Input{FromID: a.ID, ToID: id.NewID32(), Amount: dec("1")}, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.uc.Transfer(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if got := ledgerdb.Account(t, e.db, a.ID); !got.CurrentBalance.Equal(dec("100")) {
		t.Fatalf("source moved: %s", got.CurrentBalance)
	}
}

func TestTransfer_BothDirectionsKeepLedgerBalanced(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.funded(t, "500")
	b := e.funded(t, "500")

	for i, amt := range []string{"120.10", "80", "0.01", "250"} {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		if _, err := e.uc.Transfer(ctx, Input{FromID: from.ID, ToID: to.ID, Amount: dec(amt)}); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}
	ga, gb := ledgerdb.Account(t, e.db, a.ID), ledgerdb.Account(t, e.db, b.ID)
	if !ga.CurrentBalance.Add(gb.CurrentBalance).Equal(dec("1000")) {
		t.Fatalf("money created or destroyed: %s + %s", ga.CurrentBalance, gb.CurrentBalance)
	}
	ledgerdb.AssertBalanced(t, e.db, a.ID)
	ledgerdb.AssertBalanced(t, e.db, b.ID)
}
