package payout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"escrow-ledger/internal/adapter/repository/mysql"
	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/port"
	"escrow-ledger/internal/testutil/gatewaymock"
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
	gw  *gatewaymock.Gateway
	ntf *notifymock.Notifier
}

func newEnv(t *testing.T, cfg Config) *env {
	t.Helper()
	db := ledgerdb.Open(t)
	e := &env{db: db, gw: gatewaymock.Succeeding(), ntf: &notifymock.Notifier{}}
	deps := usecase.Deps{UoW: mysql.NewGormUoW(db), Gateway: e.gw, Notifier: e.ntf}
	e.uc = NewUsecase(deps, cfg)
	e.rec = ledger.NewUsecase(deps, ledger.Config{})
	return e
}

func (e *env) account(t *testing.T, amount string) *domain.EscrowAccount {
	t.Helper()
	a := ledgerdb.SeedAccount(t, e.db, "0")
	if d := dec(amount); d.IsPositive() {
		if _, err := e.rec.Deposit(context.Background(), ledger.DepositInput{AccountID: a.ID, Amount: d}); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}
	return a
}

func (e *env) approved(t *testing.T, acct *domain.EscrowAccount, amount string, method payout.Method) *payout.Request {
	t.Helper()
	ctx := context.Background()
	p, err := e.uc.Create(ctx, CreateInput{
		UserID:          acct.OwnerID,
		EscrowAccountID: &acct.ID,
		Type:            payout.TypeWithdrawal,
		Amount:          dec(amount),
		Method:          method,
		Recipient:       payout.Recipient{Name: "Siti", AccountNumber: "1234567890", BankCode: "014"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p, err = e.uc.Approve(ctx, p.ID, ApproveInput{ApproverID: id.NewID32()}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return p
}

func TestConfigFee(t *testing.T) {
	tests := []struct {
		cfg    Config
		amount string
		want   string
	}{
		{Config{}, "100", "0"},
		{Config{FeePercent: dec("1.5")}, "200", "3"},
		{Config{FeeFixed: dec("2500")}, "100000", "2500"},
		{Config{FeePercent: dec("0.5"), FeeFixed: dec("1")}, "10.01", "1.05"},
	}
	for _, tc := range tests {
		if got := tc.cfg.Fee(dec(tc.amount)); !got.Equal(dec(tc.want)) {
			t.Fatalf("Fee(%s) with %+v = %s, want %s", tc.amount, tc.cfg, got, tc.want)
		}
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{FeePercent: dec("1"), FeeFixed: dec("0.50")})
	acct := e.account(t, "100")
	frozen := ledgerdb.SeedAccount(t, e.db, "0", func(a *domain.EscrowAccount) { a.Status = domain.AccountStatusFrozen })
	missing := id.NewID32()

	base := func() CreateInput {
		return CreateInput{
			UserID:          acct.OwnerID,
			EscrowAccountID: &acct.ID,
			Type:            payout.TypeWithdrawal,
			Amount:          dec("50"),
			Method:          payout.MethodBankTransfer,
			Recipient:       payout.Recipient{Name: "Budi"},
		}
	}

	tests := []struct {
		name   string
		mutate func(in *CreateInput)
		want   error
	}{
		{"ok", func(*CreateInput) {}, nil},
		{"wallet needs no recipient", func(in *CreateInput) { in.Method = payout.MethodWallet; in.Recipient = payout.Recipient{} }, nil},
		{"unlinked", func(in *CreateInput) { in.EscrowAccountID = nil; in.Amount = dec("1000000") }, nil},
		{"zero amount", func(in *CreateInput) { in.Amount = decimal.Zero }, domain.ErrValidation},
		{"fee swallows amount", func(in *CreateInput) { in.Amount = dec("0.50") }, domain.ErrValidation},
		{"unknown method", func(in *CreateInput) { in.Method = "cheque" }, domain.ErrValidation},
		{"unknown type", func(in *CreateInput) { in.Type = "bonus" }, domain.ErrValidation},
		{"missing recipient", func(in *CreateInput) { in.Recipient = payout.Recipient{} }, domain.ErrValidation},
		{"over balance", func(in *CreateInput) { in.Amount = dec("100.01") }, domain.ErrInsufficientFunds},
		{"frozen account", func(in *CreateInput) { in.EscrowAccountID = &frozen.ID }, domain.ErrInvalidState},
		{"missing account", func(in *CreateInput) { in.EscrowAccountID = &missing }, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			p, err := e.uc.Create(ctx, in)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("err = %v, want %v", err, tc.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if p.Status != payout.StatusPending || p.Number == "" {
				t.Fatalf("unexpected payout: %+v", p)
			}
			if !p.NetAmount.Equal(p.Amount.Sub(p.Fee)) || !p.NetAmount.IsPositive() {
				t.Fatalf("net = %s, amount = %s, fee = %s", p.NetAmount, p.Amount, p.Fee)
			}
		})
	}
	// creating a payout never moves money
	if got := ledgerdb.Account(t, e.db, acct.ID); !got.CurrentBalance.Equal(dec("100")) {
		t.Fatalf("balance moved on create: %s", got.CurrentBalance)
	}
}

func TestApproveRejectCancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "100")

	mk := func() *payout.Request {
		p, err := e.uc.Create(ctx, CreateInput{UserID: acct.OwnerID, EscrowAccountID: &acct.ID, Type: payout.TypeWithdrawal, Amount: dec("40"), Method: payout.MethodWallet})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return p
	}

	p := mk()
	if _, err := e.uc.Approve(ctx, p.ID, ApproveInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("approve without approver: %v", err)
	}
	approved, err := e.uc.Approve(ctx, p.ID, ApproveInput{ApproverID: "admin", Notes: "ok"})
	if err != nil || approved.Status != payout.StatusApproved || approved.ApprovedAt == nil || approved.ApprovedBy != "admin" {
		t.Fatalf("Approve = %+v, %v", approved, err)
	}
	if _, err := e.uc.Approve(ctx, p.ID, ApproveInput{ApproverID: "admin"}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second approve: want InvalidState, got %v", err)
	}
	if _, err := e.uc.Reject(ctx, p.ID, "late"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("reject approved: want InvalidState, got %v", err)
	}
	cancelled, err := e.uc.Cancel(ctx, p.ID, "changed mind")
	if err != nil || cancelled.Status != payout.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("Cancel approved = %+v, %v", cancelled, err)
	}
	if _, err := e.uc.Process(ctx, p.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("process cancelled: want InvalidState, got %v", err)
	}

	r := mk()
	rejected, err := e.uc.Reject(ctx, r.ID, "suspicious")
	if err != nil || rejected.Status != payout.StatusRejected || rejected.RejectionReason != "suspicious" {
		t.Fatalf("Reject = %+v, %v", rejected, err)
	}
	if _, err := e.uc.Cancel(ctx, r.ID, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("cancel rejected: want InvalidState, got %v", err)
	}

	// balance drained between create and approve
	late := mk()
	if _, err := e.rec.Withdraw(ctx, ledger.WithdrawInput{AccountID: acct.ID, Amount: dec("70")}); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if _, err := e.uc.Approve(ctx, late.ID, ApproveInput{ApproverID: "admin"}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("approve over balance: want InsufficientFunds, got %v", err)
	}

	for _, name := range []string{"payout_created", "payout_approved", "payout_rejected"} {
		if e.ntf.Count(name) == 0 {
			t.Fatalf("missing %s notification in %v", name, e.ntf.Events())
		}
	}
}

func TestProcess_ExternalSuccess(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{FeePercent: dec("2")})
	acct := e.account(t, "500")
	var sent port.PayoutRequest
	e.gw.ProcessPayoutFn = func(_ context.Context, req port.PayoutRequest) (port.PaymentResult, error) {
		sent = req
		return port.PaymentResult{TransactionID: "po_123", Status: port.GatewaySucceeded}, nil
	}

	p := e.approved(t, acct, "200", payout.MethodBankTransfer)
	done, err := e.uc.Process(ctx, p.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if done.Status != payout.StatusCompleted || done.ExternalRef != "po_123" || done.CompletedAt == nil || done.TransactionID == nil {
		t.Fatalf("processed payout = %+v", done)
	}
	if !sent.Amount.Equal(dec("196")) || sent.Recipient.Name != "Siti" {
		t.Fatalf("processor got %+v, want net 196", sent)
	}
	if got := ledgerdb.Account(t, e.db, acct.ID); !got.CurrentBalance.Equal(dec("300")) {
		t.Fatalf("balance = %s, want 300", got.CurrentBalance)
	}
	ledgerdb.AssertBalanced(t, e.db, acct.ID)
	if e.ntf.Count("payout_completed") != 1 {
		t.Fatalf("events = %v", e.ntf.Events())
	}
}

func TestProcess_TwiceDoesNotDoubleWithdraw(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "500")
	p := e.approved(t, acct, "200", payout.MethodMobileMoney)

	if _, err := e.uc.Process(ctx, p.ID); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if _, err := e.uc.Process(ctx, p.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second Process: want InvalidState, got %v", err)
	}
	if got := ledgerdb.Account(t, e.db, acct.ID); !got.CurrentBalance.Equal(dec("300")) {
		t.Fatalf("balance = %s, want a single withdrawal", got.CurrentBalance)
	}
	if e.gw.Calls("ProcessPayout") != 1 {
		t.Fatalf("processor called %d times", e.gw.Calls("ProcessPayout"))
	}
	var n int64
	e.db.Model(&domain.Transaction{}).Where("type = ?", domain.TxWithdrawal).Count(&n)
	if n != 1 {
		t.Fatalf("withdrawals = %d, want 1", n)
	}
}

func TestProcess_ConcurrentCallersWithdrawOnce(t *testing.T) {
	for _, callers := range []int{2, 5, 12} {
		e := newEnv(t, Config{})
		acct := e.account(t, "500")
		p := e.approved(t, acct, "200", payout.MethodBankTransfer)

		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = e.uc.Process(context.Background(), p.ID)
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case !errors.Is(err, domain.ErrInvalidState):
				t.Fatalf("callers=%d: unexpected error: %v", callers, err)
			}
		}
		if ok != 1 {
			t.Fatalf("callers=%d: %d calls processed the payout, want 1", callers, ok)
		}
		var n int64
		e.db.Model(&domain.Transaction{}).Where("type = ?", domain.TxWithdrawal).Count(&n)
		if n != 1 {
			t.Fatalf("callers=%d: withdrawals = %d, want 1", callers, n)
		}
		if e.gw.Calls("ProcessPayout") != 1 {
			t.Fatalf("callers=%d: processor called %d times", callers, e.gw.Calls("ProcessPayout"))
		}
		if got := ledgerdb.Account(t, e.db, acct.ID); !got.CurrentBalance.Equal(dec("300")) {
			t.Fatalf("callers=%d: balance = %s, want 300", callers, got.CurrentBalance)
		}
		ledgerdb.AssertBalanced(t, e.db, acct.ID)
	}
}

func TestProcess_ProcessorFailureKeepsWithdrawal(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, port.PayoutRequest) (port.PaymentResult, error)
	}{
		{"error", func(context.Context, port.PayoutRequest) (port.PaymentResult, error) {
			return port.PaymentResult{}, errors.New("connection reset")
		}},
		{"declined", func(context.Context, port.PayoutRequest) (port.PaymentResult, error) {
			return port.PaymentResult{TransactionID: "po_declined", Status: port.GatewayFailed}, nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t, Config{})
			acct := e.account(t, "100")
			e.gw.ProcessPayoutFn = tc.fn
			p := e.approved(t, acct, "60", payout.MethodCard)

			got, err := e.uc.Process(ctx, p.ID)
			if err != nil {
				t.Fatalf("processor failure must not surface as an error: %v", err)
			}
			if got.Status != payout.StatusFailed || got.FailureReason == "" {
				t.Fatalf("payout = %+v", got)
			}
			// funds have left escrow; reconciliation is an operational task
			if a := ledgerdb.Account(t, e.db, acct.ID); !a.CurrentBalance.Equal(dec("40")) {
				t.Fatalf("balance = %s, want 40", a.CurrentBalance)
			}
			ledgerdb.AssertBalanced(t, e.db, acct.ID)
			if e.ntf.Count("payout_completed") != 0 {
				t.Fatalf("failed payout announced as completed")
			}
		})
	}
}

func TestProcess_InsufficientAtProcessing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "100")
	p := e.approved(t, acct, "80", payout.MethodBankTransfer)
	if _, err := e.rec.Withdraw(ctx, ledger.WithdrawInput{AccountID: acct.ID, Amount: dec("50")}); err != nil {
		t.Fatalf("drain: %v", err)
	}

	got, err := e.uc.Process(ctx, p.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got.Status != payout.StatusFailed || got.TransactionID != nil {
		t.Fatalf("payout = %+v", got)
	}
	if e.gw.Calls("ProcessPayout") != 0 {
		t.Fatalf("processor called for an unfunded payout")
	}
	if a := ledgerdb.Account(t, e.db, acct.ID); !a.CurrentBalance.Equal(dec("50")) {
		t.Fatalf("balance = %s, want 50", a.CurrentBalance)
	}
}

func TestProcess_FrozenAccountLeavesPayoutApproved(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "100")
	p := e.approved(t, acct, "10", payout.MethodBankTransfer)
	e.db.Model(&domain.EscrowAccount{}).Where("id = ?", acct.ID).Update("status", domain.AccountStatusFrozen)

	if _, err := e.uc.Process(ctx, p.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("want InvalidState, got %v", err)
	}
	got, _ := e.uc.Get(ctx, p.ID)
	if got.Status != payout.StatusApproved {
		t.Fatalf("status = %s, want approved for a later retry", got.Status)
	}
}

func TestProcess_WalletSkipsProcessor(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "100")
	p := e.approved(t, acct, "25", payout.MethodWallet)

	got, err := e.uc.Process(ctx, p.ID)
	if err != nil || got.Status != payout.StatusCompleted {
		t.Fatalf("Process = %+v, %v", got, err)
	}
	if e.gw.Calls("ProcessPayout") != 0 {
		t.Fatalf("wallet payout reached the processor")
	}
}

func TestProcessApproved(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	acct := e.account(t, "100")

	// 30+50+40 exceeds the balance, so whichever runs last fails
	ids := []string{
		e.approved(t, acct, "30", payout.MethodWallet).ID,
		e.approved(t, acct, "50", payout.MethodWallet).ID,
		e.approved(t, acct, "40", payout.MethodWallet).ID,
	}
	_, _ = e.uc.Create(ctx, CreateInput{UserID: acct.OwnerID, Type: payout.TypeRefund, Amount: dec("1"), Method: payout.MethodWallet})

	res, err := e.uc.ProcessApproved(ctx, 0)
	if err != nil {
		t.Fatalf("ProcessApproved: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	byStatus := map[payout.Status]int{}
	for _, pid := range ids {
		got, _ := e.uc.Get(ctx, pid)
		byStatus[got.Status]++
		if got.Status == payout.StatusFailed && res.Errors[0].ID != pid {
			t.Fatalf("error reported for %s, failed payout is %s", res.Errors[0].ID, pid)
		}
	}
	if byStatus[payout.StatusCompleted] != 2 || byStatus[payout.StatusFailed] != 1 {
		t.Fatalf("statuses = %v", byStatus)
	}
	if left, _ := e.uc.ListByStatus(ctx, payout.StatusApproved, 0); len(left) != 0 {
		t.Fatalf("approved left after sweep: %d", len(left))
	}
	ledgerdb.AssertBalanced(t, e.db, acct.ID)
}
