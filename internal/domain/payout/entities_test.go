package payout

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusApproved, StatusProcessing},
		{StatusApproved, StatusFailed},
		{StatusApproved, StatusCancelled},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, e := range allowed {
		if !CanTransition(e[0], e[1]) {
			t.Fatalf("%s -> %s should be allowed", e[0], e[1])
		}
	}

	denied := [][2]Status{
		{StatusApproved, StatusPending},
		{StatusProcessing, StatusCancelled},
		{StatusCompleted, StatusFailed},
		{StatusRejected, StatusApproved},
		{StatusPending, StatusProcessing},
	}
	for _, e := range denied {
		if CanTransition(e[0], e[1]) {
			t.Fatalf("%s -> %s should be denied", e[0], e[1])
		}
	}
}

func TestMethodExternal(t *testing.T) {
	if MethodWallet.External() {
		t.Fatal("wallet payouts stay on-platform")
	}
	for _, m := range []Method{MethodBankTransfer, MethodMobileMoney, MethodCard} {
		if !m.External() {
			t.Fatalf("%s should be external", m)
		}
	}
}
