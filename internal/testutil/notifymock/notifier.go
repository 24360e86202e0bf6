package notifymock

import (
	"context"
	"sync"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/port"
)

var _ port.Notifier = (*Notifier)(nil)

// Notifier records every event by name. Err, when set, is returned from
// every call after recording it.
type Notifier struct {
	Err error

	mu     sync.Mutex
	events []string
}

func (n *Notifier) record(name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, name)
	return n.Err
}

// Events returns the recorded event names in call order.
func (n *Notifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// Count reports how many times name was recorded.
func (n *Notifier) Count(name string) int {
	c := 0
	for _, e := range n.Events() {
		if e == name {
			c++
		}
	}
	return c
}

func (n *Notifier) NotifyTransaction(context.Context, ledger.Transaction) error {
	return n.record("transaction")
}
func (n *Notifier) NotifyPayoutCreated(context.Context, payout.Request) error {
	return n.record("payout_created")
}
func (n *Notifier) NotifyPayoutApproved(context.Context, payout.Request) error {
	return n.record("payout_approved")
}
func (n *Notifier) NotifyPayoutCompleted(context.Context, payout.Request) error {
	return n.record("payout_completed")
}
func (n *Notifier) NotifyPayoutRejected(context.Context, payout.Request) error {
	return n.record("payout_rejected")
}
func (n *Notifier) NotifyDisbursementCreated(context.Context, disbursement.Disbursement) error {
	return n.record("disbursement_created")
}
func (n *Notifier) NotifyDisbursementApproved(context.Context, disbursement.Disbursement) error {
	return n.record("disbursement_approved")
}
func (n *Notifier) NotifyDisbursementCompleted(context.Context, disbursement.Disbursement) error {
	return n.record("disbursement_completed")
}
