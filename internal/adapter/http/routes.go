package http

import "github.com/labstack/echo/v4"

type Handlers struct {
	Health         *Handler
	Escrow         *EscrowHandler
	Transactions   *TransactionHandler
	Transfers      *TransferHandler
	Payouts        *PayoutHandler
	Disbursements  *DisbursementHandler
	PaymentMethods *PaymentMethodHandler
}

// Register mounts the API under /v1. mw applies to the /v1 group only, so the
// health check and the processor webhook stay outside idempotency checks.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)
	e.POST("/webhooks/gateway", h.Transactions.Webhook)

	v1 := e.Group("/v1", mw...)

	v1.POST("/escrow-accounts", h.Escrow.Open)
	v1.GET("/escrow-accounts/summary", h.Escrow.Summary)
	v1.GET("/escrow-accounts/:account_id", h.Escrow.Get)
	v1.POST("/escrow-accounts/:account_id/activate", h.Escrow.Activate)
	v1.POST("/escrow-accounts/:account_id/freeze", h.Escrow.Freeze)
	v1.POST("/escrow-accounts/:account_id/unfreeze", h.Escrow.Unfreeze)
	v1.POST("/escrow-accounts/:account_id/close", h.Escrow.Close)
	v1.GET("/escrow-accounts/:account_id/reconciliation", h.Escrow.Reconcile)
	v1.GET("/loans/:loan_id/escrow-accounts", h.Escrow.ListByLoan)

	v1.POST("/escrow-accounts/:account_id/deposits", h.Transactions.Deposit)
	v1.POST("/escrow-accounts/:account_id/withdrawals", h.Transactions.Withdraw)
	v1.POST("/escrow-accounts/:account_id/charges", h.Transactions.Charge)
	v1.GET("/transactions", h.Transactions.List)
	v1.GET("/transactions/statistics", h.Transactions.Statistics)
	v1.GET("/transactions/by-number/:number", h.Transactions.GetByNumber)
	v1.GET("/transactions/:transaction_id", h.Transactions.Get)
	v1.POST("/transactions/:transaction_id/refund", h.Transactions.Refund)

	v1.POST("/transfers", h.Transfers.Transfer)

	v1.POST("/payouts", h.Payouts.Create)
	v1.GET("/payouts", h.Payouts.List)
	v1.POST("/payouts/process-approved", h.Payouts.ProcessApproved)
	v1.GET("/payouts/:payout_id", h.Payouts.Get)
	v1.POST("/payouts/:payout_id/approve", h.Payouts.Approve)
	v1.POST("/payouts/:payout_id/reject", h.Payouts.Reject)
	v1.POST("/payouts/:payout_id/cancel", h.Payouts.Cancel)
	v1.POST("/payouts/:payout_id/process", h.Payouts.Process)

	v1.POST("/disbursements", h.Disbursements.Create)
	v1.POST("/disbursements/process-scheduled", h.Disbursements.ProcessScheduled)
	v1.GET("/disbursements/:disbursement_id", h.Disbursements.Get)
	v1.POST("/disbursements/:disbursement_id/schedule", h.Disbursements.Schedule)
	v1.POST("/disbursements/:disbursement_id/approve", h.Disbursements.Approve)
	v1.POST("/disbursements/:disbursement_id/process", h.Disbursements.Process)

	v1.POST("/users/:user_id/payment-methods", h.PaymentMethods.Add)
	v1.GET("/users/:user_id/payment-methods", h.PaymentMethods.List)
	v1.POST("/users/:user_id/payment-methods/:method_id/default", h.PaymentMethods.SetDefault)
	v1.DELETE("/users/:user_id/payment-methods/:method_id", h.PaymentMethods.Deactivate)
	v1.POST("/payment-methods/:method_id/verify", h.PaymentMethods.Verify)
}
