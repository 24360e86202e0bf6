package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/usecase/escrow"
)

type EscrowHandler struct {
	errorWriter
	uc *escrow.Usecase
}

func NewEscrowHandler(uc *escrow.Usecase, log *logging.Logger) *EscrowHandler {
	return &EscrowHandler{errorWriter: errorWriter{log: log}, uc: uc}
}

type openAccountReq struct {
	LoanID         *string `json:"loan_id"          validate:"omitempty,hex32"`
	OwnerID        string  `json:"owner_id"         validate:"required,hex32"`
	Type           string  `json:"type"             validate:"required,oneof=loan interest fee collateral reserve"`
	Currency       string  `json:"currency"         validate:"omitempty,len=3"`
	InitialAmount  string  `json:"initial_amount"   validate:"omitempty,money"`
	MaximumBalance string  `json:"maximum_balance"  validate:"omitempty,money"`
	Pending        bool    `json:"pending"`
}

type reasonReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *EscrowHandler) Open(c echo.Context) error {
	var req openAccountReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	in := escrow.OpenInput{
		LoanID:        req.LoanID,
		OwnerID:       req.OwnerID,
		Type:          ledger.AccountType(req.Type),
		Currency:      req.Currency,
		InitialAmount: decimal.Zero,
		Pending:       req.Pending,
	}
	if req.InitialAmount != "" {
		in.InitialAmount = money(req.InitialAmount)
	}
	if req.MaximumBalance != "" {
		limit := money(req.MaximumBalance)
		in.MaximumBalance = &limit
	}
	a, err := h.uc.Open(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *EscrowHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	a, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *EscrowHandler) ListByLoan(c echo.Context) error {
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	list, err := h.uc.ListByLoan(c.Request().Context(), loanID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}

func (h *EscrowHandler) Activate(c echo.Context) error {
	id, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	a, err := h.uc.Activate(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *EscrowHandler) Freeze(c echo.Context) error {
	return h.withReason(c, h.uc.Freeze)
}

func (h *EscrowHandler) Close(c echo.Context) error {
	return h.withReason(c, h.uc.Close)
}

func (h *EscrowHandler) Unfreeze(c echo.Context) error {
	id, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	a, err := h.uc.Unfreeze(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *EscrowHandler) withReason(c echo.Context, fn func(ctx context.Context, id, reason string) (*ledger.EscrowAccount, error)) error {
	id, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	var req reasonReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	a, err := fn(c.Request().Context(), id, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *EscrowHandler) Reconcile(c echo.Context) error {
	id, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	rec, err := h.uc.Reconcile(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *EscrowHandler) Summary(c echo.Context) error {
	f := ledger.AccountFilter{
		LoanID:  c.QueryParam("loan_id"),
		OwnerID: c.QueryParam("owner_id"),
		Type:    ledger.AccountType(c.QueryParam("type")),
		Status:  ledger.AccountStatus(c.QueryParam("status")),
	}
	sum, err := h.uc.Summary(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
