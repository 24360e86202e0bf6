package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/infrastructure/logging"
	ucPayout "escrow-ledger/internal/usecase/payout"
)

type PayoutHandler struct {
	errorWriter
	uc *ucPayout.Usecase
}

func NewPayoutHandler(uc *ucPayout.Usecase, log *logging.Logger) *PayoutHandler {
	return &PayoutHandler{errorWriter: errorWriter{log: log}, uc: uc}
}

type recipientReq struct {
	Name          string `json:"name"            validate:"required,max=120"`
	AccountNumber string `json:"account_number"  validate:"max=64"`
	BankCode      string `json:"bank_code"       validate:"max=16"`
	PhoneNumber   string `json:"phone_number"    validate:"max=32"`
	Email         string `json:"email"           validate:"omitempty,email"`
}

type createPayoutReq struct {
	UserID          string       `json:"user_id"            validate:"required,hex32"`
	EscrowAccountID *string      `json:"escrow_account_id"  validate:"omitempty,hex32"`
	Type            string       `json:"type"               validate:"required,oneof=withdrawal investor_return loan_proceeds refund"`
	Amount          string       `json:"amount"             validate:"required,money"`
	Method          string       `json:"method"             validate:"required,oneof=bank_transfer mobile_money card wallet"`
	Recipient       recipientReq `json:"recipient"`
}

type approvePayoutReq struct {
	ApproverID string `json:"approver_id"  validate:"required,hex32"`
	Notes      string `json:"notes"        validate:"max=500"`
}

func (h *PayoutHandler) Create(c echo.Context) error {
	var req createPayoutReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	p, err := h.uc.Create(c.Request().Context(), ucPayout.CreateInput{
		UserID:          req.UserID,
		EscrowAccountID: req.EscrowAccountID,
		Type:            payout.Type(req.Type),
		Amount:          money(req.Amount),
		Method:          payout.Method(req.Method),
		Recipient:       payout.Recipient(req.Recipient),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PayoutHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "payout_id")
	if !ok {
		return nil
	}
	p, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PayoutHandler) List(c echo.Context) error {
	st := payout.Status(c.QueryParam("status"))
	if st == "" {
		st = payout.StatusPending
	}
	list, err := h.uc.ListByStatus(c.Request().Context(), st, queryInt(c, "limit", 100))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}

func (h *PayoutHandler) Approve(c echo.Context) error {
	id, ok := pathID(c, "payout_id")
	if !ok {
		return nil
	}
	var req approvePayoutReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	p, err := h.uc.Approve(c.Request().Context(), id, ucPayout.ApproveInput{ApproverID: req.ApproverID, Notes: req.Notes})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PayoutHandler) Reject(c echo.Context) error {
	id, ok := pathID(c, "payout_id")
	if !ok {
		return nil
	}
	var req refundReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	p, err := h.uc.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PayoutHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "payout_id")
	if !ok {
		return nil
	}
	var req reasonReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	p, err := h.uc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Process answers 200 with the payout even when it ended failed; the status
// field carries the outcome.
func (h *PayoutHandler) Process(c echo.Context) error {
	id, ok := pathID(c, "payout_id")
	if !ok {
		return nil
	}
	p, err := h.uc.Process(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PayoutHandler) ProcessApproved(c echo.Context) error {
	res, err := h.uc.ProcessApproved(c.Request().Context(), queryInt(c, "limit", 50))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
