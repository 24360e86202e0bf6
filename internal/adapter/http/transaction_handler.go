package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domain "escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/usecase/ledger"
)

// SignatureHeader carries the processor's HMAC over the webhook body.
const SignatureHeader = "X-Gateway-Signature"

type TransactionHandler struct {
	errorWriter
	uc *ledger.Usecase
}

func NewTransactionHandler(uc *ledger.Usecase, log *logging.Logger) *TransactionHandler {
	return &TransactionHandler{errorWriter: errorWriter{log: log}, uc: uc}
}

type moveReq struct {
	Amount      string `json:"amount"       validate:"required,money"`
	UserID      string `json:"user_id"      validate:"omitempty,hex32"`
	Description string `json:"description"  validate:"max=255"`
}

type chargeReq struct {
	PaymentMethodID string `json:"payment_method_id"  validate:"required,hex32"`
	Amount          string `json:"amount"             validate:"required,money"`
	Description     string `json:"description"        validate:"max=255"`
}

type refundReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *TransactionHandler) Deposit(c echo.Context) error {
	return h.move(c, h.uc.Deposit)
}

func (h *TransactionHandler) Withdraw(c echo.Context) error {
	return h.move(c, h.uc.Withdraw)
}

func (h *TransactionHandler) move(c echo.Context, fn func(ctx context.Context, in ledger.DepositInput) (*domain.Transaction, error)) error {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	var req moveReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	tx, err := fn(c.Request().Context(), ledger.DepositInput{
		AccountID:   accountID,
		Amount:      money(req.Amount),
		UserID:      req.UserID,
		Description: req.Description,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

// Charge funds escrow from a saved payment method. A pending processor result
// is answered with 202.
func (h *TransactionHandler) Charge(c echo.Context) error {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return nil
	}
	var req chargeReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	tx, err := h.uc.DepositFromPaymentMethod(c.Request().Context(), ledger.ChargeInput{
		AccountID:       accountID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          money(req.Amount),
		Description:     req.Description,
	})
	if err != nil {
		return h.fail(c, err)
	}
	code := http.StatusCreated
	if tx.Status == domain.TxStatusPending {
		code = http.StatusAccepted
	}
	return c.JSON(code, tx)
}

func (h *TransactionHandler) Refund(c echo.Context) error {
	id, ok := pathID(c, "transaction_id")
	if !ok {
		return nil
	}
	var req refundReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	tx, err := h.uc.Refund(c.Request().Context(), ledger.RefundInput{TransactionID: id, Reason: req.Reason})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

func (h *TransactionHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "transaction_id")
	if !ok {
		return nil
	}
	tx, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) GetByNumber(c echo.Context) error {
	number, ok := pathID(c, "number")
	if !ok {
		return nil
	}
	tx, err := h.uc.GetByNumber(c.Request().Context(), number)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) List(c echo.Context) error {
	f, err := txFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	list, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}

func (h *TransactionHandler) Statistics(c echo.Context) error {
	f, err := txFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	st, err := h.uc.Statistics(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Webhook takes processor callbacks. Redeliveries are acknowledged but not
// applied twice.
func (h *TransactionHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	ack, err := h.uc.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": ack.Received, "handled": ack.Handled})
}

// from/to accept RFC3339
func txFilter(c echo.Context) (domain.TxFilter, error) {
	f := domain.TxFilter{
		UserID:          c.QueryParam("user_id"),
		EscrowAccountID: c.QueryParam("account_id"),
		LoanID:          c.QueryParam("loan_id"),
		Type:            domain.TransactionType(c.QueryParam("type")),
		Status:          domain.TransactionStatus(c.QueryParam("status")),
		Limit:           queryInt(c, "limit", 100),
		Offset:          queryInt(c, "offset", 0),
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errInvalidQuery(name)
		}
		t = t.UTC()
		*dst = &t
	}
	return f, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid " + string(e) + " query param" }
