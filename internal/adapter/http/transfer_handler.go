package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"escrow-ledger/internal/infrastructure/logging"
	"escrow-ledger/internal/usecase/transfer"
)

type TransferHandler struct {
	errorWriter
	uc *transfer.Usecase
}

func NewTransferHandler(uc *transfer.Usecase, log *logging.Logger) *TransferHandler {
	return &TransferHandler{errorWriter: errorWriter{log: log}, uc: uc}
}

type transferReq struct {
	FromAccountID string `json:"from_account_id"  validate:"required,hex32"`
	ToAccountID   string `json:"to_account_id"    validate:"required,hex32,nefield=FromAccountID"`
	Amount        string `json:"amount"           validate:"required,money"`
	UserID        string `json:"user_id"          validate:"omitempty,hex32"`
	Description   string `json:"description"      validate:"max=255"`
}

func (h *TransferHandler) Transfer(c echo.Context) error {
	var req transferReq
	if err := bindValid(c, &req); err != nil {
		return done(err)
	}
	res, err := h.uc.Transfer(c.Request().Context(), transfer.Input{
		FromID:      req.FromAccountID,
		ToID:        req.ToAccountID,
		Amount:      money(req.Amount),
		Description: req.Description,
		UserID:      req.UserID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
