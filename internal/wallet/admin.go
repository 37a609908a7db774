package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
)

// CancelRequest carries the reason shown to the user.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AdminGetAllTransactions returns every transaction, optionally filtered by ?status=
func (h *Handler) AdminGetAllTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		txs []Transaction
		err error
	)
	if s := c.QueryParam("status"); s != "" {
		txs, err = h.wf.ListByStatus(ctx, Status(s))
	} else {
		txs, err = h.wf.List(ctx)
	}
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminListPending returns the review queue
func (h *Handler) AdminListPending(c echo.Context) error {
	txs, err := h.wf.ListByStatus(c.Request().Context(), StatusPending)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pending_transactions": txs})
}

// AdminGetUserTransactions returns all transactions for a specific user (admin view)
func (h *Handler) AdminGetUserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user ID is required"})
	}
	txs, err := h.wf.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminGetTransaction returns a single transaction
func (h *Handler) AdminGetTransaction(c echo.Context) error {
	tx, err := h.wf.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

// ApproveTransaction applies a pending transaction to its account
func (h *Handler) ApproveTransaction(c echo.Context) error {
	id := c.Param("id")
	tx, acct, err := h.wf.Approve(c.Request().Context(), id)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	adminID, _ := callerID(c)
	logger.Infof("transaction %s (%s %s) approved by %s", tx.ID, tx.Type, tx.Amount, adminID)

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "transaction approved",
		"transaction": tx,
		"account":     acct,
	})
}

// CancelTransaction marks a pending transaction cancelled with a reason
func (h *Handler) CancelTransaction(c echo.Context) error {
	id := c.Param("id")
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	tx, err := h.wf.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	adminID, _ := callerID(c)
	logger.Infof("transaction %s cancelled by %s: %s", tx.ID, adminID, tx.CancellationReason)

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "transaction cancelled",
		"transaction": tx,
	})
}
