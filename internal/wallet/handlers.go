package wallet

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

// Handler exposes the workflow over HTTP. User routes act on the caller's
// own account; admin routes live in admin.go.
type Handler struct {
	wf *Workflow
}

func NewHandler(wf *Workflow) *Handler {
	return &Handler{wf: wf}
}

// PaymentInput is what a client submits. The full card number never leaves
// the handler; only its last four digits are kept.
type PaymentInput struct {
	CardNumber    string `json:"cardNumber"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phoneNumber"`
}

func (p *PaymentInput) details() *PaymentDetails {
	if p == nil {
		return nil
	}
	d := PaymentDetails{
		CardLast4:     MaskCard(p.CardNumber),
		Name:          strings.TrimSpace(p.Name),
		WalletAddress: strings.TrimSpace(p.WalletAddress),
		Country:       strings.TrimSpace(p.Country),
		PhoneNumber:   strings.TrimSpace(p.PhoneNumber),
	}
	if d == (PaymentDetails{}) {
		return nil
	}
	return &d
}

type FiatRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentDetails *PaymentInput   `json:"paymentDetails"`
}

type TradeRequest struct {
	Cryptocurrency string          `json:"cryptocurrency"`
	Amount         decimal.Decimal `json:"amount"`
	CryptoAmount   decimal.Decimal `json:"cryptoAmount"`
	PaymentDetails *PaymentInput   `json:"paymentDetails"`
}

func callerID(c echo.Context) (string, bool) {
	uid, ok := c.Get("user_id").(string)
	return uid, ok && uid != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized or invalid user"})
}

// GET /wallet/balance
func (h *Handler) Balance(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	acct, err := h.wf.Account(c.Request().Context(), uid)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"walletBalance":  acct.WalletBalance,
		"cryptoHoldings": acct.CryptoHoldings,
	})
}

// GET /wallet/transactions
func (h *Handler) GetUserTransactions(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	txs, err := h.wf.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// POST /wallet/deposit
func (h *Handler) Deposit(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	var req FiatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tx, err := h.wf.RequestDeposit(c.Request().Context(), uid, req.Amount, req.PaymentDetails.details())
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": tx,
		"message":     "Deposit request submitted for approval",
	})
}

// POST /wallet/withdraw
func (h *Handler) Withdraw(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	var req FiatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tx, err := h.wf.RequestWithdrawal(c.Request().Context(), uid, req.Amount, req.PaymentDetails.details())
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": tx,
		"message":     "Withdrawal request submitted for approval",
	})
}

// POST /wallet/buy
func (h *Handler) Buy(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Cryptocurrency) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cryptocurrency is required"})
	}
	tx, quote, err := h.wf.RequestBuy(c.Request().Context(), uid, req.Cryptocurrency, req.Amount, req.PaymentDetails.details())
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": tx,
		"quote":       quote,
		"message":     "Buy request submitted for approval",
	})
}

// POST /wallet/sell
func (h *Handler) Sell(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Cryptocurrency) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cryptocurrency is required"})
	}
	tx, err := h.wf.RequestSell(c.Request().Context(), uid, req.Cryptocurrency, req.CryptoAmount)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": tx,
		"message":     "Sell request submitted for approval",
	})
}
