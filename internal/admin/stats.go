package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// Handler serves the admin dashboard endpoints.
type Handler struct {
	ledger   wallet.LedgerStore
	accounts wallet.AccountStore
}

func NewHandler(store wallet.Store) *Handler {
	return &Handler{ledger: store.Ledger(), accounts: store.Accounts()}
}

type Stats struct {
	Pending         int                                        `json:"pending"`
	Completed       int                                        `json:"completed"`
	Cancelled       int                                        `json:"cancelled"`
	CompletedVolume decimal.Decimal                            `json:"completedVolume"`
	VolumeByType    map[wallet.TransactionType]decimal.Decimal `json:"volumeByType"`
	Accounts        int                                        `json:"accounts"`
	Admins          int                                        `json:"admins"`
}

// Summarize folds the ledger and account list into dashboard counters.
// Completed volume is the sum of fiat amounts over completed transactions.
func Summarize(txs []wallet.Transaction, accts []wallet.Account) Stats {
	s := Stats{
		CompletedVolume: decimal.Zero,
		VolumeByType:    map[wallet.TransactionType]decimal.Decimal{},
		Accounts:        len(accts),
	}
	for _, tx := range txs {
		switch tx.Status {
		case wallet.StatusPending:
			s.Pending++
		case wallet.StatusCancelled:
			s.Cancelled++
		case wallet.StatusCompleted:
			s.Completed++
			s.CompletedVolume = s.CompletedVolume.Add(tx.Amount)
			s.VolumeByType[tx.Type] = s.VolumeByType[tx.Type].Add(tx.Amount)
		}
	}
	for _, a := range accts {
		if a.Role == wallet.RoleAdmin {
			s.Admins++
		}
	}
	return s
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	txs, err := h.ledger.List(ctx)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	accts, err := h.accounts.List(ctx)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, Summarize(txs, accts))
}
