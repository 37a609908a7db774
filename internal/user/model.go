package user

import (
	"time"

	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// PublicProfile is the part of an account other users may see.
type PublicProfile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      wallet.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func profileOf(a wallet.Account) PublicProfile {
	return PublicProfile{ID: a.ID, Name: a.Name, Role: a.Role, CreatedAt: a.CreatedAt}
}

// Handler serves profile endpoints.
type Handler struct {
	accounts wallet.AccountStore
}

func NewHandler(accounts wallet.AccountStore) *Handler {
	return &Handler{accounts: accounts}
}
