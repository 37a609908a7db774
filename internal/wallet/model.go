package wallet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeBuy        TransactionType = "buy"
	TypeSell       TransactionType = "sell"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeBuy, TypeSell, TypeDeposit, TypeWithdrawal:
		return true
	}
	return false
}

// NeedsAsset reports whether the type moves crypto and so requires an asset and quantity.
func (t TransactionType) NeedsAsset() bool {
	return t == TypeBuy || t == TypeSell
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// NormalizeStatus maps anything outside the three known statuses to pending.
func NormalizeStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return StatusPending
	}
	return s
}

// PaymentDetails is contact metadata captured with a request. Only the last
// four card digits are ever kept.
type PaymentDetails struct {
	CardLast4     string `json:"cardLast4,omitempty"`
	Name          string `json:"name,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Country       string `json:"country,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
}

// MaskCard keeps the trailing four digits of a card number and drops everything else.
func MaskCard(number string) string {
	var digits []rune
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}

type Transaction struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	Type               TransactionType  `json:"type"`
	Status             Status           `json:"status"`
	Amount             decimal.Decimal  `json:"amount"`
	CryptoAmount       *decimal.Decimal `json:"cryptoAmount,omitempty"`
	Commission         *decimal.Decimal `json:"commission,omitempty"`
	Cryptocurrency     string           `json:"cryptocurrency,omitempty"`
	CryptoSymbol       string           `json:"cryptoSymbol,omitempty"`
	CryptoName         string           `json:"cryptoName,omitempty"`
	Date               time.Time        `json:"date"`
	PaymentDetails     *PaymentDetails  `json:"paymentDetails,omitempty"`
	CancellationReason string           `json:"cancellationReason,omitempty"`
	ResolvedAt         *time.Time       `json:"resolvedAt,omitempty"`
}

// Asset returns the asset reference recorded on the transaction.
func (t Transaction) Asset() Asset {
	return Asset{ID: t.Cryptocurrency, Symbol: t.CryptoSymbol, Name: t.CryptoName}
}

// Quantity returns the crypto amount, or zero when none was recorded.
func (t Transaction) Quantity() decimal.Decimal {
	if t.CryptoAmount == nil {
		return decimal.Zero
	}
	return *t.CryptoAmount
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Account struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"`
	WalletBalance  decimal.Decimal `json:"walletBalance"`
	CryptoHoldings []Holding       `json:"cryptoHoldings"`
	PasswordHash   string          `json:"-"` // never return
	CreatedAt      time.Time       `json:"createdAt"`
}

// Holding returns the holding matching asset, if any.
func (a Account) Holding(asset Asset) (Holding, bool) {
	for _, h := range a.CryptoHoldings {
		if h.Matches(asset) {
			return h, true
		}
	}
	return Holding{}, false
}

type Holding struct {
	CryptoID string          `json:"cryptoId"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	Image    string          `json:"image,omitempty"`
}

// Matches compares by id or symbol, ignoring case.
func (h Holding) Matches(a Asset) bool {
	if a.ID != "" && strings.EqualFold(h.CryptoID, a.ID) {
		return true
	}
	return a.Symbol != "" && strings.EqualFold(h.Symbol, a.Symbol)
}

// Asset identifies a crypto asset by id and/or symbol.
type Asset struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Image  string `json:"image,omitempty"`
}

// Key is the normalized identity of the asset: lower-cased id, else lower-cased symbol.
func (a Asset) Key() string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return strings.ToLower(id)
	}
	return strings.ToLower(strings.TrimSpace(a.Symbol))
}

func (a Asset) Resolved() bool {
	return a.Key() != ""
}

// NewHolding builds the holding inserted when an account first acquires asset.
func NewHolding(a Asset, qty decimal.Decimal) Holding {
	id := a.ID
	if id == "" {
		id = strings.ToLower(a.Symbol)
	}
	name := a.Name
	if name == "" {
		name = strings.ToUpper(a.Symbol)
	}
	return Holding{
		CryptoID: id,
		Name:     name,
		Symbol:   strings.ToUpper(a.Symbol),
		Amount:   qty,
		Image:    a.Image,
	}
}

// ApplyAddHolding increments the matching holding or appends a new one.
func ApplyAddHolding(holdings []Holding, a Asset, qty decimal.Decimal) []Holding {
	for i := range holdings {
		if holdings[i].Matches(a) {
			holdings[i].Amount = holdings[i].Amount.Add(qty)
			return pruneHoldings(holdings)
		}
	}
	return pruneHoldings(append(holdings, NewHolding(a, qty)))
}

// ApplyRemoveHolding decrements the matching holding, dropping it at or below
// zero. Without a match it returns holdings unchanged.
func ApplyRemoveHolding(holdings []Holding, a Asset, qty decimal.Decimal) []Holding {
	for i := range holdings {
		if holdings[i].Matches(a) {
			holdings[i].Amount = holdings[i].Amount.Sub(qty)
			return pruneHoldings(holdings)
		}
	}
	return holdings
}

func pruneHoldings(holdings []Holding) []Holding {
	out := holdings[:0]
	for _, h := range holdings {
		if h.Amount.IsPositive() {
			out = append(out, h)
		}
	}
	return out
}

// ApplyDebit subtracts amount from balance, flooring at zero.
func ApplyDebit(balance, amount decimal.Decimal) decimal.Decimal {
	next := balance.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
