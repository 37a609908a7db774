package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const minPasswordLength = 6

type Handler struct {
	accounts        wallet.AccountStore
	tokens          *Tokens
	bootstrapSecret string
}

func NewHandler(accounts wallet.AccountStore, tokens *Tokens, bootstrapSecret string) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, bootstrapSecret: bootstrapSecret}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string         `json:"token"`
	User  wallet.Account `json:"user"`
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a valid email are required"})
	}
	if len(req.Password) < minPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	acct, err := h.accounts.Create(c.Request().Context(), wallet.Account{
		Email:         req.Email,
		Name:          req.Name,
		Role:          wallet.RoleUser,
		WalletBalance: decimal.Zero,
		PasswordHash:  string(hashed),
	})
	if err != nil {
		return apperrors.Respond(c, err)
	}
	logger.Infof("account %s registered", acct.ID)

	return h.respondWithToken(c, http.StatusCreated, acct)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	acct, err := h.accounts.FindByEmail(c.Request().Context(), req.Email)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if acct.PasswordHash == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	return h.respondWithToken(c, http.StatusOK, acct)
}

// Me returns the currently authenticated user's account
func (h *Handler) Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	acct, err := h.accounts.Get(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, acct)
}

type BootstrapAdminRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// BootstrapAdmin promotes an existing account when the caller knows the
// configured bootstrap secret. Disabled when no secret is configured.
func (h *Handler) BootstrapAdmin(c echo.Context) error {
	req := new(BootstrapAdminRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if h.bootstrapSecret == "" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "bootstrap disabled"})
	}
	if req.Secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid secret"})
	}
	if strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx := c.Request().Context()
	acct, err := h.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if _, err := h.accounts.SetRole(ctx, acct.ID, wallet.RoleAdmin); err != nil {
		return apperrors.Respond(c, err)
	}
	logger.Infof("account %s promoted to admin via bootstrap", acct.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin", "email": acct.Email})
}

func (h *Handler) respondWithToken(c echo.Context, status int, acct wallet.Account) error {
	signed, err := h.tokens.Issue(acct.ID, string(acct.Role))
	if err != nil {
		logger.Errorf("issue token for %s: %v", acct.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(status, TokenResponse{Token: signed, User: acct})
}
