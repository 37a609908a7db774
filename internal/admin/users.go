package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// GET /admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	accts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return apperrors.Respond(c, err)
	}
	if accts == nil {
		accts = []wallet.Account{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": accts})
}

// POST /admin/users/:id/promote
func (h *Handler) PromoteAdmin(c echo.Context) error {
	return h.setRole(c, wallet.RoleAdmin, "user promoted to admin")
}

// POST /admin/users/:id/demote
func (h *Handler) DemoteAdmin(c echo.Context) error {
	userID := c.Param("id")
	if caller, _ := c.Get("user_id").(string); caller != "" && caller == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "admins cannot demote themselves"})
	}
	return h.setRole(c, wallet.RoleUser, "user demoted to user")
}

func (h *Handler) setRole(c echo.Context, role wallet.Role, message string) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	acct, err := h.accounts.SetRole(c.Request().Context(), userID, role)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	logger.Infof("role of %s set to %s", acct.ID, acct.Role)
	return c.JSON(http.StatusOK, echo.Map{"message": message, "user_id": acct.ID, "role": acct.Role})
}
