package market

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

type Handler struct {
	feed      *Feed
	watchlist WatchlistStore
}

func NewHandler(feed *Feed, watchlist WatchlistStore) *Handler {
	return &Handler{feed: feed, watchlist: watchlist}
}

// GET /crypto
func (h *Handler) ListCryptocurrencies(c echo.Context) error {
	coins, source := h.feed.List(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{
		"cryptocurrencies": coins,
		"source":           source,
	})
}

// GET /crypto/:id
func (h *Handler) GetCryptocurrency(c echo.Context) error {
	coin, err := h.feed.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, coin)
}

// GET /watchlist
func (h *Handler) GetWatchlist(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ids, err := h.watchlist.Watchlist(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"watchlist": ids})
}

type addWatchRequest struct {
	CryptoID string `json:"cryptoId"`
}

// POST /watchlist
func (h *Handler) AddToWatchlist(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addWatchRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.CryptoID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cryptoId is required"})
	}

	// Store the canonical id so symbol and id requests collapse into one entry.
	coin, err := h.feed.Lookup(c.Request().Context(), req.CryptoID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	ids, err := h.watchlist.AddToWatchlist(c.Request().Context(), userID, coin.ID)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"watchlist": ids})
}

// DELETE /watchlist/:cryptoId
func (h *Handler) RemoveFromWatchlist(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ids, err := h.watchlist.RemoveFromWatchlist(c.Request().Context(), userID, c.Param("cryptoId"))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"watchlist": ids})
}
