package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/coinvault/internal/admin"
	"github.com/sudo-init-do/coinvault/internal/auth"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/metrics"
	mware "github.com/sudo-init-do/coinvault/internal/middleware"
	"github.com/sudo-init-do/coinvault/internal/store"
	"github.com/sudo-init-do/coinvault/internal/stream"
	"github.com/sudo-init-do/coinvault/internal/user"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

type app struct {
	store           store.Backend
	tokens          *auth.Tokens
	workflow        *wallet.Workflow
	feed            *market.Feed
	hub             *stream.Hub
	metrics         *metrics.Metrics
	bootstrapSecret string
}

func newServer(a app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Log.Errorw("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_ip", v.RemoteIP, "error", v.Error)
				return nil
			}
			logger.Log.Infow("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_ip", v.RemoteIP)
			return nil
		},
	}))
	e.Use(a.metrics.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := a.store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	authH := auth.NewHandler(a.store.Accounts(), a.tokens, a.bootstrapSecret)
	walletH := wallet.NewHandler(a.workflow)
	marketH := market.NewHandler(a.feed, a.store)
	adminH := admin.NewHandler(a.store)
	userH := user.NewHandler(a.store.Accounts())
	jwt := mware.JWTMiddleware(a.tokens)

	// Per-IP rate limiting on credential endpoints
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/bootstrap-admin", authH.BootstrapAdmin)

	e.GET("/crypto", marketH.ListCryptocurrencies)
	e.GET("/crypto/:id", marketH.GetCryptocurrency)
	e.GET("/user/:id/profile", userH.GetPublicProfile)

	api := e.Group("")
	api.Use(jwt)
	api.Use(mware.RequireRoles(wallet.RoleUser, wallet.RoleAdmin))

	api.GET("/auth/me", authH.Me)
	api.GET("/ws", a.hub.ServeWS)
	api.PATCH("/user/profile", userH.UpdateProfile)

	api.GET("/wallet/balance", walletH.Balance)
	api.GET("/wallet/transactions", walletH.GetUserTransactions)
	api.POST("/wallet/deposit", walletH.Deposit)
	api.POST("/wallet/withdraw", walletH.Withdraw)
	api.POST("/wallet/buy", walletH.Buy)
	api.POST("/wallet/sell", walletH.Sell)

	api.GET("/watchlist", marketH.GetWatchlist)
	api.POST("/watchlist", marketH.AddToWatchlist)
	api.DELETE("/watchlist/:cryptoId", marketH.RemoveFromWatchlist)

	adminGroup := e.Group("/admin")
	adminGroup.Use(jwt)
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.GET("/users", adminH.ListUsers)
	adminGroup.POST("/users/:id/promote", adminH.PromoteAdmin)
	adminGroup.POST("/users/:id/demote", adminH.DemoteAdmin)

	adminGroup.GET("/transactions", walletH.AdminGetAllTransactions)
	adminGroup.GET("/transactions/pending", walletH.AdminListPending)
	adminGroup.GET("/transactions/user/:id", walletH.AdminGetUserTransactions)
	adminGroup.GET("/transactions/:id", walletH.AdminGetTransaction)
	adminGroup.POST("/transactions/:id/approve", walletH.ApproveTransaction)
	adminGroup.POST("/transactions/:id/cancel", walletH.CancelTransaction)

	return e
}
