package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sudo-init-do/coinvault/internal/alerts"
	"github.com/sudo-init-do/coinvault/internal/auth"
	"github.com/sudo-init-do/coinvault/internal/config"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/metrics"
	"github.com/sudo-init-do/coinvault/internal/store"
	"github.com/sudo-init-do/coinvault/internal/stream"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		logger.Log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	backend, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Log.Fatalf("store: %v", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	hub := stream.NewHub()

	notifiers := wallet.Notifiers{m, hub}
	if cfg.Redis.Addr != "" {
		client := asynq.NewClient(alerts.RedisOpt(cfg.Redis))
		defer client.Close()
		notifiers = append(notifiers, alerts.NewNotifier(client, cfg.Mail.AdminEmail, cfg.AppURL))
		logger.Infof("email notifications enabled (redis=%s)", cfg.Redis.Addr)
	} else {
		logger.Warnf("REDIS_ADDR not set, email notifications disabled")
	}

	feed := market.NewFeed(cfg.Prices.URL, cfg.Prices.Limit, cfg.Prices.Timeout, cfg.Prices.CacheTTL)
	wf := wallet.NewWorkflow(backend,
		wallet.WithPrices(feed),
		wallet.WithCommission(cfg.CommissionRate),
		wallet.WithNotifier(notifiers),
	)

	e := newServer(app{
		store:           backend,
		tokens:          auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		workflow:        wf,
		feed:            feed,
		hub:             hub,
		metrics:         m,
		bootstrapSecret: cfg.AdminBootstrapSecret,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		logger.Errorf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
