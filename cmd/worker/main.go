package main

import (
	"github.com/sudo-init-do/coinvault/internal/alerts"
	"github.com/sudo-init-do/coinvault/internal/config"
	"github.com/sudo-init-do/coinvault/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		logger.Log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Redis.Addr == "" {
		logger.Log.Fatal("REDIS_ADDR (or REDIS_HOST) is required for the worker")
	}

	mailer, err := alerts.NewMailer(cfg.Mail)
	if err != nil {
		logger.Log.Fatalf("mailer: %v", err)
	}

	srv := alerts.NewServer(alerts.RedisOpt(cfg.Redis))
	logger.Infof("asynq worker started (addr=%s)", cfg.Redis.Addr)
	// Run blocks until SIGINT/SIGTERM, then waits for in-flight tasks.
	if err := srv.Run(alerts.NewMux(mailer)); err != nil {
		logger.Log.Fatalf("worker stopped: %v", err)
	}
}
