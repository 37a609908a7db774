// Package store selects the persistence backend named in configuration.
package store

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/coinvault/internal/config"
	"github.com/sudo-init-do/coinvault/internal/db"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/store/local"
	"github.com/sudo-init-do/coinvault/internal/store/postgres"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// Backend is everything the API needs from storage.
type Backend interface {
	wallet.Store
	market.WatchlistStore
	Ping(ctx context.Context) error
}

// Open returns the configured backend and a func releasing its resources.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, func(), error) {
	switch cfg.Driver {
	case "local":
		s, err := local.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using local store in %s", cfg.DataDir)
		return s, func() {}, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using postgres store")
		return postgres.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
