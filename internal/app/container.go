// Package app wires configuration, storage, services and the HTTP surface
// into one explicit dependency container. No package-level state.
package app

import (
	"context"
	"fmt"

	"payout-backend/internal/config"
	"payout-backend/internal/db"
	"payout-backend/internal/events"
	"payout-backend/internal/handlers"
	"payout-backend/internal/middleware"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"
	"payout-backend/internal/router"
	"payout-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container holds every constructed component of the service.
type Container struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *logrus.Logger
	Publisher *events.Publisher

	Accounts    repository.AccountRepository
	Withdrawals repository.WithdrawRequestRepository
	Ledger      repository.LedgerRepository
	Checkpoints repository.CheckpointRepository
	Endpoints   repository.EndpointRepository
	Assets      repository.AssetConfigRepository
	Wallets     repository.WalletRepository

	Registry      *services.EndpointRegistry
	AssetResolver *services.AssetResolver
	FraudGuard    *services.FraudGuard
	Executor      *services.SettlementExecutor
	Indexer       *services.ChainIndexer
	Withdraw      *services.WithdrawService

	Engine *gin.Engine
}

// New builds the container on an already opened database handle. The dial
// function may be nil to use the real RPC dialer.
func New(cfg *config.Config, gdb *gorm.DB, logger *logrus.Logger, dial services.DialFunc) (*Container, error) {
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	publisher, err := events.Connect(&cfg.NATS, logger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:    cfg,
		DB:        gdb,
		Logger:    logger,
		Publisher: publisher,

		Accounts:    repository.NewAccountRepository(gdb),
		Withdrawals: repository.NewWithdrawRequestRepository(gdb),
		Ledger:      repository.NewLedgerRepository(gdb),
		Checkpoints: repository.NewCheckpointRepository(gdb),
		Endpoints:   repository.NewEndpointRepository(gdb),
		Assets:      repository.NewAssetConfigRepository(gdb),
		Wallets:     repository.NewWalletRepository(gdb),
	}

	c.Registry = services.NewEndpointRegistry(c.Endpoints, dial, &cfg.Indexer, logger)
	c.AssetResolver = services.NewAssetResolver(c.Assets)
	c.FraudGuard = services.NewFraudGuard(c.Accounts, logger)
	c.Executor = services.NewSettlementExecutor(&cfg.Indexer, logger)
	c.Indexer = services.NewChainIndexer(c.Registry, c.Assets, c.Wallets, c.Ledger, c.Checkpoints, publisher, &cfg.Indexer, logger)
	c.Withdraw = services.NewWithdrawService(c.Withdrawals, c.Accounts, c.Wallets, c.AssetResolver, c.Registry, c.FraudGuard, c.Executor, publisher, logger)

	if err := c.seed(context.Background()); err != nil {
		return nil, err
	}

	c.Engine = router.Setup(router.Deps{
		Withdraw:  handlers.NewWithdrawHandler(c.Withdraw, c.Withdrawals, logger),
		Ledger:    handlers.NewLedgerHandler(c.Indexer, c.Ledger, logger),
		Health:    handlers.NewHealthHandler(gdb),
		Signature: middleware.NewSignatureMiddleware(&cfg.Auth, logger),
		Auth:      middleware.NewAuthMiddleware(&cfg.Auth, logger),
	})

	return c, nil
}

// Close releases external connections.
func (c *Container) Close() {
	c.Publisher.Close()
	if sqlDB, err := c.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// seed inserts configured endpoints, assets and wallets, each group only
// when its table is still empty.
func (c *Container) seed(ctx context.Context) error {
	if count, err := c.Endpoints.Count(ctx); err != nil {
		return err
	} else if count == 0 {
		for _, seed := range c.Config.Seeds.Endpoints {
			endpoint := &models.ChainEndpoint{
				Network:   seed.Network,
				URL:       seed.URL,
				Priority:  seed.Priority,
				IsDefault: seed.IsDefault,
				Status:    models.EndpointStatusUnknown,
			}
			if err := c.Endpoints.Create(ctx, endpoint); err != nil {
				return fmt.Errorf("failed to seed endpoint %s: %w", seed.URL, err)
			}
		}
		if len(c.Config.Seeds.Endpoints) > 0 {
			c.Logger.WithField("count", len(c.Config.Seeds.Endpoints)).Info("seeded chain endpoints")
		}
	}

	if count, err := c.Assets.Count(ctx); err != nil {
		return err
	} else if count == 0 {
		for _, seed := range c.Config.Seeds.Assets {
			asset := &models.AssetConfig{
				Currency:        seed.Currency,
				Network:         seed.Network,
				ContractAddress: seed.ContractAddress,
				IsNative:        seed.IsNative,
				IsActive:        true,
				Decimals:        seed.Decimals,
			}
			if asset.Decimals == 0 {
				asset.Decimals = 18
			}
			if err := c.Assets.Create(ctx, asset); err != nil {
				return fmt.Errorf("failed to seed asset %s/%s: %w", seed.Currency, seed.Network, err)
			}
		}
		if len(c.Config.Seeds.Assets) > 0 {
			c.Logger.WithField("count", len(c.Config.Seeds.Assets)).Info("seeded asset configs")
		}
	}

	if count, err := c.Wallets.Count(ctx); err != nil {
		return err
	} else if count == 0 {
		for _, seed := range c.Config.Seeds.Wallets {
			wallet := &models.CustodialWallet{
				Address:    seed.Address,
				Network:    seed.Network,
				Currency:   seed.Currency,
				PrivateKey: seed.PrivateKey,
				Status:     "active",
			}
			if err := c.Wallets.Create(ctx, wallet); err != nil {
				return fmt.Errorf("failed to seed wallet %s: %w", seed.Address, err)
			}
		}
		if len(c.Config.Seeds.Wallets) > 0 {
			c.Logger.WithField("count", len(c.Config.Seeds.Wallets)).Info("seeded custodial wallets")
		}
	}

	return nil
}
