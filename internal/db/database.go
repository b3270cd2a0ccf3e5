package db

import (
	"fmt"

	"payout-backend/internal/config"
	"payout-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres. The returned handle is passed down explicitly;
// there is no package-level connection. Migration is the caller's step.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return gdb, nil
}

// Migrate runs schema migration for all models. The unique indexes on
// ledger_entries.tx_hash and scan_checkpoints (network, contract_address)
// are load-bearing: ingestion idempotency depends on them.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.Account{},
		&models.WithdrawRequest{},
		&models.LedgerEntry{},
		&models.ScanCheckpoint{},
		&models.ChainEndpoint{},
		&models.AssetConfig{},
		&models.CustodialWallet{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
