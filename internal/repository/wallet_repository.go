package repository

import (
	"context"

	"payout-backend/internal/models"

	"gorm.io/gorm"
)

// WalletRepository defines the interface for CustodialWallet data access
type WalletRepository interface {
	GetForPayout(ctx context.Context, currency, network string) (*models.CustodialWallet, error)
	ListByNetwork(ctx context.Context, network string) ([]*models.CustodialWallet, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, wallet *models.CustodialWallet) error
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new WalletRepository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetForPayout(ctx context.Context, currency, network string) (*models.CustodialWallet, error) {
	var wallet models.CustodialWallet
	err := r.db.WithContext(ctx).
		Where("currency = ? AND network = ? AND status = ?", currency, network, "active").
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepository) ListByNetwork(ctx context.Context, network string) ([]*models.CustodialWallet, error) {
	var wallets []*models.CustodialWallet
	err := r.db.WithContext(ctx).
		Where("network = ? AND status = ?", network, "active").
		Find(&wallets).Error
	return wallets, err
}

func (r *walletRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CustodialWallet{}).Count(&count).Error
	return count, err
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.CustodialWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}
