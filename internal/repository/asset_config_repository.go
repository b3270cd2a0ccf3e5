package repository

import (
	"context"

	"payout-backend/internal/models"

	"gorm.io/gorm"
)

// AssetConfigRepository defines the interface for AssetConfig data access
type AssetConfigRepository interface {
	GetActive(ctx context.Context, currency, network string) (*models.AssetConfig, error)
	GetByContract(ctx context.Context, network, contractAddress string) (*models.AssetConfig, error)
	ListActiveTokens(ctx context.Context) ([]*models.AssetConfig, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, asset *models.AssetConfig) error
}

type assetConfigRepository struct {
	db *gorm.DB
}

// NewAssetConfigRepository creates a new AssetConfigRepository instance
func NewAssetConfigRepository(db *gorm.DB) AssetConfigRepository {
	return &assetConfigRepository{db: db}
}

func (r *assetConfigRepository) GetActive(ctx context.Context, currency, network string) (*models.AssetConfig, error) {
	var asset models.AssetConfig
	err := r.db.WithContext(ctx).
		Where("currency = ? AND network = ? AND is_active = ?", currency, network, true).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetConfigRepository) GetByContract(ctx context.Context, network, contractAddress string) (*models.AssetConfig, error) {
	var asset models.AssetConfig
	err := r.db.WithContext(ctx).
		Where("network = ? AND LOWER(contract_address) = LOWER(?) AND is_active = ?", network, contractAddress, true).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListActiveTokens returns active contract-backed assets, the scan targets
// of the indexer. Native assets emit no transfer logs and are excluded.
func (r *assetConfigRepository) ListActiveTokens(ctx context.Context) ([]*models.AssetConfig, error) {
	var assets []*models.AssetConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_native = ? AND contract_address <> ''", true, false).
		Find(&assets).Error
	return assets, err
}

func (r *assetConfigRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AssetConfig{}).Count(&count).Error
	return count, err
}

func (r *assetConfigRepository) Create(ctx context.Context, asset *models.AssetConfig) error {
	return r.db.WithContext(ctx).Create(asset).Error
}
