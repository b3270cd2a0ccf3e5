package services

import (
	"context"
	"errors"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"gorm.io/gorm"
)

// AssetResolver is the single lookup point for (currency, network) asset
// configuration, consumed by withdrawal creation, the state machine and the
// indexer.
type AssetResolver struct {
	assets repository.AssetConfigRepository
}

// NewAssetResolver creates a new AssetResolver instance
func NewAssetResolver(assets repository.AssetConfigRepository) *AssetResolver {
	return &AssetResolver{assets: assets}
}

// Resolve returns the active config for the pair or ErrNotFound.
func (r *AssetResolver) Resolve(ctx context.Context, currency, network string) (*models.AssetConfig, error) {
	asset, err := r.assets.GetActive(ctx, currency, network)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("no active asset config for %s on %s", currency, network)
		}
		return nil, err
	}
	return asset, nil
}

// ListScanTargets returns the contract-backed assets the indexer scans.
func (r *AssetResolver) ListScanTargets(ctx context.Context) ([]*models.AssetConfig, error) {
	return r.assets.ListActiveTokens(ctx)
}
