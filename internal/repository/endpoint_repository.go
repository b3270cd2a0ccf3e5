package repository

import (
	"context"
	"time"

	"payout-backend/internal/models"

	"gorm.io/gorm"
)

// EndpointRepository defines the interface for ChainEndpoint data access
type EndpointRepository interface {
	ListByNetwork(ctx context.Context, network string) ([]*models.ChainEndpoint, error)
	Networks(ctx context.Context) ([]string, error)
	UpdateHealth(ctx context.Context, id uint, status models.EndpointStatus) error
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, endpoint *models.ChainEndpoint) error
}

type endpointRepository struct {
	db *gorm.DB
}

// NewEndpointRepository creates a new EndpointRepository instance
func NewEndpointRepository(db *gorm.DB) EndpointRepository {
	return &endpointRepository{db: db}
}

// ListByNetwork returns candidates in ascending priority order.
func (r *endpointRepository) ListByNetwork(ctx context.Context, network string) ([]*models.ChainEndpoint, error) {
	var endpoints []*models.ChainEndpoint
	err := r.db.WithContext(ctx).
		Where("network = ?", network).
		Order("priority ASC, id ASC").
		Find(&endpoints).Error
	return endpoints, err
}

func (r *endpointRepository) Networks(ctx context.Context) ([]string, error) {
	var networks []string
	err := r.db.WithContext(ctx).
		Model(&models.ChainEndpoint{}).
		Distinct("network").
		Pluck("network", &networks).Error
	return networks, err
}

func (r *endpointRepository) UpdateHealth(ctx context.Context, id uint, status models.EndpointStatus) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ChainEndpoint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"last_checked_at": &now,
		}).Error
}

func (r *endpointRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChainEndpoint{}).Count(&count).Error
	return count, err
}

func (r *endpointRepository) Create(ctx context.Context, endpoint *models.ChainEndpoint) error {
	return r.db.WithContext(ctx).Create(endpoint).Error
}
