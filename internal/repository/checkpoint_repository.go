package repository

import (
	"context"

	"payout-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointRepository defines the interface for ScanCheckpoint data access
type CheckpointRepository interface {
	Get(ctx context.Context, network, contractAddress string) (*models.ScanCheckpoint, error)

	// Upsert creates or updates the checkpoint for (network, contract) in a
	// single conflict-aware write.
	Upsert(ctx context.Context, network, contractAddress string, block uint64) error
}

type checkpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new CheckpointRepository instance
func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Get(ctx context.Context, network, contractAddress string) (*models.ScanCheckpoint, error) {
	var checkpoint models.ScanCheckpoint
	err := r.db.WithContext(ctx).
		Where("network = ? AND contract_address = ?", network, contractAddress).
		First(&checkpoint).Error
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

func (r *checkpointRepository) Upsert(ctx context.Context, network, contractAddress string, block uint64) error {
	checkpoint := models.ScanCheckpoint{
		Network:            network,
		ContractAddress:    contractAddress,
		LastProcessedBlock: block,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "network"}, {Name: "contract_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_processed_block", "updated_at"}),
		}).
		Create(&checkpoint).Error
}
