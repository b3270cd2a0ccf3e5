package repository

import (
	"context"
	"time"

	"payout-backend/internal/models"

	"gorm.io/gorm"
)

// WithdrawRequestRepository defines the interface for WithdrawRequest data access
type WithdrawRequestRepository interface {
	Create(ctx context.Context, request *models.WithdrawRequest) error
	GetByID(ctx context.Context, id string) (*models.WithdrawRequest, error)
	FindByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.WithdrawRequest, int64, error)

	// TransitionStatus moves the request from one of the expected prior
	// statuses to the target status in a single guarded UPDATE. Returns
	// false (no mutation) when the request was not in an expected status.
	TransitionStatus(ctx context.Context, id string, from []models.WithdrawStatus, to models.WithdrawStatus) (bool, error)

	// Complete finalizes a processing request with its settlement result.
	Complete(ctx context.Context, id, txID string, confirmations uint64) (bool, error)

	// MarkFailed resolves the request as failed, storing the reason and
	// clearing any settlement tx id. Guarded by non-terminal prior status.
	MarkFailed(ctx context.Context, id string, from []models.WithdrawStatus, reason string) (bool, error)

	// ResetToPending clears processedAt, settlement tx id and failure
	// reason. Guarded: only pending or processing rows match, so a
	// refunded or completed request is never re-armed.
	ResetToPending(ctx context.Context, id string) (bool, error)
}

type withdrawRequestRepository struct {
	db *gorm.DB
}

// NewWithdrawRequestRepository creates a new WithdrawRequestRepository instance
func NewWithdrawRequestRepository(db *gorm.DB) WithdrawRequestRepository {
	return &withdrawRequestRepository{db: db}
}

func (r *withdrawRequestRepository) Create(ctx context.Context, request *models.WithdrawRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *withdrawRequestRepository) GetByID(ctx context.Context, id string) (*models.WithdrawRequest, error) {
	var request models.WithdrawRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *withdrawRequestRepository) FindByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.WithdrawRequest, int64, error) {
	var requests []*models.WithdrawRequest
	var total int64

	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if err := query.Model(&models.WithdrawRequest{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, total, err
}

// TransitionStatus is the single write path for plain status moves. The
// WHERE clause carries the expected prior statuses so a concurrent
// transition on the same row cannot apply twice.
func (r *withdrawRequestRepository) TransitionStatus(ctx context.Context, id string, from []models.WithdrawStatus, to models.WithdrawStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *withdrawRequestRepository) Complete(ctx context.Context, id, txID string, confirmations uint64) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("id = ? AND status = ?", id, models.WithdrawStatusProcessing).
		Updates(map[string]interface{}{
			"status":           models.WithdrawStatusCompleted,
			"settlement_tx_id": txID,
			"confirmations":    confirmations,
			"processed_at":     &now,
			"failure_reason":   "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *withdrawRequestRepository) MarkFailed(ctx context.Context, id string, from []models.WithdrawStatus, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":           models.WithdrawStatusFailed,
			"failure_reason":   reason,
			"settlement_tx_id": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *withdrawRequestRepository) ResetToPending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("id = ? AND status IN ?", id,
			[]models.WithdrawStatus{models.WithdrawStatusPending, models.WithdrawStatusProcessing}).
		Updates(map[string]interface{}{
			"status":           models.WithdrawStatusPending,
			"settlement_tx_id": "",
			"failure_reason":   "",
			"processed_at":     nil,
			"confirmations":    0,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
