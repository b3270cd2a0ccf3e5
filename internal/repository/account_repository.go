package repository

import (
	"context"

	"payout-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for Account data access
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// DebitBalance atomically subtracts amount when the balance covers it.
	// Returns false (and no mutation) when it does not.
	DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (bool, error)

	// CreditBalance atomically adds amount to the account balance.
	CreditBalance(ctx context.Context, id string, amount decimal.Decimal) error

	// FindOtherActiveByIP returns active accounts sharing the IP, excluding id.
	FindOtherActiveByIP(ctx context.Context, ip, excludeID string) ([]*models.Account, error)

	// BanActiveByIP marks every active account on the IP as banned and
	// returns the affected IDs.
	BanActiveByIP(ctx context.Context, ip, reason string) ([]string, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// DebitBalance uses a single conditional UPDATE so two concurrent debits
// cannot both succeed against the same funds.
func (r *accountRepository) DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *accountRepository) CreditBalance(ctx context.Context, id string, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

func (r *accountRepository) FindOtherActiveByIP(ctx context.Context, ip, excludeID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.WithContext(ctx).
		Where("ip_address = ? AND status = ? AND id <> ?", ip, models.AccountStatusActive, excludeID).
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) BanActiveByIP(ctx context.Context, ip, reason string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("ip_address = ? AND status = ?", ip, models.AccountStatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id IN ? AND status = ?", ids, models.AccountStatusActive).
		Updates(map[string]interface{}{
			"status":     models.AccountStatusBanned,
			"ban_reason": reason,
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
