package services

import (
	"context"
	"testing"

	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAccount(t *testing.T, gdb *gorm.DB, id, ip string, status models.AccountStatus, balance string) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:        id,
		Balance:   mustDecimal(t, balance),
		IPAddress: ip,
		Status:    status,
	}
	require.NoError(t, gdb.Create(account).Error)
	return account
}

func TestFraudGuardAllowsSoloActiveAccount(t *testing.T) {
	gdb := newTestDB(t)
	accounts := repository.NewAccountRepository(gdb)
	account := seedAccount(t, gdb, "acc-1", "10.0.0.1", models.AccountStatusActive, "100")

	guard := NewFraudGuard(accounts, newTestLogger())
	denial, err := guard.Check(context.Background(), account)
	require.NoError(t, err)
	assert.Nil(t, denial)
}

func TestFraudGuardDeniesRestrictedAccount(t *testing.T) {
	gdb := newTestDB(t)
	accounts := repository.NewAccountRepository(gdb)
	banned := seedAccount(t, gdb, "acc-1", "10.0.0.1", models.AccountStatusBanned, "100")
	suspended := seedAccount(t, gdb, "acc-2", "10.0.0.2", models.AccountStatusSuspended, "100")

	guard := NewFraudGuard(accounts, newTestLogger())
	for _, account := range []*models.Account{banned, suspended} {
		denial, err := guard.Check(context.Background(), account)
		require.NoError(t, err)
		require.NotNil(t, denial)
		assert.Equal(t, denyReasonRestricted, denial.Reason)
		assert.Empty(t, denial.BannedAccountIDs)
	}
}

func TestFraudGuardBansAllAccountsOnSharedIP(t *testing.T) {
	gdb := newTestDB(t)
	accounts := repository.NewAccountRepository(gdb)
	requester := seedAccount(t, gdb, "acc-1", "10.0.0.1", models.AccountStatusActive, "100")
	seedAccount(t, gdb, "acc-2", "10.0.0.1", models.AccountStatusActive, "50")
	seedAccount(t, gdb, "acc-3", "10.0.0.1", models.AccountStatusBanned, "10")
	bystander := seedAccount(t, gdb, "acc-4", "10.0.0.2", models.AccountStatusActive, "10")

	guard := NewFraudGuard(accounts, newTestLogger())
	denial, err := guard.Check(context.Background(), requester)
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, denyReasonSharedIP, denial.Reason)

	// The requester and the active sibling are both banned; the already
	// banned account and the unrelated IP are untouched.
	assert.ElementsMatch(t, []string{"acc-1", "acc-2"}, denial.BannedAccountIDs)

	var stored models.Account
	require.NoError(t, gdb.First(&stored, "id = ?", "acc-1").Error)
	assert.Equal(t, models.AccountStatusBanned, stored.Status)
	assert.Equal(t, banReasonSharedIP, stored.BanReason)

	stored = models.Account{}
	require.NoError(t, gdb.First(&stored, "id = ?", "acc-4").Error)
	assert.Equal(t, models.AccountStatusActive, stored.Status)
	assert.Equal(t, bystander.Balance.String(), stored.Balance.String())
}

func TestFraudGuardBanDoesNotTouchBalances(t *testing.T) {
	gdb := newTestDB(t)
	accounts := repository.NewAccountRepository(gdb)
	requester := seedAccount(t, gdb, "acc-1", "10.0.0.1", models.AccountStatusActive, "77.5")
	seedAccount(t, gdb, "acc-2", "10.0.0.1", models.AccountStatusActive, "12.25")

	guard := NewFraudGuard(accounts, newTestLogger())
	_, err := guard.Check(context.Background(), requester)
	require.NoError(t, err)

	var stored models.Account
	require.NoError(t, gdb.First(&stored, "id = ?", "acc-1").Error)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("77.5")))
	stored = models.Account{}
	require.NoError(t, gdb.First(&stored, "id = ?", "acc-2").Error)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("12.25")))
}
