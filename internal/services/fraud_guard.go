package services

import (
	"context"
	"fmt"

	"payout-backend/internal/metrics"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	denyReasonRestricted = "account is not in active status"
	denyReasonSharedIP   = "multiple active accounts detected on the same IP address"
	banReasonSharedIP    = "multi-account abuse: shared IP detected during withdrawal"
)

// Denial is a first-class deny outcome, not an error. BannedAccountIDs is
// populated when the shared-IP rule fired.
type Denial struct {
	Reason           string
	BannedAccountIDs []string
}

// FraudGuard detects multi-account abuse before any payout is released. It
// runs synchronously inline with the withdrawal transition.
type FraudGuard struct {
	accounts repository.AccountRepository
	logger   *logrus.Logger
}

// NewFraudGuard creates a new FraudGuard instance
func NewFraudGuard(accounts repository.AccountRepository, logger *logrus.Logger) *FraudGuard {
	return &FraudGuard{accounts: accounts, logger: logger}
}

// Check returns nil when the payout may proceed, a Denial when it must not,
// or an error on storage failure. When other active accounts share the
// requester's IP, every active account on that IP is banned, the requester
// included.
func (g *FraudGuard) Check(ctx context.Context, account *models.Account) (*Denial, error) {
	if account.Status != models.AccountStatusActive {
		return &Denial{Reason: denyReasonRestricted}, nil
	}

	siblings, err := g.accounts.FindOtherActiveByIP(ctx, account.IPAddress, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IP: %w", err)
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	banned, err := g.accounts.BanActiveByIP(ctx, account.IPAddress, banReasonSharedIP)
	if err != nil {
		return nil, fmt.Errorf("failed to ban accounts on shared IP: %w", err)
	}

	metrics.FraudBansTotal.Add(float64(len(banned)))
	g.logger.WithFields(logrus.Fields{
		"ip":         account.IPAddress,
		"account_id": account.ID,
		"banned":     banned,
		"ban_count":  len(banned),
	}).Warn("shared-IP multi-account detected, accounts banned")

	return &Denial{Reason: denyReasonSharedIP, BannedAccountIDs: banned}, nil
}
