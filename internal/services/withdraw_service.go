package services

import (
	"context"
	"errors"
	"fmt"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/events"
	"payout-backend/internal/metrics"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateWithdrawParams is the authenticated payload from the request-intake
// collaborator.
type CreateWithdrawParams struct {
	AccountID          string
	Amount             decimal.Decimal
	Currency           string
	Network            string
	DestinationAddress string
	Memo               string
}

// TransitionParams carries the operator/automation transition request.
type TransitionParams struct {
	Status        models.WithdrawStatus
	FailureReason string
}

// WithdrawService owns the payout request lifecycle: pending → processing →
// {completed, failed}; pending → cancelled. completed and cancelled are
// terminal. Every debit at creation is matched by exactly one credit if the
// request does not reach completed.
type WithdrawService struct {
	withdrawals repository.WithdrawRequestRepository
	accounts    repository.AccountRepository
	wallets     repository.WalletRepository
	assets      *AssetResolver
	registry    *EndpointRegistry
	fraudGuard  *FraudGuard
	executor    *SettlementExecutor
	publisher   *events.Publisher
	logger      *logrus.Logger
}

// NewWithdrawService creates a new WithdrawService instance
func NewWithdrawService(
	withdrawals repository.WithdrawRequestRepository,
	accounts repository.AccountRepository,
	wallets repository.WalletRepository,
	assets *AssetResolver,
	registry *EndpointRegistry,
	fraudGuard *FraudGuard,
	executor *SettlementExecutor,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *WithdrawService {
	return &WithdrawService{
		withdrawals: withdrawals,
		accounts:    accounts,
		wallets:     wallets,
		assets:      assets,
		registry:    registry,
		fraudGuard:  fraudGuard,
		executor:    executor,
		publisher:   publisher,
		logger:      logger,
	}
}

// Create validates the payload, debits the balance atomically and records a
// pending request. Validation failures reject before any mutation.
func (s *WithdrawService) Create(ctx context.Context, params CreateWithdrawParams) (*models.WithdrawRequest, error) {
	if params.AccountID == "" {
		return nil, apperrors.Validationf("account id is required")
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.Validationf("amount must be positive")
	}
	if !common.IsHexAddress(params.DestinationAddress) {
		return nil, apperrors.Validationf("malformed destination address %q", params.DestinationAddress)
	}
	if _, err := s.assets.Resolve(ctx, params.Currency, params.Network); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validationf("unsupported currency/network combination %s/%s", params.Currency, params.Network)
		}
		return nil, err
	}

	if _, err := s.getAccount(ctx, params.AccountID); err != nil {
		return nil, err
	}

	debited, err := s.accounts.DebitBalance(ctx, params.AccountID, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	if !debited {
		return nil, apperrors.Conflictf("insufficient balance for withdrawal of %s %s", params.Amount, params.Currency)
	}

	request := &models.WithdrawRequest{
		ID:                 uuid.NewString(),
		AccountID:          params.AccountID,
		Amount:             params.Amount,
		Currency:           params.Currency,
		Network:            params.Network,
		DestinationAddress: params.DestinationAddress,
		Memo:               params.Memo,
		Status:             models.WithdrawStatusPending,
	}
	if err := s.withdrawals.Create(ctx, request); err != nil {
		// The debit already landed; hand the funds back rather than strand them.
		if creditErr := s.accounts.CreditBalance(ctx, params.AccountID, params.Amount); creditErr != nil {
			s.logger.WithError(creditErr).WithField("account_id", params.AccountID).
				Error("failed to restore balance after create failure")
		}
		return nil, fmt.Errorf("failed to create withdraw request: %w", err)
	}

	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusPending)).Inc()
	s.logger.WithFields(logrus.Fields{
		"withdraw_id": request.ID,
		"account_id":  request.AccountID,
		"amount":      request.Amount.String(),
		"currency":    request.Currency,
		"network":     request.Network,
	}).Info("withdraw request created")

	return request, nil
}

// Get returns a withdrawal by id.
func (s *WithdrawService) Get(ctx context.Context, id string) (*models.WithdrawRequest, error) {
	request, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("withdraw request %s not found", id)
		}
		return nil, err
	}
	return request, nil
}

// Transition applies an operator/automation status change. Any transition
// on a completed request is rejected unconditionally.
func (s *WithdrawService) Transition(ctx context.Context, id string, params TransitionParams) (*models.WithdrawRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status == models.WithdrawStatusCompleted {
		return nil, apperrors.Conflictf("withdraw request %s is completed and immutable", id)
	}

	switch params.Status {
	case models.WithdrawStatusProcessing:
		return s.process(ctx, request)
	case models.WithdrawStatusFailed:
		reason := params.FailureReason
		if reason == "" {
			reason = "marked failed by operator"
		}
		if err := s.resolveFailed(ctx, request, reason); err != nil {
			return nil, err
		}
	case models.WithdrawStatusCancelled:
		if err := s.cancel(ctx, request); err != nil {
			return nil, err
		}
	case models.WithdrawStatusPending:
		if err := s.resetToPending(ctx, request); err != nil {
			return nil, err
		}
	case models.WithdrawStatusCompleted:
		return nil, apperrors.Validationf("completed is set by the settlement pipeline, not directly")
	default:
		return nil, apperrors.Validationf("unknown target status %q", params.Status)
	}

	return s.Get(ctx, id)
}

// process runs the settlement pipeline. Account, fraud, configuration and
// endpoint resolution all happen while the request is still pending, so a
// resolution failure rejects without touching the stored status and the
// request stays retryable. The guarded pending→processing move is the
// mutual-exclusion point and happens only once settlement can actually start.
func (s *WithdrawService) process(ctx context.Context, request *models.WithdrawRequest) (*models.WithdrawRequest, error) {
	if request.Status != models.WithdrawStatusPending {
		return nil, apperrors.Conflictf("withdraw request %s is not pending", request.ID)
	}

	account, err := s.getAccount(ctx, request.AccountID)
	if err != nil {
		return nil, err
	}

	denial, err := s.fraudGuard.Check(ctx, account)
	if err != nil {
		return nil, err
	}
	if denial != nil {
		if err := s.resolveFailed(ctx, request, denial.Reason); err != nil {
			return nil, err
		}
		return s.Get(ctx, request.ID)
	}

	asset, err := s.assets.Resolve(ctx, request.Currency, request.Network)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetForPayout(ctx, request.Currency, request.Network)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("no custodial wallet for %s on %s", request.Currency, request.Network)
		}
		return nil, err
	}

	client, _, err := s.registry.Resolve(ctx, request.Network)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	moved, err := s.withdrawals.TransitionStatus(ctx, request.ID,
		[]models.WithdrawStatus{models.WithdrawStatusPending}, models.WithdrawStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperrors.Conflictf("withdraw request %s is not pending", request.ID)
	}
	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusProcessing)).Inc()

	result, err := s.executor.Execute(ctx, client, wallet, request.DestinationAddress, request.Amount, asset)
	if err != nil {
		// Resolved to a terminal failed state with refund; the error is
		// still surfaced so the caller sees the settlement failure.
		if failErr := s.resolveFailed(ctx, request, err.Error()); failErr != nil {
			s.logger.WithError(failErr).WithField("withdraw_id", request.ID).
				Error("failed to resolve withdraw request after executor error")
		}
		return nil, apperrors.Externalf("settlement failed: %v", err)
	}

	completed, err := s.withdrawals.Complete(ctx, request.ID, result.TxHash, result.Confirmations)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, apperrors.Conflictf("withdraw request %s left processing concurrently", request.ID)
	}
	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusCompleted)).Inc()

	final, err := s.Get(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishWithdrawCompleted(final)
	s.logger.WithFields(logrus.Fields{
		"withdraw_id":   final.ID,
		"tx_hash":       final.SettlementTxID,
		"confirmations": final.Confirmations,
	}).Info("withdraw request completed")
	return final, nil
}

// resolveFailed moves the request into failed and credits the amount back
// exactly once. The guarded status update is what makes the refund
// single-shot: a request already failed or cancelled does not match.
func (s *WithdrawService) resolveFailed(ctx context.Context, request *models.WithdrawRequest, reason string) error {
	moved, err := s.withdrawals.MarkFailed(ctx, request.ID,
		[]models.WithdrawStatus{models.WithdrawStatusPending, models.WithdrawStatusProcessing}, reason)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.Conflictf("withdraw request %s is not in a failable state", request.ID)
	}

	if err := s.accounts.CreditBalance(ctx, request.AccountID, request.Amount); err != nil {
		return fmt.Errorf("failed to refund balance for %s: %w", request.ID, err)
	}
	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusFailed)).Inc()
	metrics.WithdrawRefundsTotal.Inc()

	request.FailureReason = reason
	s.publisher.PublishWithdrawFailed(request, reason)
	s.logger.WithFields(logrus.Fields{
		"withdraw_id": request.ID,
		"account_id":  request.AccountID,
		"reason":      reason,
	}).Warn("withdraw request failed, balance refunded")
	return nil
}

// cancel terminally cancels a pending request and refunds the amount.
func (s *WithdrawService) cancel(ctx context.Context, request *models.WithdrawRequest) error {
	moved, err := s.withdrawals.TransitionStatus(ctx, request.ID,
		[]models.WithdrawStatus{models.WithdrawStatusPending}, models.WithdrawStatusCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.Conflictf("only pending withdraw requests can be cancelled")
	}

	if err := s.accounts.CreditBalance(ctx, request.AccountID, request.Amount); err != nil {
		return fmt.Errorf("failed to refund balance for %s: %w", request.ID, err)
	}
	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusCancelled)).Inc()
	metrics.WithdrawRefundsTotal.Inc()
	return nil
}

// resetToPending is the manual operator reset: clears the settlement tx id,
// failure reason and processed timestamp. No balance movement: a failed or
// cancelled request was already refunded and cannot be reset. The status
// check here only shapes the error message; the repository's guarded
// update enforces the precondition.
func (s *WithdrawService) resetToPending(ctx context.Context, request *models.WithdrawRequest) error {
	if request.Status == models.WithdrawStatusFailed || request.Status == models.WithdrawStatusCancelled {
		return apperrors.Conflictf("withdraw request %s was refunded and cannot be reset", request.ID)
	}
	moved, err := s.withdrawals.ResetToPending(ctx, request.ID)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.Conflictf("withdraw request %s cannot be reset", request.ID)
	}
	metrics.WithdrawTransitionsTotal.WithLabelValues(string(models.WithdrawStatusPending)).Inc()
	return nil
}

func (s *WithdrawService) getAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("account %s not found", id)
		}
		return nil, err
	}
	return account, nil
}
