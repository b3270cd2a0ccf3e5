// Package events publishes settlement lifecycle events over NATS so the
// dashboard and bot collaborators can react without polling.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"payout-backend/internal/config"
	"payout-backend/internal/models"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	SubjectWithdrawCompleted = "payout.withdrawal.completed"
	SubjectWithdrawFailed    = "payout.withdrawal.failed"
	SubjectLedgerEntry       = "payout.ledger.entry"
)

// Publisher wraps a NATS connection. A nil Publisher is valid and drops
// every publish, so callers never branch on whether NATS is configured.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// Connect establishes the NATS connection. Returns (nil, nil) when no URL
// is configured.
func Connect(cfg *config.NATSConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS not configured, event publishing disabled")
		return nil, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(time.Duration(cfg.Timeout)*time.Second),
		nats.ReconnectWait(time.Duration(cfg.ReconnectWait)*time.Second),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logger.WithField("url", cfg.URL).Info("NATS client connected")
	return &Publisher{conn: conn, logger: logger}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// WithdrawEvent is the payload for withdrawal lifecycle subjects.
type WithdrawEvent struct {
	WithdrawID     string    `json:"withdraw_id"`
	AccountID      string    `json:"account_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Network        string    `json:"network"`
	SettlementTxID string    `json:"settlement_tx_id,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// LedgerEvent is the payload for newly discovered ledger entries.
type LedgerEvent struct {
	TxHash        string    `json:"tx_hash"`
	WalletAddress string    `json:"wallet_address"`
	Direction     string    `json:"direction"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Network       string    `json:"network"`
	BlockNumber   uint64    `json:"block_number"`
	Timestamp     time.Time `json:"timestamp"`
}

// PublishWithdrawCompleted emits a completed settlement event.
func (p *Publisher) PublishWithdrawCompleted(w *models.WithdrawRequest) {
	p.publish(SubjectWithdrawCompleted, WithdrawEvent{
		WithdrawID:     w.ID,
		AccountID:      w.AccountID,
		Amount:         w.Amount.String(),
		Currency:       w.Currency,
		Network:        w.Network,
		SettlementTxID: w.SettlementTxID,
		Timestamp:      time.Now(),
	})
}

// PublishWithdrawFailed emits a failed settlement event.
func (p *Publisher) PublishWithdrawFailed(w *models.WithdrawRequest, reason string) {
	p.publish(SubjectWithdrawFailed, WithdrawEvent{
		WithdrawID:    w.ID,
		AccountID:     w.AccountID,
		Amount:        w.Amount.String(),
		Currency:      w.Currency,
		Network:       w.Network,
		FailureReason: reason,
		Timestamp:     time.Now(),
	})
}

// PublishLedgerEntry emits a newly ingested ledger entry.
func (p *Publisher) PublishLedgerEntry(e *models.LedgerEntry) {
	p.publish(SubjectLedgerEntry, LedgerEvent{
		TxHash:        e.TxHash,
		WalletAddress: e.WalletAddress,
		Direction:     string(e.Direction),
		Amount:        e.Amount.String(),
		Currency:      e.Currency,
		Network:       e.Network,
		BlockNumber:   e.BlockNumber,
		Timestamp:     time.Now(),
	})
}

func (p *Publisher) publish(subject string, payload interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to marshal event payload")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
