package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus enum
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusBanned    AccountStatus = "banned"
	AccountStatusSuspended AccountStatus = "suspended"
)

// WithdrawStatus enum
type WithdrawStatus string

const (
	WithdrawStatusPending    WithdrawStatus = "pending"
	WithdrawStatusProcessing WithdrawStatus = "processing"
	WithdrawStatusCompleted  WithdrawStatus = "completed"
	WithdrawStatusFailed     WithdrawStatus = "failed"
	WithdrawStatusCancelled  WithdrawStatus = "cancelled"
)

// LedgerDirection classifies an observed transfer relative to the tracked wallet
type LedgerDirection string

const (
	LedgerDirectionDeposit    LedgerDirection = "deposit"
	LedgerDirectionWithdrawal LedgerDirection = "withdrawal"
)

// EndpointStatus health of an RPC candidate
type EndpointStatus string

const (
	EndpointStatusUnknown   EndpointStatus = "unknown"
	EndpointStatusHealthy   EndpointStatus = "healthy"
	EndpointStatusUnhealthy EndpointStatus = "unhealthy"
)

// Account is the balance-carrying identity withdrawals are debited from.
// Accounts are created by the reward-accounting collaborator; this service
// only mutates balance and status.
type Account struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric(36,18);not null;default:0"`
	IPAddress string          `json:"ip_address" gorm:"column:ip_address;index;not null"`
	Status    AccountStatus   `json:"status" gorm:"not null;default:'active'"`
	BanReason string          `json:"ban_reason" gorm:"type:text"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WithdrawRequest is a payout intent. The balance is debited at creation and
// credited back exactly once if the request terminates in failed or cancelled.
type WithdrawRequest struct {
	ID                 string          `json:"id" gorm:"primaryKey"`
	AccountID          string          `json:"account_id" gorm:"index;not null"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(36,18);not null"`
	Currency           string          `json:"currency" gorm:"not null"`
	Network            string          `json:"network" gorm:"not null"`
	DestinationAddress string          `json:"destination_address" gorm:"not null"`
	Memo               string          `json:"memo"`
	Status             WithdrawStatus  `json:"status" gorm:"index;not null;default:'pending'"`
	NetworkFee         decimal.Decimal `json:"network_fee" gorm:"type:numeric(36,18);not null;default:0"`
	SettlementTxID     string          `json:"settlement_tx_id" gorm:"column:settlement_tx_id"`
	Confirmations      uint64          `json:"confirmations"`
	FailureReason      string          `json:"failure_reason" gorm:"type:text"`
	ProcessedAt        *time.Time      `json:"processed_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LedgerEntry is a deduplicated on-chain transfer observed touching a
// custodial wallet. Created only by the indexer, never mutated.
type LedgerEntry struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	TxHash        string          `json:"tx_hash" gorm:"uniqueIndex;not null"`
	WalletAddress string          `json:"wallet_address" gorm:"index;not null"`
	BlockNumber   uint64          `json:"block_number" gorm:"index;not null"`
	Direction     LedgerDirection `json:"direction" gorm:"not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(36,18);not null"`
	Currency      string          `json:"currency" gorm:"not null"`
	Network       string          `json:"network" gorm:"index;not null"`
	FromAddress   string          `json:"from_address" gorm:"not null"`
	ToAddress     string          `json:"to_address" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ScanCheckpoint is the last block height fully processed for a
// (network, contract) pair. Monotonically non-decreasing across successful
// scans except the explicit staleness reset.
type ScanCheckpoint struct {
	ID                 uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Network            string    `json:"network" gorm:"uniqueIndex:idx_checkpoint_scope;not null"`
	ContractAddress    string    `json:"contract_address" gorm:"uniqueIndex:idx_checkpoint_scope;not null"`
	LastProcessedBlock uint64    `json:"last_processed_block" gorm:"not null"`
	UpdatedAt          time.Time `json:"updated_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// ChainEndpoint is one RPC candidate for a network. Candidates are tried in
// ascending priority order on every resolve.
type ChainEndpoint struct {
	ID            uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Network       string         `json:"network" gorm:"index;not null"`
	URL           string         `json:"url" gorm:"not null"`
	Priority      int            `json:"priority" gorm:"not null;default:100"`
	IsDefault     bool           `json:"is_default" gorm:"not null;default:false"`
	Status        EndpointStatus `json:"status" gorm:"not null;default:'unknown'"`
	LastCheckedAt *time.Time     `json:"last_checked_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// AssetConfig maps a (currency, network) pair to its on-chain representation.
type AssetConfig struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Currency        string    `json:"currency" gorm:"uniqueIndex:idx_asset_scope;not null"`
	Network         string    `json:"network" gorm:"uniqueIndex:idx_asset_scope;not null"`
	ContractAddress string    `json:"contract_address"`
	IsNative        bool      `json:"is_native" gorm:"not null;default:false"`
	IsActive        bool      `json:"is_active" gorm:"not null;default:true"`
	Decimals        int32     `json:"decimals" gorm:"not null;default:18"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CustodialWallet holds the signing material used to originate payouts.
// One wallet services one (currency, network) pair.
type CustodialWallet struct {
	ID         uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Address    string          `json:"address" gorm:"uniqueIndex;not null"`
	Network    string          `json:"network" gorm:"index;not null"`
	Currency   string          `json:"currency" gorm:"not null"`
	PrivateKey string          `json:"-" gorm:"column:private_key;type:text;not null"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:numeric(36,18);not null;default:0"`
	Status     string          `json:"status" gorm:"not null;default:'active'"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
