package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/config"
	"payout-backend/internal/events"
	"payout-backend/internal/metrics"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// transferEventTopic is keccak256("Transfer(address,address,uint256)").
var transferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ChainIndexer discovers token-transfer events touching custodial wallets
// and turns them into ledger entries exactly once.
type ChainIndexer struct {
	registry    *EndpointRegistry
	assets      repository.AssetConfigRepository
	wallets     repository.WalletRepository
	ledger      repository.LedgerRepository
	checkpoints repository.CheckpointRepository
	publisher   *events.Publisher
	cfg         *config.IndexerConfig
	logger      *logrus.Logger
}

// NewChainIndexer creates a new ChainIndexer instance
func NewChainIndexer(
	registry *EndpointRegistry,
	assets repository.AssetConfigRepository,
	wallets repository.WalletRepository,
	ledger repository.LedgerRepository,
	checkpoints repository.CheckpointRepository,
	publisher *events.Publisher,
	cfg *config.IndexerConfig,
	logger *logrus.Logger,
) *ChainIndexer {
	return &ChainIndexer{
		registry:    registry,
		assets:      assets,
		wallets:     wallets,
		ledger:      ledger,
		checkpoints: checkpoints,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// ScanAll runs one scan pass over every active token asset. Networks with
// no reachable endpoint are skipped with a warning; their checkpoints do
// not move. Returns the total number of newly discovered entries.
func (ix *ChainIndexer) ScanAll(ctx context.Context) (int, error) {
	targets, err := ix.assets.ListActiveTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list scan targets: %w", err)
	}

	discovered := 0
	for _, asset := range targets {
		count, err := ix.Scan(ctx, asset.Network, asset.ContractAddress)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnavailable) {
				ix.logger.WithFields(logrus.Fields{
					"network":  asset.Network,
					"contract": asset.ContractAddress,
				}).Warn("no working endpoint, skipping network for this pass")
				metrics.IndexerScansTotal.WithLabelValues(asset.Network, "skipped").Inc()
				continue
			}
			metrics.IndexerScansTotal.WithLabelValues(asset.Network, "error").Inc()
			return discovered, err
		}
		metrics.IndexerScansTotal.WithLabelValues(asset.Network, "success").Inc()
		discovered += count
	}
	return discovered, nil
}

// Scan processes transfer logs for one (network, contract) pair from the
// persisted checkpoint to the current head. Re-ingestion is idempotent:
// known tx hashes are skipped and racing duplicate inserts are swallowed.
func (ix *ChainIndexer) Scan(ctx context.Context, network, contractAddress string) (int, error) {
	asset, err := ix.assets.GetByContract(ctx, network, contractAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NotFoundf("no active asset config for contract %s on %s", contractAddress, network)
		}
		return 0, err
	}

	client, _, err := ix.registry.Resolve(ctx, network)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, apperrors.Externalf("failed to fetch block height for %s: %v", network, err)
	}

	fromBlock, err := ix.resolveFromBlock(ctx, network, contractAddress, head)
	if err != nil {
		return 0, err
	}

	known, err := ix.ledger.KnownHashes(ctx, network)
	if err != nil {
		return 0, fmt.Errorf("failed to load known tx hashes: %w", err)
	}

	wallets, err := ix.wallets.ListByNetwork(ctx, network)
	if err != nil {
		return 0, fmt.Errorf("failed to list custodial wallets: %w", err)
	}

	discovered := 0
	for _, wallet := range wallets {
		count, err := ix.scanWallet(ctx, client, asset, wallet, fromBlock, head, known)
		if err != nil {
			return discovered, err
		}
		discovered += count
	}

	// Checkpoint advances once to the height observed at scan start, after
	// every wallet's logs are fully processed. A pass that fails mid-loop
	// leaves the old checkpoint in place; re-scanning the window is
	// idempotent.
	if err := ix.checkpoints.Upsert(ctx, network, contractAddress, head); err != nil {
		return discovered, fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	metrics.IndexerCheckpointBlock.WithLabelValues(network, contractAddress).Set(float64(head))

	ix.logger.WithFields(logrus.Fields{
		"network":    network,
		"contract":   contractAddress,
		"from_block": fromBlock,
		"head":       head,
		"discovered": discovered,
	}).Info("scan pass completed")

	return discovered, nil
}

// resolveFromBlock applies the checkpoint policy: bounded backfill on first
// run; reset to head when the checkpoint went stale (accepting a gap rather
// than an unbounded backfill); otherwise resume from the checkpoint.
func (ix *ChainIndexer) resolveFromBlock(ctx context.Context, network, contractAddress string, head uint64) (uint64, error) {
	checkpoint, err := ix.checkpoints.Get(ctx, network, contractAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if head > ix.cfg.BackfillBlocks {
				return head - ix.cfg.BackfillBlocks, nil
			}
			return 0, nil
		}
		return 0, err
	}

	if time.Since(checkpoint.UpdatedAt) > ix.cfg.StaleAfter() {
		ix.logger.WithFields(logrus.Fields{
			"network":    network,
			"contract":   contractAddress,
			"checkpoint": checkpoint.LastProcessedBlock,
			"head":       head,
		}).Warn("checkpoint is stale, resetting scan window to current head")
		return head, nil
	}

	return checkpoint.LastProcessedBlock, nil
}

func (ix *ChainIndexer) scanWallet(ctx context.Context, client ChainClient, asset *models.AssetConfig, wallet *models.CustodialWallet, fromBlock, toBlock uint64, known map[string]struct{}) (int, error) {
	walletAddr := common.HexToAddress(wallet.Address)
	walletTopic := common.BytesToHash(common.LeftPadBytes(walletAddr.Bytes(), 32))
	contract := common.HexToAddress(asset.ContractAddress)

	outgoing, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{transferEventTopic}, {walletTopic}},
	})
	if err != nil {
		return 0, apperrors.Externalf("failed to query sender logs: %v", err)
	}

	incoming, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{transferEventTopic}, nil, {walletTopic}},
	})
	if err != nil {
		return 0, apperrors.Externalf("failed to query recipient logs: %v", err)
	}

	discovered := 0
	for _, log := range append(outgoing, incoming...) {
		saved, err := ix.ingestLog(ctx, asset, wallet, &log, known)
		if err != nil {
			return discovered, err
		}
		if saved {
			discovered++
		}
	}
	return discovered, nil
}

// ingestLog persists a single transfer log as a ledger entry. Returns false
// when the tx hash was already recorded.
func (ix *ChainIndexer) ingestLog(ctx context.Context, asset *models.AssetConfig, wallet *models.CustodialWallet, log *types.Log, known map[string]struct{}) (bool, error) {
	if len(log.Topics) < 3 {
		return false, nil
	}

	txHash := log.TxHash.Hex()
	if _, seen := known[txHash]; seen {
		return false, nil
	}

	from := common.BytesToAddress(log.Topics[1].Bytes())
	to := common.BytesToAddress(log.Topics[2].Bytes())
	amount := decimal.NewFromBigInt(new(big.Int).SetBytes(log.Data), -asset.Decimals)

	direction := models.LedgerDirectionDeposit
	if strings.EqualFold(from.Hex(), wallet.Address) {
		direction = models.LedgerDirectionWithdrawal
	}

	entry := &models.LedgerEntry{
		ID:            uuid.NewString(),
		TxHash:        txHash,
		WalletAddress: wallet.Address,
		BlockNumber:   log.BlockNumber,
		Direction:     direction,
		Amount:        amount,
		Currency:      asset.Currency,
		Network:       asset.Network,
		FromAddress:   from.Hex(),
		ToAddress:     to.Hex(),
	}

	if err := ix.ledger.Create(ctx, entry); err != nil {
		// A racing insert of the same tx hash is an expected idempotency
		// collision, not a failure.
		if repository.IsDuplicateEntry(err) {
			known[txHash] = struct{}{}
			return false, nil
		}
		return false, fmt.Errorf("failed to persist ledger entry: %w", err)
	}

	known[txHash] = struct{}{}
	metrics.IndexerEntriesDiscovered.WithLabelValues(asset.Network, string(direction)).Inc()
	ix.publisher.PublishLedgerEntry(entry)
	return true, nil
}
