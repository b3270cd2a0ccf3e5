package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/config"
	"payout-backend/internal/metrics"
	"payout-backend/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	nativeTransferGasLimit = 21000
	tokenTransferGasLimit  = 90000
	nativeDecimals         = 18
)

const erc20ABIJSON = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %v", err))
	}
	return parsed
}

// SettlementResult is the normalized outcome of a transfer. Callers must
// not assume whether the native or the token path produced it.
type SettlementResult struct {
	TxHash        string
	Confirmations uint64
}

// SettlementExecutor dispatches a native-asset or contract-token transfer
// through a working endpoint.
type SettlementExecutor struct {
	cfg    *config.IndexerConfig
	logger *logrus.Logger
}

// NewSettlementExecutor creates a new SettlementExecutor instance
func NewSettlementExecutor(cfg *config.IndexerConfig, logger *logrus.Logger) *SettlementExecutor {
	return &SettlementExecutor{cfg: cfg, logger: logger}
}

// Execute signs and submits the transfer from the custodial wallet to the
// destination. For token transfers the contract's own decimals() value is
// authoritative over the configured one.
func (e *SettlementExecutor) Execute(ctx context.Context, client ChainClient, wallet *models.CustodialWallet, destination string, amount decimal.Decimal, asset *models.AssetConfig) (*SettlementResult, error) {
	start := time.Now()
	defer func() {
		metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}()

	key, err := crypto.HexToECDSA(strings.TrimPrefix(wallet.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet signing key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, apperrors.Externalf("failed to fetch chain id: %v", err)
	}

	from := common.HexToAddress(wallet.Address)
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, apperrors.Externalf("failed to fetch nonce: %v", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperrors.Externalf("failed to fetch gas price: %v", err)
	}

	var tx *types.Transaction
	if asset.IsNative {
		value := amount.Shift(nativeDecimals).BigInt()
		tx = types.NewTransaction(nonce, common.HexToAddress(destination), value, nativeTransferGasLimit, gasPrice, nil)
	} else {
		tx, err = e.buildTokenTransfer(ctx, client, asset, destination, amount, nonce, gasPrice)
		if err != nil {
			return nil, err
		}
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, apperrors.Externalf("failed to submit transaction: %v", err)
	}

	txHash := signedTx.Hash()
	confirmations := e.waitForReceipt(ctx, client, txHash)

	e.logger.WithFields(logrus.Fields{
		"tx_hash":       txHash.Hex(),
		"network":       asset.Network,
		"currency":      asset.Currency,
		"native":        asset.IsNative,
		"confirmations": confirmations,
	}).Info("settlement transaction submitted")

	return &SettlementResult{TxHash: txHash.Hex(), Confirmations: confirmations}, nil
}

func (e *SettlementExecutor) buildTokenTransfer(ctx context.Context, client ChainClient, asset *models.AssetConfig, destination string, amount decimal.Decimal, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	contract := common.HexToAddress(asset.ContractAddress)

	decimals, err := e.contractDecimals(ctx, client, contract)
	if err != nil {
		return nil, apperrors.Externalf("failed to read token decimals: %v", err)
	}

	rawAmount := amount.Shift(int32(decimals)).BigInt()
	data, err := erc20ABI.Pack("transfer", common.HexToAddress(destination), rawAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer call: %w", err)
	}

	return types.NewTransaction(nonce, contract, big.NewInt(0), tokenTransferGasLimit, gasPrice, data), nil
}

// contractDecimals queries decimals() on the token contract. The on-chain
// value wins over the configured one.
func (e *SettlementExecutor) contractDecimals(ctx context.Context, client ChainClient, contract common.Address) (uint8, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return 0, err
	}

	values, err := erc20ABI.Unpack("decimals", result)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("unexpected decimals() response")
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals() type %T", values[0])
	}
	return decimals, nil
}

// waitForReceipt polls for the receipt within the configured window and
// returns the confirmation count. A timeout is not a failure: the transfer
// is already submitted, the caller records zero confirmations.
func (e *SettlementExecutor) waitForReceipt(ctx context.Context, client ChainClient, txHash common.Hash) uint64 {
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ReceiptWait())
	defer cancel()

	ticker := time.NewTicker(e.cfg.ReceiptPoll())
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			head, headErr := client.BlockNumber(waitCtx)
			if headErr != nil || head < receipt.BlockNumber.Uint64() {
				return 1
			}
			return head - receipt.BlockNumber.Uint64() + 1
		}

		select {
		case <-waitCtx.Done():
			e.logger.WithField("tx_hash", txHash.Hex()).Warn("receipt wait timed out, recording zero confirmations")
			return 0
		case <-ticker.C:
		}
	}
}
