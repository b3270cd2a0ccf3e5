package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDestination = "0x4444444444444444444444444444444444444444"

func testWallet() *models.CustodialWallet {
	return &models.CustodialWallet{
		Address:    testWalletAddress,
		Network:    "ethereum",
		Currency:   "ETH",
		PrivateKey: testWalletKey,
		Status:     "active",
	}
}

func TestExecuteNativeTransfer(t *testing.T) {
	client := newFakeChainClient()
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	result, err := executor.Execute(context.Background(), client, testWallet(), testDestination,
		mustDecimal(t, "1.5"), &models.AssetConfig{Currency: "ETH", Network: "ethereum", IsNative: true, Decimals: 18})
	require.NoError(t, err)
	require.Len(t, client.sentTxs, 1)

	tx := client.sentTxs[0]
	assert.Equal(t, common.HexToAddress(testDestination), *tx.To())
	assert.Equal(t, uint64(nativeTransferGasLimit), tx.Gas())
	assert.Empty(t, tx.Data())

	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Zero(t, tx.Value().Cmp(expected))
	assert.Equal(t, tx.Hash().Hex(), result.TxHash)
}

func TestExecuteTokenTransferUsesContractDecimals(t *testing.T) {
	client := newFakeChainClient()
	client.decimals = 6
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	// The configured decimals say 18; the contract's own decimals() answer
	// of 6 is what the raw amount is shifted by.
	asset := &models.AssetConfig{
		Currency:        "PEPE",
		Network:         "ethereum",
		ContractAddress: testContract,
		Decimals:        18,
	}
	result, err := executor.Execute(context.Background(), client, testWallet(), testDestination,
		mustDecimal(t, "500"), asset)
	require.NoError(t, err)
	require.Len(t, client.sentTxs, 1)

	tx := client.sentTxs[0]
	assert.Equal(t, common.HexToAddress(testContract), *tx.To())
	assert.Equal(t, uint64(tokenTransferGasLimit), tx.Gas())
	assert.Zero(t, tx.Value().Sign())

	data := tx.Data()
	require.GreaterOrEqual(t, len(data), 4+64)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4]) // transfer selector

	rawAmount := new(big.Int).SetBytes(data[len(data)-32:])
	assert.Zero(t, rawAmount.Cmp(big.NewInt(500_000_000)))
	assert.NotEmpty(t, result.TxHash)
}

func TestExecuteCountsConfirmations(t *testing.T) {
	client := newFakeChainClient()
	client.blockNumber = 105
	client.receipt = &types.Receipt{BlockNumber: big.NewInt(103)}
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	result, err := executor.Execute(context.Background(), client, testWallet(), testDestination,
		mustDecimal(t, "1"), &models.AssetConfig{Currency: "ETH", Network: "ethereum", IsNative: true, Decimals: 18})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Confirmations)
}

func TestExecuteReceiptTimeoutStillSucceeds(t *testing.T) {
	client := newFakeChainClient()
	client.receiptErr = errors.New("not found")
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	result, err := executor.Execute(context.Background(), client, testWallet(), testDestination,
		mustDecimal(t, "1"), &models.AssetConfig{Currency: "ETH", Network: "ethereum", IsNative: true, Decimals: 18})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Confirmations)
	assert.NotEmpty(t, result.TxHash)
}

func TestExecuteSubmitFailure(t *testing.T) {
	client := newFakeChainClient()
	client.sendErr = errors.New("insufficient gas")
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	_, err := executor.Execute(context.Background(), client, testWallet(), testDestination,
		mustDecimal(t, "1"), &models.AssetConfig{Currency: "ETH", Network: "ethereum", IsNative: true, Decimals: 18})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternalService))
	assert.Contains(t, err.Error(), "insufficient gas")
}

func TestExecuteRejectsMalformedKey(t *testing.T) {
	client := newFakeChainClient()
	executor := NewSettlementExecutor(testIndexerConfig(), newTestLogger())

	wallet := testWallet()
	wallet.PrivateKey = "not-a-key"
	_, err := executor.Execute(context.Background(), client, wallet, testDestination,
		mustDecimal(t, "1"), &models.AssetConfig{Currency: "ETH", Network: "ethereum", IsNative: true, Decimals: 18})
	require.Error(t, err)
	assert.Empty(t, client.sentTxs)
}
