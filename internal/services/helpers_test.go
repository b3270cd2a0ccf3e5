package services

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"payout-backend/internal/config"
	"payout-backend/internal/db"
	"payout-backend/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testWalletKey is a throwaway development key, address
// 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const (
	testWalletKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testWalletAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testIndexerConfig() *config.IndexerConfig {
	return &config.IndexerConfig{
		BackfillBlocks:          1000,
		StaleAfterMinutes:       60,
		ProbeTimeoutSeconds:     1,
		ReceiptWaitSeconds:      1,
		ReceiptPollMilliseconds: 10,
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// fakeChainClient satisfies ChainClient with overridable behavior. Zero
// values give a healthy single-node chain at block 105.
type fakeChainClient struct {
	blockNumber   uint64
	blockErr      error
	logs          []types.Log
	filterErr     error
	filterQueries []ethereum.FilterQuery
	sentTxs       []*types.Transaction
	sendErr       error
	decimals      uint8
	receipt       *types.Receipt
	receiptErr    error
	closed        bool
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{blockNumber: 105, decimals: 18}
}

func (f *fakeChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	if f.blockErr != nil {
		return 0, f.blockErr
	}
	return f.blockNumber, nil
}

func (f *fakeChainClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	f.filterQueries = append(f.filterQueries, q)

	// Return only logs the query's topic filter would match.
	var matched []types.Log
	for _, log := range f.logs {
		if logMatchesQuery(&log, q) {
			matched = append(matched, log)
		}
	}
	return matched, nil
}

func logMatchesQuery(log *types.Log, q ethereum.FilterQuery) bool {
	for i, alternatives := range q.Topics {
		if alternatives == nil {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if log.Topics[i] == topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeChainClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeChainClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeChainClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	return nil
}

func (f *fakeChainClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	// decimals() response: uint8 ABI-encoded in a 32-byte word.
	out := make([]byte, 32)
	out[31] = f.decimals
	return out, nil
}

func (f *fakeChainClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &types.Receipt{BlockNumber: new(big.Int).SetUint64(f.blockNumber)}, nil
}

func (f *fakeChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeChainClient) Close() {
	f.closed = true
}

// transferLog builds a Transfer event log the indexer can ingest.
func transferLog(contract, from, to string, amount *big.Int, block uint64, txHash string) types.Log {
	return types.Log{
		Address: common.HexToAddress(contract),
		Topics: []common.Hash{
			transferEventTopic,
			common.BytesToHash(common.LeftPadBytes(common.HexToAddress(from).Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)),
		},
		Data:        common.LeftPadBytes(amount.Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.HexToHash(txHash),
	}
}

func seedEndpoint(t *testing.T, gdb *gorm.DB, network, url string, priority int) *models.ChainEndpoint {
	t.Helper()
	endpoint := &models.ChainEndpoint{
		Network:  network,
		URL:      url,
		Priority: priority,
		Status:   models.EndpointStatusUnknown,
	}
	require.NoError(t, gdb.Create(endpoint).Error)
	return endpoint
}
