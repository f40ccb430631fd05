package eth

import (
	"context"
	"math/big"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

type mockEthClient struct {
	mock.Mock
}

func (m *mockEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	args := m.Called(ctx, number)
	header, _ := args.Get(0).(*types.Header)
	return header, args.Error(1)
}

func (m *mockEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	args := m.Called(ctx, q)
	logs, _ := args.Get(0).([]types.Log)
	return logs, args.Error(1)
}

func (m *mockEthClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	args := m.Called(ctx, hash)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Bool(1), args.Error(2)
}

func (m *mockEthClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	args := m.Called(ctx, ch)
	sub, _ := args.Get(0).(ethereum.Subscription)
	return sub, args.Error(1)
}

func (m *mockEthClient) Close() {
	m.Called()
}

type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) Decode(ctx context.Context, logs []types.Log) ([]engine.Event, error) {
	args := m.Called(ctx, logs)
	events, _ := args.Get(0).([]engine.Event)
	return events, args.Error(1)
}

type mockBlockHashDb struct {
	mock.Mock
}

func (m *mockBlockHashDb) GetHash(blockNumber uint64) (common.Hash, bool) {
	args := m.Called(blockNumber)
	return args.Get(0).(common.Hash), args.Bool(1)
}

func (m *mockBlockHashDb) SetHash(blockNumber uint64, hash common.Hash) error {
	return m.Called(blockNumber, hash).Error(0)
}

func (m *mockBlockHashDb) RevertFromBlock(fromBlock uint64) error {
	return m.Called(fromBlock).Error(0)
}
