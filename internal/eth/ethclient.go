package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var CreateEthClient = createEthClient

type EthClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	Close()
}

func createEthClient(nodeUrl string) (EthClient, error) {
	if nodeUrl == "" {
		return nil, errors.New("failed to configure Ethereum client - node url is not set")
	}
	client, err := ethclient.Dial(nodeUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to configure Ethereum client - %w", err)
	}
	return client, nil
}
