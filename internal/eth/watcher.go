package eth

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/eth/ethdb"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var ErrReorgDetected = errors.New("reorg detected")

const (
	defaultMaxChunkSize = 2000
	reorgCheckDepth     = 12
	pollInterval        = 3 * time.Second
)

// Batch is one contiguous block range of one chain. Events are ordered;
// ToBlock is safe to record as progress once every event was handled.
type Batch struct {
	ChainID   uint64
	FromBlock uint64
	ToBlock   uint64
	Events    []engine.Event
}

type Watcher interface {
	Watch(ctx context.Context, startBlock uint64, batches chan<- Batch) error
}

type ChainWatcher struct {
	chainID      uint64
	client       EthClient
	decoder      EthTransactionLogsDecoder
	blockTracker ethdb.BlockHashDb
	contracts    []common.Address
	maxChunkSize uint64
}

type WatcherConfig struct {
	ChainID      uint64
	Client       EthClient
	Decoder      EthTransactionLogsDecoder
	BlockTracker ethdb.BlockHashDb
	Contracts    []string
	MaxChunkSize uint64
}

func NewChainWatcher(cfg WatcherConfig) *ChainWatcher {
	maxChunkSize := cfg.MaxChunkSize
	if maxChunkSize == 0 {
		maxChunkSize = defaultMaxChunkSize
	}
	contracts := make([]common.Address, len(cfg.Contracts))
	for i, addr := range cfg.Contracts {
		contracts[i] = common.HexToAddress(addr)
	}
	return &ChainWatcher{
		chainID:      cfg.ChainID,
		client:       cfg.Client,
		decoder:      cfg.Decoder,
		blockTracker: cfg.BlockTracker,
		contracts:    contracts,
		maxChunkSize: maxChunkSize,
	}
}

// Watch catches up from startBlock to the chain tip in chunks, then follows
// new heads (subscription when available, polling otherwise). It returns nil
// when ctx is done.
func (w *ChainWatcher) Watch(ctx context.Context, startBlock uint64, batches chan<- Batch) error {
	zap.L().Info("Starting watch on contracts",
		zap.Uint64("chainId", w.chainID),
		zap.Int("contracts", len(w.contracts)),
		zap.Uint64("startBlock", startBlock),
	)

	var heads chan *types.Header
	var sub ethereum.Subscription
	defer func() {
		if sub != nil {
			sub.Unsubscribe()
		}
	}()

	currentBlock := startBlock
	for {
		if ctx.Err() != nil {
			return nil
		}
		tipBlock, err := latestBlockNumber(ctx, w.client)
		if err != nil {
			if sleepInterrupted(ctx, time.Second) {
				return nil
			}
			continue
		}

		if currentBlock <= tipBlock {
			endBlock := min(currentBlock+w.maxChunkSize-1, tipBlock)
			next, err := w.processRange(ctx, currentBlock, endBlock, batches)
			if err != nil {
				if errors.Is(err, ErrReorgDetected) {
					currentBlock = next
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				zap.L().Warn("Failed processing blocks range", zap.Uint64("chainId", w.chainID), zap.Error(err))
				if sleepInterrupted(ctx, time.Second) {
					return nil
				}
				continue
			}
			currentBlock = next
			continue
		}

		if sub == nil && heads == nil {
			heads = make(chan *types.Header, 16)
			sub, err = w.client.SubscribeNewHead(ctx, heads)
			if err != nil {
				zap.L().Info("Head subscription unavailable, polling", zap.Uint64("chainId", w.chainID), zap.Error(err))
				sub = nil
			}
		}
		ok, subErr := w.waitForHead(ctx, sub, heads)
		if subErr != nil {
			zap.L().Warn("Head subscription dropped, polling", zap.Uint64("chainId", w.chainID), zap.Error(subErr))
			sub.Unsubscribe()
			sub = nil
		}
		if !ok {
			return nil
		}
	}
}

// waitForHead blocks until a new head arrives or the poll interval passes.
// It returns false when ctx is done, and the subscription error if it died.
func (w *ChainWatcher) waitForHead(ctx context.Context, sub ethereum.Subscription, heads <-chan *types.Header) (bool, error) {
	if sub == nil {
		return !sleepInterrupted(ctx, pollInterval), nil
	}
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, nil
	case err := <-sub.Err():
		if err == nil {
			err = errors.New("subscription closed")
		}
		return true, err
	case <-heads:
		return true, nil
	case <-timer.C:
		return true, nil
	}
}

// processRange fetches, decodes and hands over one range. It returns the
// next block to process: endBlock+1 on success, the rewind point on reorg.
func (w *ChainWatcher) processRange(ctx context.Context, startBlock, endBlock uint64, batches chan<- Batch) (uint64, error) {
	if reorgStart, err := w.checkAndHandleReorg(ctx, startBlock); err != nil {
		return reorgStart, err
	}

	logs, err := fetchLogsInRange(ctx, w.client, w.contracts, startBlock, endBlock)
	if err != nil {
		zap.L().Error("Failed fetching logs",
			zap.Uint64("chainId", w.chainID),
			zap.Uint64("start", startBlock),
			zap.Uint64("end", endBlock),
			zap.Error(err),
		)
		return startBlock, err
	}

	events, err := w.decoder.Decode(ctx, logs)
	if err != nil {
		return startBlock, err
	}

	// remember the hash of every block we hand over events for, plus the
	// range end, so the next pass can detect a reorg underneath us
	hashBlocks := map[uint64]bool{endBlock: true}
	for _, ev := range events {
		hashBlocks[ev.BlockNumber] = true
	}
	for b := range hashBlocks {
		header, err := w.client.HeaderByNumber(ctx, new(big.Int).SetUint64(b))
		if err != nil {
			zap.L().Error("Could not fetch block header", zap.Uint64("block", b), zap.Error(err))
			return startBlock, err
		}
		chainHash := header.Hash()
		recordedHash, found := w.blockTracker.GetHash(b)
		if found && recordedHash != chainHash {
			zap.L().Warn("Reorg detected",
				zap.Uint64("chainId", w.chainID),
				zap.Uint64("block", b),
				zap.String("oldHash", recordedHash.Hex()),
				zap.String("newHash", chainHash.Hex()),
			)
			if err := w.blockTracker.RevertFromBlock(b); err != nil {
				zap.L().Error("Could not revert block hash", zap.Uint64("block", b), zap.Error(err))
				return startBlock, err
			}
			return startBlock, ErrReorgDetected
		}
		if !found {
			if err := w.blockTracker.SetHash(b, chainHash); err != nil {
				zap.L().Error("Could not set block hash", zap.Uint64("block", b), zap.Error(err))
				return startBlock, err
			}
		}
	}

	select {
	case batches <- Batch{ChainID: w.chainID, FromBlock: startBlock, ToBlock: endBlock, Events: events}:
	case <-ctx.Done():
		return startBlock, ctx.Err()
	}
	return endBlock + 1, nil
}

// checkAndHandleReorg compares the recorded hashes just below startBlock with
// the chain. On mismatch it forgets every hash from the first divergent block
// and returns that block as the rewind point with ErrReorgDetected.
func (w *ChainWatcher) checkAndHandleReorg(ctx context.Context, startBlock uint64) (uint64, error) {
	var reorgStart uint64
	found := false
	for i := uint64(1); i <= reorgCheckDepth && i <= startBlock; i++ {
		blockNum := startBlock - i
		recordedHash, ok := w.blockTracker.GetHash(blockNum)
		if !ok {
			continue
		}
		header, err := w.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
		if err != nil {
			zap.L().Error("Could not fetch block header (reorg check)", zap.Uint64("block", blockNum), zap.Error(err))
			return startBlock, err
		}
		if header.Hash() == recordedHash {
			break
		}
		reorgStart = blockNum
		found = true
	}
	if !found {
		return startBlock, nil
	}

	zap.L().Warn("Deep reorg detected", zap.Uint64("chainId", w.chainID), zap.Uint64("reorgStartBlock", reorgStart))
	if err := w.blockTracker.RevertFromBlock(reorgStart); err != nil {
		zap.L().Error("Could not revert block hash", zap.Uint64("block", reorgStart), zap.Error(err))
		return startBlock, err
	}
	return reorgStart, ErrReorgDetected
}

func latestBlockNumber(ctx context.Context, client EthClient) (uint64, error) {
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		zap.L().Error("Could not get latest block header", zap.Error(err))
		return 0, err
	}
	return header.Number.Uint64(), nil
}

func fetchLogsInRange(ctx context.Context, client EthClient, addresses []common.Address, startBlock, endBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(startBlock),
		ToBlock:   new(big.Int).SetUint64(endBlock),
		Addresses: addresses,
		Topics:    [][]common.Hash{EventTopics()},
	}
	return client.FilterLogs(ctx, query)
}

func sleepInterrupted(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
