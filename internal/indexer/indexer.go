package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/eth"
	"github.com/6529-Collections/6529stats/internal/eth/ethdb"
	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/pkg/models"
	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Processor applies one event. *engine.Engine implements it.
type Processor interface {
	Process(ctx context.Context, ev engine.Event) (engine.Result, error)
}

type ActionMirror interface {
	MirrorOrLog(ctx context.Context, actions []*models.Action)
}

// ChainSource is everything the indexer needs to follow one chain.
type ChainSource struct {
	ChainID    uint64
	Watcher    eth.Watcher
	Progress   ethdb.ProgressDb
	StartBlock uint64
}

type RetryConfig struct {
	EventTimeout  time.Duration
	MaxRetryDelay time.Duration
}

// Indexer runs one watcher per chain and a single consumer that applies
// batches in arrival order. Progress for a chain only moves after every
// event of a batch was applied.
type Indexer struct {
	processor Processor
	feed      ActionMirror
	chains    []ChainSource
	retry     RetryConfig
}

func New(processor Processor, feed ActionMirror, chains []ChainSource, retry RetryConfig) *Indexer {
	if retry.EventTimeout <= 0 {
		retry.EventTimeout = 30 * time.Second
	}
	if retry.MaxRetryDelay <= 0 {
		retry.MaxRetryDelay = 5 * time.Minute
	}
	return &Indexer{processor: processor, feed: feed, chains: chains, retry: retry}
}

// Run blocks until ctx is done or a batch could not be applied.
func (i *Indexer) Run(ctx context.Context) error {
	if len(i.chains) == 0 {
		return errors.New("no chains configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := pond.NewPool(len(i.chains), pond.WithQueueSize(len(i.chains)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(runCtx)

	progress := make(map[uint64]ethdb.ProgressDb, len(i.chains))
	batches := make(chan eth.Batch, 4*len(i.chains))
	for _, c := range i.chains {
		start, err := resumeBlock(c)
		if err != nil {
			return fmt.Errorf("resume chain %d: %w", c.ChainID, err)
		}
		progress[c.ChainID] = c.Progress
		group.Submit(func() {
			if err := c.Watcher.Watch(group.Context(), start, batches); err != nil {
				zap.L().Error("Watcher stopped", zap.Uint64("chainId", c.ChainID), zap.Error(err))
			}
		})
	}

	var runErr error
consume:
	for {
		select {
		case <-runCtx.Done():
			break consume
		case batch := <-batches:
			if err := i.applyBatch(runCtx, progress[batch.ChainID], batch); err != nil {
				if runCtx.Err() != nil {
					break consume
				}
				runErr = err
				break consume
			}
		}
	}

	cancel()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		zap.L().Warn("Watcher group finished with error", zap.Error(err))
	}
	return runErr
}

func resumeBlock(c ChainSource) (uint64, error) {
	last, found, err := c.Progress.GetProgress()
	if err != nil {
		return 0, err
	}
	if !found || last+1 < c.StartBlock {
		return c.StartBlock, nil
	}
	return last + 1, nil
}

func (i *Indexer) applyBatch(ctx context.Context, progress ethdb.ProgressDb, batch eth.Batch) error {
	if progress == nil {
		return fmt.Errorf("batch for unknown chain %d", batch.ChainID)
	}
	// a rewound watcher replays blocks the progress row is already past
	if batch.FromBlock > 0 {
		if err := progress.RewindTo(ctx, batch.FromBlock-1); err != nil {
			return fmt.Errorf("rewind chain %d: %w", batch.ChainID, err)
		}
	}

	var actions []*models.Action
	for _, ev := range batch.Events {
		res, err := i.processWithRetry(ctx, ev)
		if err != nil {
			if errors.Is(err, engine.ErrMalformedEvent) {
				zap.L().Error("Skipping malformed event",
					zap.Uint64("chainId", ev.ChainID),
					zap.String("txHash", ev.TxHash),
					zap.Uint64("logIndex", ev.LogIndex),
					zap.Error(err),
				)
				continue
			}
			return err
		}
		actions = append(actions, res.Actions...)
	}

	i.feed.MirrorOrLog(ctx, actions)

	if err := progress.SetProgress(ctx, batch.ToBlock); err != nil {
		return fmt.Errorf("set progress chain %d: %w", batch.ChainID, err)
	}
	metrics.Engine().SetLastBlock(strconv.FormatUint(batch.ChainID, 10), batch.ToBlock)
	zap.L().Debug("Applied batch",
		zap.Uint64("chainId", batch.ChainID),
		zap.Uint64("fromBlock", batch.FromBlock),
		zap.Uint64("toBlock", batch.ToBlock),
		zap.Int("events", len(batch.Events)),
		zap.Int("actions", len(actions)),
	)
	return nil
}

// processWithRetry retries storage failures with exponential backoff. Malformed
// events are not retried.
func (i *Indexer) processWithRetry(ctx context.Context, ev engine.Event) (engine.Result, error) {
	var result engine.Result
	operation := func() error {
		eventCtx, cancel := context.WithTimeout(ctx, i.retry.EventTimeout)
		defer cancel()
		res, err := i.processor.Process(eventCtx, ev)
		if err != nil {
			if errors.Is(err, engine.ErrMalformedEvent) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = i.retry.MaxRetryDelay
	chainLabel := strconv.FormatUint(ev.ChainID, 10)
	notifyOnError := func(err error, wait time.Duration) {
		metrics.Engine().ObserveRetry(chainLabel)
		zap.L().Warn("Retrying event",
			zap.Uint64("chainId", ev.ChainID),
			zap.String("txHash", ev.TxHash),
			zap.Uint64("logIndex", ev.LogIndex),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError)
	return result, err
}
