package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/internal/registry"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/models"
	"go.uber.org/zap"
)

var processedEvents = store.NewTable[models.ProcessedEvent]("processed")

// Result reports what Process did with one event. At most one of Duplicate,
// Skipped and Dropped is set; Actions is only filled for applied events.
type Result struct {
	Duplicate  bool
	Skipped    bool
	Dropped    bool
	DropReason error
	Actions    []*models.Action
}

type Option func(*Engine)

// WithSparseLedger removes holder rows once their balance returns to zero.
func WithSparseLedger(sparse bool) Option {
	return func(e *Engine) {
		e.ledger = NewLedger(sparse)
		e.positions = NewPositionTracker(e.ledger)
	}
}

// Engine applies decoded events to the aggregate state. It is not safe for
// concurrent Process calls on overlapping entities; callers feed it from a
// single goroutine.
type Engine struct {
	store     store.Store
	registry  *registry.Registry
	ledger    *Ledger
	burns     *BurnAttributor
	positions *PositionTracker
}

func New(s store.Store, reg *registry.Registry, opts ...Option) *Engine {
	ledger := NewLedger(false)
	e := &Engine{
		store:     s,
		registry:  reg,
		ledger:    ledger,
		burns:     NewBurnAttributor(reg),
		positions: NewPositionTracker(ledger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Process applies one event as a single unit of work. Every entity write of
// the event commits together or not at all. Redelivered events are reported
// as duplicates without touching state.
func (e *Engine) Process(ctx context.Context, ev Event) (Result, error) {
	eventType := ev.Type.String()
	if ev.TxHash == "" || ev.Params == nil {
		metrics.Engine().ObserveEvent(eventType, metrics.OutcomeFailed)
		return Result{}, fmt.Errorf("%w: event %s without tx hash or params", ErrMalformedEvent, eventType)
	}

	asset, ok := e.registry.Lookup(ev.ChainID, ev.Contract)
	if !ok {
		return e.drop(ev, ErrUnmappedContract), nil
	}
	h, ok := handlers[ev.Type]
	if !ok || !h.accepts(asset.Kind) {
		return e.drop(ev, fmt.Errorf("%w: %s on %s", ErrUnsupportedEvent, eventType, asset.Kind)), nil
	}

	var result Result
	err := e.store.Update(ctx, func(tx store.Tx) error {
		done, err := processedEvents.Exists(tx, ev.ID())
		if err != nil {
			return err
		}
		if done {
			return errDuplicate
		}

		actions, err := h.fn(e, handlerContext{tx: tx, event: ev, asset: asset})
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			return errNoop
		}
		result.Actions = actions

		return processedEvents.Set(tx, ev.ID(), &models.ProcessedEvent{
			ID:          ev.ID(),
			BlockNumber: ev.BlockNumber,
			ProcessedAt: ev.Timestamp,
		})
	})

	switch {
	case errors.Is(err, errDuplicate):
		zap.L().Debug("Event already processed", zap.String("event", ev.ID()))
		metrics.Engine().ObserveEvent(eventType, metrics.OutcomeDuplicate)
		return Result{Duplicate: true}, nil
	case errors.Is(err, errNoop):
		metrics.Engine().ObserveEvent(eventType, metrics.OutcomeSkipped)
		return Result{Skipped: true}, nil
	case err != nil:
		metrics.Engine().ObserveEvent(eventType, metrics.OutcomeFailed)
		return Result{}, fmt.Errorf("process %s %s: %w", eventType, ev.ID(), err)
	}

	metrics.Engine().ObserveEvent(eventType, metrics.OutcomeApplied)
	return result, nil
}

func (e *Engine) drop(ev Event, reason error) Result {
	zap.L().Warn("Dropping event",
		zap.String("type", ev.Type.String()),
		zap.Uint64("chainId", ev.ChainID),
		zap.String("contract", ev.Contract),
		zap.String("txHash", ev.TxHash),
		zap.Uint64("logIndex", ev.LogIndex),
		zap.Error(reason),
	)
	metrics.Engine().ObserveEvent(ev.Type.String(), metrics.OutcomeDropped)
	return Result{Dropped: true, DropReason: reason}
}
