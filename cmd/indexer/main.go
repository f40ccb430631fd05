package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/6529-Collections/6529stats/internal/config"
	"github.com/6529-Collections/6529stats/internal/db"
	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/feed"
	"github.com/6529-Collections/6529stats/internal/indexer"
	"github.com/6529-Collections/6529stats/internal/registry"
	"github.com/6529-Collections/6529stats/internal/rpc"
	"github.com/6529-Collections/6529stats/internal/store"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	cfg := config.Get()
	zap.L().Info("Starting 6529-Collections/6529stats...",
		zap.String("Version", Version))

	// Main context: canceled when we want to stop normal operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	kv, err := db.OpenBadger(cfg.BadgerPath)
	if err != nil {
		zap.L().Fatal("Failed to open Badger", zap.Error(err))
	}
	sqlite, err := db.OpenSqlite(cfg.SqlitePath)
	if err != nil {
		zap.L().Fatal("Failed to open SQLite", zap.Error(err))
	}

	reg := registry.Default()
	if cfg.RegistryFile != "" {
		if err := registry.LoadFile(cfg.RegistryFile, reg); err != nil {
			zap.L().Fatal("Failed to load registry file", zap.String("path", cfg.RegistryFile), zap.Error(err))
		}
	}

	eng := engine.New(store.NewBadgerStore(kv), reg, engine.WithSparseLedger(cfg.LedgerSparseCompaction))
	actionFeed := feed.New(sqlite)

	closeRpcServer := rpc.StartRPCServer(cfg.RPCPort, rpc.API{
		Version: Version,
		Chains:  reg.Chains(),
		Stats:   eng,
		Feed:    actionFeed,
	}, ctx)

	sources, closeClients, err := indexer.BuildChainSources(cfg, sqlite, reg)
	if err != nil {
		zap.L().Fatal("Failed to configure chains", zap.Error(err))
	}

	indexerDone := make(chan struct{})
	if len(sources) == 0 {
		zap.L().Warn("No chains to index, serving API only")
		close(indexerDone)
	} else {
		ix := indexer.New(eng, actionFeed, sources, indexer.RetryConfig{
			EventTimeout:  time.Duration(cfg.EventTimeoutSeconds) * time.Second,
			MaxRetryDelay: time.Duration(cfg.EventMaxRetrySeconds) * time.Second,
		})
		go func() {
			defer close(indexerDone)
			if err := ix.Run(ctx); err != nil {
				zap.L().Error("Indexer stopped", zap.Error(err))
				cancel()
			}
		}()
	}
	zap.L().Info("Indexer started", zap.Int("chains", len(sources)))

	select {
	case <-sigCh:
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")
	case <-ctx.Done():
	}

	// 1. Stop new requests on RPC
	closeRpcServer()

	// 2. Stop watchers and wait for the consumer to finish its batch
	cancel()
	select {
	case <-indexerDone:
	case <-sigCh:
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}
	closeClients()

	// 3. Close DBs
	if err := sqlite.Close(); err != nil {
		zap.L().Warn("Error closing SQLite", zap.Error(err))
	}
	if err := kv.Close(); err != nil {
		zap.L().Warn("Error closing Badger", zap.Error(err))
	}

	zap.L().Info("Shutdown complete")
	_ = zap.L().Sync()
}
