package indexer

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/config"
	"github.com/6529-Collections/6529stats/internal/eth"
	"github.com/6529-Collections/6529stats/internal/eth/ethdb"
	"github.com/6529-Collections/6529stats/internal/registry"
	"go.uber.org/zap"
)

// BuildChainSources creates a watcher for every chain that has both an RPC
// url and registered contracts. The returned func closes the RPC clients.
func BuildChainSources(cfg config.Config, sqlite *sql.DB, reg *registry.Registry) ([]ChainSource, func(), error) {
	urls, err := config.ParseChainMap(cfg.ChainRpcUrls)
	if err != nil {
		return nil, nil, fmt.Errorf("CHAIN_RPC_URLS: %w", err)
	}
	rawStarts, err := config.ParseChainMap(cfg.WatcherStartBlocks)
	if err != nil {
		return nil, nil, fmt.Errorf("WATCHER_START_BLOCKS: %w", err)
	}

	chainIDs := make([]uint64, 0, len(urls))
	for chainID := range urls {
		chainIDs = append(chainIDs, chainID)
	}
	sort.Slice(chainIDs, func(a, b int) bool { return chainIDs[a] < chainIDs[b] })

	var clients []eth.EthClient
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	var sources []ChainSource
	for _, chainID := range chainIDs {
		contracts := reg.Contracts(chainID)
		if len(contracts) == 0 {
			zap.L().Warn("No registered contracts for chain, not watching", zap.Uint64("chainId", chainID))
			continue
		}
		var startBlock uint64
		if raw, ok := rawStarts[chainID]; ok {
			startBlock, err = strconv.ParseUint(raw, 10, 64)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("start block for chain %d: %w", chainID, err)
			}
		}

		client, err := eth.CreateEthClient(urls[chainID])
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("client for chain %d: %w", chainID, err)
		}
		clients = append(clients, client)

		sources = append(sources, ChainSource{
			ChainID: chainID,
			Watcher: eth.NewChainWatcher(eth.WatcherConfig{
				ChainID:      chainID,
				Client:       client,
				Decoder:      eth.NewDefaultEthTransactionLogsDecoder(chainID, client, reg),
				BlockTracker: ethdb.NewBlockHashDb(sqlite, chainID),
				Contracts:    contracts,
				MaxChunkSize: cfg.WatcherMaxChunkSize,
			}),
			Progress:   ethdb.NewProgressDb(sqlite, chainID),
			StartBlock: startBlock,
		})
	}
	return sources, closeAll, nil
}
