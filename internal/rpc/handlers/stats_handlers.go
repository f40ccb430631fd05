package handlers

import (
	"net/http"

	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
)

type CollectionStatsResponse struct {
	Collection string                   `json:"collection"`
	Global     *models.CollectionStat   `json:"global"`
	Chains     []*models.CollectionStat `json:"chains"`
}

// StatsGetHandler serves /stats/{collection} (global view plus every chain)
// and /stats/{collection}/{chainId|global}.
func StatsGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "stats/"))
	switch len(params) {
	case 1:
		collection := params[0]
		global, err := reader.CollectionStat(r.Context(), collection, constants.GLOBAL_CHAIN_ID)
		if err != nil {
			return nil, err
		}
		if global == nil {
			return nil, notFound("collection")
		}
		chains, err := reader.CollectionChains(r.Context(), collection)
		if err != nil {
			return nil, err
		}
		return CollectionStatsResponse{Collection: collection, Global: global, Chains: chains}, nil
	case 2:
		chainID, err := parseChain(params[1])
		if err != nil {
			return nil, err
		}
		stat, err := reader.CollectionStat(r.Context(), params[0], chainID)
		if err != nil {
			return nil, err
		}
		if stat == nil {
			return nil, notFound("collection")
		}
		return stat, nil
	default:
		return nil, badRequest("expected /stats/{collection}[/{chainId}]")
	}
}

// HolderGetHandler serves /holders/{scope}/{chainId}/{address}.
func HolderGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "holders/"))
	if len(params) != 3 {
		return nil, badRequest("expected /holders/{scope}/{chainId}/{address}")
	}
	chainID, err := parseChainStrict(params[1])
	if err != nil {
		return nil, err
	}
	balance, err := reader.HolderBalance(r.Context(), params[0], chainID, params[2])
	if err != nil {
		return nil, readError(err)
	}
	if balance == nil {
		return nil, notFound("holder")
	}
	return balance, nil
}
