package handlers

import (
	"net/http"
)

// PositionGetHandler serves /positions/{pool}/{chainId}/{user}.
func PositionGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "positions/"))
	if len(params) != 3 {
		return nil, badRequest("expected /positions/{pool}/{chainId}/{user}")
	}
	chainID, err := parseChainStrict(params[1])
	if err != nil {
		return nil, err
	}
	position, err := reader.Position(r.Context(), params[0], chainID, params[2])
	if err != nil {
		return nil, readError(err)
	}
	if position == nil {
		return nil, notFound("position")
	}
	return position, nil
}

// PoolGetHandler serves /pools/{pool}/{chainId}.
func PoolGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "pools/"))
	if len(params) != 2 {
		return nil, badRequest("expected /pools/{pool}/{chainId}")
	}
	chainID, err := parseChainStrict(params[1])
	if err != nil {
		return nil, err
	}
	stat, err := reader.PoolStat(r.Context(), params[0], chainID)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, notFound("pool")
	}
	return stat, nil
}
