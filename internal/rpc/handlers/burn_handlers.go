package handlers

import (
	"net/http"

	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
)

type BurnStatsResponse struct {
	*models.BurnStat
	Sources []*models.BurnStat `json:"sources,omitempty"`
}

// BurnsGetHandler serves /burns/{collection}/{chainId|global} and
// /burns/{collection}/{chainId}/{source}. Chain views list their sources.
func BurnsGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "burns/"))
	if len(params) < 2 || len(params) > 3 {
		return nil, badRequest("expected /burns/{collection}/{chainId|global}[/{source}]")
	}
	collection := params[0]
	chainID, err := parseChain(params[1])
	if err != nil {
		return nil, err
	}

	if len(params) == 3 {
		if chainID == constants.GLOBAL_CHAIN_ID {
			return nil, badRequest("burn sources are tracked per chain")
		}
		stat, err := reader.BurnStats(r.Context(), collection, chainID, params[2])
		if err != nil {
			return nil, err
		}
		if stat == nil {
			return nil, notFound("burn source")
		}
		return stat, nil
	}

	stat, err := reader.BurnStats(r.Context(), collection, chainID, "")
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, notFound("burns")
	}
	resp := BurnStatsResponse{BurnStat: stat}
	if chainID != constants.GLOBAL_CHAIN_ID {
		resp.Sources, err = reader.BurnSources(r.Context(), collection, chainID)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// BurnRecordGetHandler serves /burn-records/{id}.
func BurnRecordGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "burn-records/"))
	if len(params) != 1 {
		return nil, badRequest("expected /burn-records/{id}")
	}
	record, err := reader.BurnRecord(r.Context(), params[0])
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, notFound("burn record")
	}
	return record, nil
}
