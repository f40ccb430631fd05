package handlers

import (
	"net/http"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/feed"
	"github.com/6529-Collections/6529stats/pkg/models"
)

// ActionsGetHandler lists the feed newest first, filtered by the actor,
// collection and chain_id query parameters.
func ActionsGetHandler(r *http.Request, querier ActionQuerier) (PaginatedResponse[models.Action], error) {
	q := r.URL.Query()
	filter := feed.Filter{
		Actor:      q.Get("actor"),
		Collection: q.Get("collection"),
	}
	if raw := q.Get("chain_id"); raw != "" {
		chainID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return PaginatedResponse[models.Action]{}, badRequest("invalid chain_id %q", raw)
		}
		filter.ChainID = &chainID
	}
	return PaginatedQueryHandler(r, func(page, pageSize int) (int, []*models.Action, error) {
		return querier.Query(r.Context(), filter, page, pageSize)
	})
}

// ActionGetHandler serves /actions/{id} from the authoritative store.
func ActionGetHandler(r *http.Request, reader StatsReader) (any, error) {
	params := PathParams(r, CreateApiPath(ApiV1, "actions/"))
	if len(params) != 1 {
		return nil, badRequest("expected /actions/{id}")
	}
	action, err := reader.Action(r.Context(), params[0])
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, notFound("action")
	}
	return action, nil
}
