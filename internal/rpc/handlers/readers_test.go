package handlers

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/feed"
	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) CollectionStat(ctx context.Context, collection string, chainID uint64) (*models.CollectionStat, error) {
	args := m.Called(collection, chainID)
	stat, _ := args.Get(0).(*models.CollectionStat)
	return stat, args.Error(1)
}

func (m *mockReader) CollectionChains(ctx context.Context, collection string) ([]*models.CollectionStat, error) {
	args := m.Called(collection)
	stats, _ := args.Get(0).([]*models.CollectionStat)
	return stats, args.Error(1)
}

func (m *mockReader) HolderBalance(ctx context.Context, scope string, chainID uint64, address string) (*models.HolderBalance, error) {
	args := m.Called(scope, chainID, address)
	balance, _ := args.Get(0).(*models.HolderBalance)
	return balance, args.Error(1)
}

func (m *mockReader) BurnStats(ctx context.Context, collection string, chainID uint64, source string) (*models.BurnStat, error) {
	args := m.Called(collection, chainID, source)
	stat, _ := args.Get(0).(*models.BurnStat)
	return stat, args.Error(1)
}

func (m *mockReader) BurnSources(ctx context.Context, collection string, chainID uint64) ([]*models.BurnStat, error) {
	args := m.Called(collection, chainID)
	stats, _ := args.Get(0).([]*models.BurnStat)
	return stats, args.Error(1)
}

func (m *mockReader) BurnRecord(ctx context.Context, id string) (*models.BurnRecord, error) {
	args := m.Called(id)
	record, _ := args.Get(0).(*models.BurnRecord)
	return record, args.Error(1)
}

func (m *mockReader) Position(ctx context.Context, pool string, chainID uint64, user string) (*models.Position, error) {
	args := m.Called(pool, chainID, user)
	position, _ := args.Get(0).(*models.Position)
	return position, args.Error(1)
}

func (m *mockReader) PoolStat(ctx context.Context, pool string, chainID uint64) (*models.PoolStat, error) {
	args := m.Called(pool, chainID)
	stat, _ := args.Get(0).(*models.PoolStat)
	return stat, args.Error(1)
}

func (m *mockReader) Action(ctx context.Context, id string) (*models.Action, error) {
	args := m.Called(id)
	action, _ := args.Get(0).(*models.Action)
	return action, args.Error(1)
}

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, filter feed.Filter, page, pageSize int) (int, []*models.Action, error) {
	args := m.Called(filter, page, pageSize)
	actions, _ := args.Get(1).([]*models.Action)
	return args.Int(0), actions, args.Error(2)
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var httpErr *HttpError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.StatusCode
}

func TestStatsGetHandler(t *testing.T) {
	reader := &mockReader{}
	global := &models.CollectionStat{Collection: "memes", TotalSupply: big.NewInt(3)}
	chain := &models.CollectionStat{Collection: "memes", ChainID: 1, TotalSupply: big.NewInt(3)}
	reader.On("CollectionStat", "memes", constants.GLOBAL_CHAIN_ID).Return(global, nil)
	reader.On("CollectionStat", "memes", uint64(1)).Return(chain, nil)
	reader.On("CollectionStat", "ghost", mock.Anything).Return(nil, nil)
	reader.On("CollectionChains", "memes").Return([]*models.CollectionStat{chain}, nil)

	resp, err := StatsGetHandler(get("/api/v1/stats/memes"), reader)
	require.NoError(t, err)
	overview := resp.(CollectionStatsResponse)
	assert.Same(t, global, overview.Global)
	assert.Len(t, overview.Chains, 1)

	resp, err = StatsGetHandler(get("/api/v1/stats/memes/1"), reader)
	require.NoError(t, err)
	assert.Same(t, chain, resp)

	resp, err = StatsGetHandler(get("/api/v1/stats/memes/global"), reader)
	require.NoError(t, err)
	assert.Same(t, global, resp)

	_, err = StatsGetHandler(get("/api/v1/stats/ghost"), reader)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = StatsGetHandler(get("/api/v1/stats/memes/1/extra"), reader)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestHolderGetHandler_MapsMalformedAddress(t *testing.T) {
	reader := &mockReader{}
	reader.On("HolderBalance", "memes", uint64(1), "nope").
		Return(nil, fmt.Errorf("%w: invalid address", engine.ErrMalformedEvent))

	_, err := HolderGetHandler(get("/api/v1/holders/memes/1/nope"), reader)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = HolderGetHandler(get("/api/v1/holders/memes/0/nope"), reader)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestBurnsGetHandler(t *testing.T) {
	reader := &mockReader{}
	chainStat := &models.BurnStat{Collection: "memes", ChainID: 1, BurnCount: 2}
	reader.On("BurnStats", "memes", uint64(1), "").Return(chainStat, nil)
	reader.On("BurnSources", "memes", uint64(1)).Return([]*models.BurnStat{{Source: "user"}, {Source: "incinerator"}}, nil)
	reader.On("BurnStats", "memes", uint64(1), "incinerator").Return(&models.BurnStat{Source: "incinerator"}, nil)
	reader.On("BurnStats", "memes", constants.GLOBAL_CHAIN_ID, "").Return(&models.BurnStat{Collection: "memes"}, nil)

	resp, err := BurnsGetHandler(get("/api/v1/burns/memes/1"), reader)
	require.NoError(t, err)
	withSources := resp.(BurnStatsResponse)
	assert.Equal(t, uint64(2), withSources.BurnCount)
	assert.Len(t, withSources.Sources, 2)

	resp, err = BurnsGetHandler(get("/api/v1/burns/memes/1/incinerator"), reader)
	require.NoError(t, err)
	assert.Equal(t, "incinerator", resp.(*models.BurnStat).Source)

	resp, err = BurnsGetHandler(get("/api/v1/burns/memes/global"), reader)
	require.NoError(t, err)
	assert.Nil(t, resp.(BurnStatsResponse).Sources)
	reader.AssertNotCalled(t, "BurnSources", "memes", constants.GLOBAL_CHAIN_ID)

	_, err = BurnsGetHandler(get("/api/v1/burns/memes"), reader)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestActionsGetHandler_Filters(t *testing.T) {
	querier := &mockQuerier{}
	chainID := uint64(8453)
	querier.On("Query", feed.Filter{Actor: "0xabc", Collection: "memes", ChainID: &chainID}, 2, 20).
		Return(41, []*models.Action{{ID: "a"}}, nil).Once()

	resp, err := ActionsGetHandler(get("/api/v1/actions?actor=0xabc&collection=memes&chain_id=8453&page=2&page_size=20"), querier)
	require.NoError(t, err)
	assert.Equal(t, 41, resp.Total)
	assert.NotNil(t, resp.Next)
	assert.NotNil(t, resp.Prev)
	querier.AssertExpectations(t)

	_, err = ActionsGetHandler(get("/api/v1/actions?chain_id=-1"), querier)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestPositionAndPoolHandlers(t *testing.T) {
	reader := &mockReader{}
	reader.On("Position", "vault", uint64(1), "0xabc").Return(&models.Position{Pool: "vault"}, nil)
	reader.On("PoolStat", "vault", uint64(1)).Return(nil, nil)

	resp, err := PositionGetHandler(get("/api/v1/positions/vault/1/0xabc"), reader)
	require.NoError(t, err)
	assert.Equal(t, "vault", resp.(*models.Position).Pool)

	_, err = PoolGetHandler(get("/api/v1/pools/vault/1"), reader)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
