package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/api/middleware"
	"github.com/feral-file/ff-mint-indexer/internal/api/server"
	"github.com/feral-file/ff-mint-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/mocks"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

const (
	alice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func seedMint(t *testing.T, st store.Store, tokenID uint64, minter, name string, mintedAt time.Time, txHash string) {
	t.Helper()
	created, err := st.CreateMint(context.Background(), store.CreateMintInput{
		NFT: store.CreateNFTInput{
			TokenID:         tokenID,
			Name:            name,
			MetadataURI:     "ipfs://meta",
			MinterAddress:   minter,
			OwnerAddress:    minter,
			TransactionHash: txHash,
			BlockNumber:     100 + tokenID,
			MintedAt:        mintedAt,
		},
		Transaction: store.CreateTransactionInput{
			TransactionHash: txHash,
			Type:            domain.TransactionTypeMint,
			ToAddress:       minter,
			TokenID:         tokenID,
			BlockNumber:     100 + tokenID,
			Timestamp:       mintedAt,
		},
	})
	require.NoError(t, err)
	require.True(t, created)
}

func setupServer(t *testing.T) *httptest.Server {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	st := store.NewMemoryStore()
	seedMint(t, st, 1, alice, "Sunrise", now.Add(-48*time.Hour),
		"0x0000000000000000000000000000000000000000000000000000000000000001")
	seedMint(t, st, 2, alice, "Sunset", now.Add(-time.Hour),
		"0x0000000000000000000000000000000000000000000000000000000000000002")
	seedMint(t, st, 3, bob, "Moon", now.Add(-30*time.Minute),
		"0x0000000000000000000000000000000000000000000000000000000000000003")

	srv := server.New(server.Config{Debug: false}, st, clock)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestServer_QueriesProjection(t *testing.T) {
	ts := setupServer(t)

	t.Run("list by minter", func(t *testing.T) {
		var list dto.NFTListResponse
		resp := getJSON(t, ts, "/api/v1/nfts?minter="+alice+"&sort_by=token_id&sort_order=asc", &list)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, list.NFTs, 2)
		assert.Equal(t, uint64(1), list.NFTs[0].TokenID)
		assert.Equal(t, uint64(2), list.NFTs[1].TokenID)
		assert.Equal(t, uint64(2), list.Total)
	})

	t.Run("search and paging", func(t *testing.T) {
		var list dto.NFTListResponse
		getJSON(t, ts, "/api/v1/nfts?search=sun&limit=1&page=2&sort_by=name&sort_order=asc", &list)
		require.Len(t, list.NFTs, 1)
		assert.Equal(t, "Sunset", list.NFTs[0].Name)
		assert.Equal(t, uint64(2), list.TotalPages)
	})

	t.Run("stats", func(t *testing.T) {
		var stats dto.NFTStatsResponse
		getJSON(t, ts, "/api/v1/nfts/stats", &stats)
		assert.Equal(t, int64(3), stats.TotalNFTs)
		assert.Equal(t, int64(2), stats.DistinctOwners)
		assert.Equal(t, int64(2), stats.DistinctMinters)
		assert.Equal(t, int64(2), stats.RecentMints)
	})

	t.Run("single nft", func(t *testing.T) {
		var nft dto.NFTResponse
		resp := getJSON(t, ts, "/api/v1/nfts/3", &nft)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Moon", nft.Name)
		assert.Equal(t, bob, nft.OwnerAddress)

		resp = getJSON(t, ts, "/api/v1/nfts/99", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("transactions", func(t *testing.T) {
		var list dto.TransactionListResponse
		getJSON(t, ts, "/api/v1/transactions?address="+alice, &list)
		require.Len(t, list.Transactions, 2)
		// newest first by default
		assert.Equal(t, uint64(2), list.Transactions[0].TokenID)
		assert.Nil(t, list.Transactions[0].FromAddress)

		var txn dto.TransactionResponse
		getJSON(t, ts, "/api/v1/transactions/0x0000000000000000000000000000000000000000000000000000000000000003", &txn)
		assert.Equal(t, domain.TransactionTypeMint, txn.Type)
		assert.Equal(t, uint64(3), txn.TokenID)
	})

	t.Run("user counters are recomputed when no aggregate exists", func(t *testing.T) {
		var user dto.UserResponse
		getJSON(t, ts, "/api/v1/users/0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", &user)
		assert.Equal(t, alice, user.Address)
		assert.Equal(t, int64(2), user.NFTsOwned)
		assert.Equal(t, int64(2), user.NFTsMinted)
	})
}

func TestServer_RequestID(t *testing.T) {
	ts := setupServer(t)

	resp := getJSON(t, ts, "/health", nil)
	assert.NotEmpty(t, resp.Header.Get(middleware.REQUEST_ID_HEADER))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.REQUEST_ID_HEADER, "req-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "req-123", resp.Header.Get(middleware.REQUEST_ID_HEADER))
}

func TestServer_Shutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := server.New(server.Config{Host: "127.0.0.1", Port: 0}, store.NewMemoryStore(), mocks.NewMockClock(ctrl))

	// shutting down a server that never started is a no-op
	assert.NoError(t, srv.Shutdown(context.Background()))
}
