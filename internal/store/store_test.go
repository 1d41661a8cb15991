package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

const (
	testMinterA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testMinterB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var testEpoch = time.Unix(1700000000, 0).UTC()

func testTxHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

// buildTestMint creates a mint input for tokenID minted by minter in the given block
func buildTestMint(tokenID uint64, minter string, block uint64) CreateMintInput {
	mintedAt := testEpoch.Add(time.Duration(block) * time.Second)
	txHash := testTxHash(int(tokenID)) //nolint:gosec,G115
	return CreateMintInput{
		NFT: CreateNFTInput{
			TokenID:         tokenID,
			Name:            fmt.Sprintf("Token %d", tokenID),
			Description:     "a test token",
			ImageURL:        fmt.Sprintf("https://img.example.com/%d.png", tokenID),
			MetadataURI:     fmt.Sprintf("https://meta.example.com/%d.json", tokenID),
			MetadataHash:    "abc123",
			Attributes:      []byte(`[{"trait_type":"Color","value":"Red"}]`),
			MinterAddress:   minter,
			OwnerAddress:    minter,
			TransactionHash: txHash,
			BlockNumber:     block,
			MintedAt:        mintedAt,
		},
		Transaction: CreateTransactionInput{
			TransactionHash: txHash,
			Type:            domain.TransactionTypeMint,
			ToAddress:       minter,
			TokenID:         tokenID,
			BlockNumber:     block,
			Timestamp:       mintedAt,
		},
	}
}

func mustCreateMint(t *testing.T, store Store, input CreateMintInput) {
	t.Helper()
	created, err := store.CreateMint(context.Background(), input)
	require.NoError(t, err)
	require.True(t, created)
}

// =============================================================================
// Test: CreateMint
// =============================================================================

func testCreateMint(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates nft and mint transaction", func(t *testing.T) {
		input := buildTestMint(1, "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa", 100)

		created, err := store.CreateMint(ctx, input)
		require.NoError(t, err)
		assert.True(t, created)

		nft, err := store.FindNFT(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, nft)
		assert.Equal(t, uint64(1), nft.TokenID)
		assert.Equal(t, "Token 1", nft.Name)
		assert.Equal(t, "a test token", nft.Description)
		assert.Equal(t, "https://img.example.com/1.png", nft.ImageURL)
		assert.Equal(t, "https://meta.example.com/1.json", nft.MetadataURI)
		assert.Equal(t, "abc123", nft.MetadataHash)
		assert.JSONEq(t, `[{"trait_type":"Color","value":"Red"}]`, string(nft.Attributes))
		assert.Equal(t, testMinterA, nft.MinterAddress)
		assert.Equal(t, testMinterA, nft.OwnerAddress)
		assert.Equal(t, uint64(100), nft.BlockNumber)
		assert.True(t, nft.MintedAt.Equal(input.NFT.MintedAt))

		txn, err := store.GetTransaction(ctx, testTxHash(1))
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, domain.TransactionTypeMint, txn.Type)
		assert.Nil(t, txn.FromAddress)
		assert.Equal(t, testMinterA, txn.ToAddress)
		assert.Equal(t, uint64(1), txn.TokenID)
		assert.True(t, txn.Timestamp.Equal(input.Transaction.Timestamp))
	})

	t.Run("second mint of the same token writes nothing", func(t *testing.T) {
		input := buildTestMint(2, testMinterA, 101)
		mustCreateMint(t, store, input)

		replay := buildTestMint(2, testMinterB, 102)
		replay.NFT.Name = "Other"
		replay.NFT.TransactionHash = testTxHash(9999)
		replay.Transaction.TransactionHash = testTxHash(9999)

		created, err := store.CreateMint(ctx, replay)
		require.NoError(t, err)
		assert.False(t, created)

		nft, err := store.FindNFT(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Token 2", nft.Name)
		assert.Equal(t, testMinterA, nft.MinterAddress)

		txn, err := store.GetTransaction(ctx, testTxHash(9999))
		require.NoError(t, err)
		assert.Nil(t, txn)
	})

	t.Run("mints sharing a transaction hash", func(t *testing.T) {
		first := buildTestMint(3, testMinterA, 103)
		second := buildTestMint(4, testMinterA, 103)
		second.NFT.TransactionHash = first.NFT.TransactionHash
		second.Transaction.TransactionHash = first.Transaction.TransactionHash

		mustCreateMint(t, store, first)
		mustCreateMint(t, store, second)

		nft, err := store.FindNFT(ctx, 4)
		require.NoError(t, err)
		require.NotNil(t, nft)
		assert.Equal(t, testTxHash(3), nft.TransactionHash)

		txns, total, err := store.ListTransactions(ctx, TransactionQueryFilter{Address: testMinterA})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total) // tokens 1, 2 and 3
		for _, txn := range txns {
			assert.NotEqual(t, uint64(4), txn.TokenID)
		}
	})
}

// =============================================================================
// Test: FindNFT / InsertNFTIfAbsent / InsertTransaction
// =============================================================================

func testFindNFTNotFound(t *testing.T, store Store) {
	nft, err := store.FindNFT(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, nft)
}

func testInsertIfAbsent(t *testing.T, store Store) {
	ctx := context.Background()
	input := buildTestMint(10, testMinterA, 200)

	created, err := store.InsertNFTIfAbsent(ctx, input.NFT)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertNFTIfAbsent(ctx, input.NFT)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = store.InsertTransaction(ctx, input.Transaction)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertTransaction(ctx, input.Transaction)
	require.NoError(t, err)
	assert.False(t, created)

	from := "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	transfer := CreateTransactionInput{
		TransactionHash: testTxHash(11),
		Type:            domain.TransactionTypeTransfer,
		FromAddress:     &from,
		ToAddress:       testMinterB,
		TokenID:         10,
		BlockNumber:     201,
		Timestamp:       testEpoch,
	}
	created, err = store.InsertTransaction(ctx, transfer)
	require.NoError(t, err)
	assert.True(t, created)

	txn, err := store.GetTransaction(ctx, testTxHash(11))
	require.NoError(t, err)
	require.NotNil(t, txn)
	require.NotNil(t, txn.FromAddress)
	assert.Equal(t, "0xcccccccccccccccccccccccccccccccccccccccc", *txn.FromAddress)
	assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)
}

// =============================================================================
// Test: CountNFTs / UserAggregate
// =============================================================================

func testCountNFTs(t *testing.T, store Store) {
	ctx := context.Background()
	mustCreateMint(t, store, buildTestMint(20, testMinterA, 300))
	mustCreateMint(t, store, buildTestMint(21, testMinterA, 301))
	mustCreateMint(t, store, buildTestMint(22, testMinterB, 302))

	tests := []struct {
		name   string
		filter NFTFilter
		want   int64
	}{
		{"all", NFTFilter{}, 3},
		{"by owner", NFTFilter{Owner: testMinterA}, 2},
		{"by minter upper-case", NFTFilter{Minter: "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"}, 1},
		{"owner and minter", NFTFilter{Owner: testMinterA, Minter: testMinterB}, 0},
		{"unknown", NFTFilter{Owner: "0x0000000000000000000000000000000000000001"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.CountNFTs(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testUserAggregate(t *testing.T, store Store) {
	ctx := context.Background()

	aggregate, err := store.GetUserAggregate(ctx, testMinterA)
	require.NoError(t, err)
	assert.Nil(t, aggregate)

	require.NoError(t, store.UpsertUserAggregate(ctx, UpsertUserAggregateInput{
		Address:    "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		NFTsOwned:  1,
		NFTsMinted: 1,
		UpdatedAt:  testEpoch,
	}))

	// Counters are overwritten, not added
	require.NoError(t, store.UpsertUserAggregate(ctx, UpsertUserAggregateInput{
		Address:    testMinterA,
		NFTsOwned:  3,
		NFTsMinted: 2,
		UpdatedAt:  testEpoch.Add(time.Minute),
	}))

	aggregate, err = store.GetUserAggregate(ctx, testMinterA)
	require.NoError(t, err)
	require.NotNil(t, aggregate)
	assert.Equal(t, testMinterA, aggregate.Address)
	assert.Equal(t, int64(3), aggregate.NFTsOwned)
	assert.Equal(t, int64(2), aggregate.NFTsMinted)
	assert.True(t, aggregate.UpdatedAt.Equal(testEpoch.Add(time.Minute)))
}

// =============================================================================
// Test: LatestAppliedBlock
// =============================================================================

func testLatestAppliedBlock(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.LatestAppliedBlock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mustCreateMint(t, store, buildTestMint(30, testMinterA, 45000))
	mustCreateMint(t, store, buildTestMint(31, testMinterA, 44000))

	latest, ok, err := store.LatestAppliedBlock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(45000), latest)
}

// =============================================================================
// Test: read queries
// =============================================================================

func testListNFTs(t *testing.T, store Store) {
	ctx := context.Background()
	for i := uint64(40); i < 45; i++ {
		minter := testMinterA
		if i%2 == 1 {
			minter = testMinterB
		}
		input := buildTestMint(i, minter, 500+i)
		if i == 42 {
			input.NFT.Name = "Cat"
			input.NFT.Description = "a CAT picture"
		}
		mustCreateMint(t, store, input)
	}

	t.Run("default order is newest first", func(t *testing.T) {
		nfts, total, err := store.ListNFTs(ctx, NFTQueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, uint64(5), total)
		require.Len(t, nfts, 5)
		assert.Equal(t, uint64(44), nfts[0].TokenID)
		assert.Equal(t, uint64(40), nfts[4].TokenID)
	})

	t.Run("filter by owner", func(t *testing.T) {
		nfts, total, err := store.ListNFTs(ctx, NFTQueryFilter{Owner: testMinterB, SortBy: NFTSortByTokenID, SortOrder: SortOrderAsc})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		require.Len(t, nfts, 2)
		assert.Equal(t, uint64(41), nfts[0].TokenID)
		assert.Equal(t, uint64(43), nfts[1].TokenID)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		nfts, total, err := store.ListNFTs(ctx, NFTQueryFilter{Search: "cat"})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, nfts, 1)
		assert.Equal(t, uint64(42), nfts[0].TokenID)
	})

	t.Run("pagination", func(t *testing.T) {
		nfts, total, err := store.ListNFTs(ctx, NFTQueryFilter{SortBy: NFTSortByTokenID, SortOrder: SortOrderAsc, Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, uint64(5), total)
		require.Len(t, nfts, 2)
		assert.Equal(t, uint64(42), nfts[0].TokenID)
		assert.Equal(t, uint64(43), nfts[1].TokenID)

		nfts, _, err = store.ListNFTs(ctx, NFTQueryFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, nfts)
	})

	t.Run("sort by name", func(t *testing.T) {
		nfts, _, err := store.ListNFTs(ctx, NFTQueryFilter{SortBy: NFTSortByName, SortOrder: SortOrderAsc, Limit: 1})
		require.NoError(t, err)
		require.Len(t, nfts, 1)
		assert.Equal(t, "Cat", nfts[0].Name)
	})
}

func testListTransactions(t *testing.T, store Store) {
	ctx := context.Background()
	mustCreateMint(t, store, buildTestMint(50, testMinterA, 600))
	mustCreateMint(t, store, buildTestMint(51, testMinterB, 601))
	mustCreateMint(t, store, buildTestMint(52, testMinterA, 602))

	t.Run("all newest first", func(t *testing.T) {
		txns, total, err := store.ListTransactions(ctx, TransactionQueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)
		require.Len(t, txns, 3)
		assert.Equal(t, uint64(52), txns[0].TokenID)
		assert.Equal(t, uint64(50), txns[2].TokenID)
	})

	t.Run("by address ascending", func(t *testing.T) {
		txns, total, err := store.ListTransactions(ctx, TransactionQueryFilter{Address: testMinterA, SortOrder: SortOrderAsc})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		require.Len(t, txns, 2)
		assert.Equal(t, uint64(50), txns[0].TokenID)
		assert.Equal(t, uint64(52), txns[1].TokenID)
	})

	t.Run("by type and token", func(t *testing.T) {
		mintType := domain.TransactionTypeMint
		tokenID := uint64(51)
		txns, total, err := store.ListTransactions(ctx, TransactionQueryFilter{Type: &mintType, TokenID: &tokenID})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, txns, 1)
		assert.Equal(t, testMinterB, txns[0].ToAddress)

		transferType := domain.TransactionTypeTransfer
		_, total, err = store.ListTransactions(ctx, TransactionQueryFilter{Type: &transferType})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func testGetStats(t *testing.T, store Store) {
	ctx := context.Background()
	mustCreateMint(t, store, buildTestMint(60, testMinterA, 10))
	mustCreateMint(t, store, buildTestMint(61, testMinterA, 20))
	mustCreateMint(t, store, buildTestMint(62, testMinterB, 30))

	stats, err := store.GetStats(ctx, testEpoch.Add(15*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalNFTs)
	assert.Equal(t, int64(2), stats.DistinctOwners)
	assert.Equal(t, int64(2), stats.DistinctMinters)
	assert.Equal(t, int64(2), stats.RecentMints)
}

func testPing(t *testing.T, store Store) {
	assert.NoError(t, store.Ping(context.Background()))
}

// RunStoreTests runs the store test suite against one implementation. initDB returns a fresh,
// empty store for each test.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store Store)
	}{
		{"CreateMint", testCreateMint},
		{"FindNFTNotFound", testFindNFTNotFound},
		{"InsertIfAbsent", testInsertIfAbsent},
		{"CountNFTs", testCountNFTs},
		{"UserAggregate", testUserAggregate},
		{"LatestAppliedBlock", testLatestAppliedBlock},
		{"ListNFTs", testListNFTs},
		{"ListTransactions", testListTransactions},
		{"GetStats", testGetStats},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

// testConcurrentCreateMint races N writers on one token id. The store must be safe for concurrent use.
func testConcurrentCreateMint(t *testing.T, store Store) {
	const writers = 16
	ctx := context.Background()

	results := make(chan bool, writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			created, err := store.CreateMint(ctx, buildTestMint(70, testMinterA, 700))
			errs <- err
			results <- created
		}()
	}

	createdCount := 0
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
		if <-results {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)

	count, err := store.CountNFTs(ctx, NFTFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
