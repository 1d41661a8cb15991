package executor

import (
	"context"
	"strings"
	"time"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-mint-indexer/internal/api/shared/errors"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

// RECENT_MINTS_WINDOW is the window counted by the recent mints statistic
const RECENT_MINTS_WINDOW = 24 * time.Hour

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetNFT retrieves a single NFT by token id, nil when it has not been minted
	GetNFT(ctx context.Context, tokenID uint64) (*dto.NFTResponse, error)

	// ListNFTs retrieves a page of NFTs with optional filters
	ListNFTs(ctx context.Context, params ListNFTsParams) (*dto.NFTListResponse, error)

	// GetStats retrieves collection-wide counters
	GetStats(ctx context.Context) (*dto.NFTStatsResponse, error)

	// GetTransaction retrieves a transaction by hash, nil when unknown
	GetTransaction(ctx context.Context, txHash string) (*dto.TransactionResponse, error)

	// ListTransactions retrieves a page of transactions with optional filters
	ListTransactions(ctx context.Context, params ListTransactionsParams) (*dto.TransactionListResponse, error)

	// GetUser retrieves the counters of an address. Counters are recomputed from the NFTs when
	// no aggregate has been stored for the address yet.
	GetUser(ctx context.Context, address string) (*dto.UserResponse, error)
}

// ListNFTsParams holds the filters and paging of an NFT list query. Page starts at 1.
type ListNFTsParams struct {
	Owner     string
	Minter    string
	Search    string
	SortBy    store.NFTSortField
	SortOrder store.SortOrder
	Page      int
	Limit     int
}

// ListTransactionsParams holds the filters and paging of a transaction list query. Page starts at 1.
type ListTransactionsParams struct {
	Type      *domain.TransactionType
	Address   string
	TokenID   *uint64
	SortOrder store.SortOrder
	Page      int
	Limit     int
}

type executor struct {
	store store.Store
	clock adapter.Clock
}

func NewExecutor(store store.Store, clock adapter.Clock) Executor {
	return &executor{store: store, clock: clock}
}

func (e *executor) GetNFT(ctx context.Context, tokenID uint64) (*dto.NFTResponse, error) {
	nft, err := e.store.FindNFT(ctx, tokenID)
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to get NFT: %v", err)
	}

	return dto.MapNFTToDTO(nft), nil
}

func (e *executor) ListNFTs(ctx context.Context, params ListNFTsParams) (*dto.NFTListResponse, error) {
	page, limit := normalizePage(params.Page, params.Limit)

	nfts, total, err := e.store.ListNFTs(ctx, store.NFTQueryFilter{
		Owner:     strings.ToLower(params.Owner),
		Minter:    strings.ToLower(params.Minter),
		Search:    params.Search,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
		Limit:     limit,
		Offset:    offset(page, limit),
	})
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to list NFTs: %v", err)
	}

	items := make([]dto.NFTResponse, 0, len(nfts))
	for i := range nfts {
		items = append(items, *dto.MapNFTToDTO(&nfts[i]))
	}

	return &dto.NFTListResponse{
		NFTs:       items,
		Pagination: dto.NewPagination(total, page, limit),
	}, nil
}

func (e *executor) GetStats(ctx context.Context) (*dto.NFTStatsResponse, error) {
	since := e.clock.Now().Add(-RECENT_MINTS_WINDOW).UTC()

	stats, err := e.store.GetStats(ctx, since)
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to get stats: %v", err)
	}

	return &dto.NFTStatsResponse{
		TotalNFTs:       stats.TotalNFTs,
		DistinctOwners:  stats.DistinctOwners,
		DistinctMinters: stats.DistinctMinters,
		RecentMints:     stats.RecentMints,
		RecentSince:     since,
	}, nil
}

func (e *executor) GetTransaction(ctx context.Context, txHash string) (*dto.TransactionResponse, error) {
	txn, err := e.store.GetTransaction(ctx, strings.ToLower(txHash))
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to get transaction: %v", err)
	}

	return dto.MapTransactionToDTO(txn), nil
}

func (e *executor) ListTransactions(ctx context.Context, params ListTransactionsParams) (*dto.TransactionListResponse, error) {
	page, limit := normalizePage(params.Page, params.Limit)

	txns, total, err := e.store.ListTransactions(ctx, store.TransactionQueryFilter{
		Type:      params.Type,
		Address:   strings.ToLower(params.Address),
		TokenID:   params.TokenID,
		SortOrder: params.SortOrder,
		Limit:     limit,
		Offset:    offset(page, limit),
	})
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to list transactions: %v", err)
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, *dto.MapTransactionToDTO(&txns[i]))
	}

	return &dto.TransactionListResponse{
		Transactions: items,
		Pagination:   dto.NewPagination(total, page, limit),
	}, nil
}

func (e *executor) GetUser(ctx context.Context, address string) (*dto.UserResponse, error) {
	address = strings.ToLower(address)

	aggregate, err := e.store.GetUserAggregate(ctx, address)
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to get user: %v", err)
	}
	if aggregate != nil {
		return &dto.UserResponse{
			Address:    aggregate.Address,
			NFTsOwned:  aggregate.NFTsOwned,
			NFTsMinted: aggregate.NFTsMinted,
			UpdatedAt:  aggregate.UpdatedAt.UTC(),
		}, nil
	}

	// No aggregate stored yet, derive the counters from the NFTs
	owned, err := e.store.CountNFTs(ctx, store.NFTFilter{Owner: address})
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to count owned NFTs: %v", err)
	}
	minted, err := e.store.CountNFTs(ctx, store.NFTFilter{Minter: address})
	if err != nil {
		return nil, apierrors.NewDatabaseError("Failed to count minted NFTs: %v", err)
	}

	return &dto.UserResponse{
		Address:    address,
		NFTsOwned:  owned,
		NFTsMinted: minted,
		UpdatedAt:  e.clock.Now().UTC(),
	}, nil
}

// normalizePage defaults the page to 1 and clamps the limit into [1, store.MaxQueryLimit]
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = store.DefaultQueryLimit
	}
	return page, min(limit, store.MaxQueryLimit)
}

func offset(page, limit int) uint64 {
	return uint64((page - 1) * limit) //nolint:gosec,G115 // page >= 1 and limit > 0 after normalizePage
}
