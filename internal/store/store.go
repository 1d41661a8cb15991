package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// Store defines the interface for the projection store. It is written by the ingestion pipeline only,
// the query API reads it.
type Store interface {
	// FindNFT retrieves an NFT by its token id, nil when the token has not been applied
	FindNFT(ctx context.Context, tokenID uint64) (*schema.NFT, error)
	// InsertNFTIfAbsent creates the NFT record unless one exists for the token id.
	// It reports whether the record was created.
	InsertNFTIfAbsent(ctx context.Context, input CreateNFTInput) (bool, error)
	// InsertTransaction records a transaction unless its hash is already known.
	// It reports whether the record was created.
	InsertTransaction(ctx context.Context, input CreateTransactionInput) (bool, error)
	// CreateMint creates the NFT and its MINT transaction as one unit.
	// It returns false, without writing anything, when the NFT already exists.
	CreateMint(ctx context.Context, input CreateMintInput) (bool, error)
	// CountNFTs counts NFTs matching the filter
	CountNFTs(ctx context.Context, filter NFTFilter) (int64, error)
	// UpsertUserAggregate overwrites the counters of an address
	UpsertUserAggregate(ctx context.Context, input UpsertUserAggregateInput) error
	// LatestAppliedBlock returns the highest block number of any applied mint.
	// The second value is false when nothing has been applied yet.
	LatestAppliedBlock(ctx context.Context) (uint64, bool, error)

	// GetUserAggregate retrieves the counters of an address, nil when absent
	GetUserAggregate(ctx context.Context, address string) (*schema.UserAggregate, error)
	// GetTransaction retrieves a transaction by hash, nil when absent
	GetTransaction(ctx context.Context, txHash string) (*schema.Transaction, error)
	// ListNFTs returns a page of NFTs and the total number of matches
	ListNFTs(ctx context.Context, filter NFTQueryFilter) ([]schema.NFT, uint64, error)
	// ListTransactions returns a page of transactions and the total number of matches
	ListTransactions(ctx context.Context, filter TransactionQueryFilter) ([]schema.Transaction, uint64, error)
	// GetStats returns collection-wide counters, RecentMints counting mints at or after since
	GetStats(ctx context.Context, since time.Time) (*Stats, error)
	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// CreateNFTInput represents the input for creating an NFT record
type CreateNFTInput struct {
	TokenID         uint64
	Name            string
	Description     string
	ImageURL        string
	MetadataURI     string
	MetadataHash    string
	Attributes      []byte // JSON array, nil when the document carried none
	MinterAddress   string
	OwnerAddress    string
	TransactionHash string
	BlockNumber     uint64
	MintedAt        time.Time
}

// CreateTransactionInput represents the input for recording a transaction
type CreateTransactionInput struct {
	TransactionHash string
	Type            domain.TransactionType
	FromAddress     *string
	ToAddress       string
	TokenID         uint64
	BlockNumber     uint64
	Timestamp       time.Time
}

// CreateMintInput groups the records written for one applied mint
type CreateMintInput struct {
	NFT         CreateNFTInput
	Transaction CreateTransactionInput
}

// UpsertUserAggregateInput carries freshly recomputed counters
type UpsertUserAggregateInput struct {
	Address    string
	NFTsOwned  int64
	NFTsMinted int64
	UpdatedAt  time.Time
}

// NFTFilter selects NFTs for counting. Empty fields do not filter.
type NFTFilter struct {
	Owner  string
	Minter string
}

// SortOrder is the direction of a list query
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// NFTSortField is a sortable NFT column
type NFTSortField string

const (
	NFTSortByTokenID     NFTSortField = "token_id"
	NFTSortByBlockNumber NFTSortField = "block_number"
	NFTSortByMintedAt    NFTSortField = "minted_at"
	NFTSortByName        NFTSortField = "name"
)

// IsValid reports whether the field can be used for sorting
func (f NFTSortField) IsValid() bool {
	switch f {
	case NFTSortByTokenID, NFTSortByBlockNumber, NFTSortByMintedAt, NFTSortByName:
		return true
	}
	return false
}

// NFTQueryFilter represents the filter for listing NFTs
type NFTQueryFilter struct {
	Owner  string
	Minter string
	// Search matches name or description, case-insensitively
	Search    string
	SortBy    NFTSortField
	SortOrder SortOrder
	Limit     int
	Offset    uint64
}

// TransactionQueryFilter represents the filter for listing transactions
type TransactionQueryFilter struct {
	Type *domain.TransactionType
	// Address matches either side of the transaction
	Address   string
	TokenID   *uint64
	SortOrder SortOrder
	Limit     int
	Offset    uint64
}

// Stats holds collection-wide counters
type Stats struct {
	TotalNFTs       int64 `json:"total_nfts"`
	DistinctOwners  int64 `json:"distinct_owners"`
	DistinctMinters int64 `json:"distinct_minters"`
	RecentMints     int64 `json:"recent_mints"`
}

const (
	DefaultQueryLimit = 20
	MaxQueryLimit     = 100
)

// normalizeLimit clamps a page size into [1, MaxQueryLimit]
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return min(limit, MaxQueryLimit)
}
