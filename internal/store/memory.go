package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

// memoryStore is an in-process Store. A single mutex makes every write, including the
// insert-if-absent of CreateMint, atomic.
type memoryStore struct {
	mu         sync.RWMutex
	nfts       map[uint64]*schema.NFT
	txns       map[string]*schema.Transaction
	aggregates map[string]*schema.UserAggregate
	nextID     int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() Store {
	return &memoryStore{
		nfts:       make(map[uint64]*schema.NFT),
		txns:       make(map[string]*schema.Transaction),
		aggregates: make(map[string]*schema.UserAggregate),
		now:        time.Now,
	}
}

func (s *memoryStore) FindNFT(_ context.Context, tokenID uint64) (*schema.NFT, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nft, ok := s.nfts[tokenID]
	if !ok {
		return nil, nil
	}
	cp := *nft
	return &cp, nil
}

func (s *memoryStore) InsertNFTIfAbsent(ctx context.Context, input CreateNFTInput) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrapError("insert nft", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertNFTLocked(input), nil
}

func (s *memoryStore) InsertTransaction(ctx context.Context, input CreateTransactionInput) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrapError("insert transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTransactionLocked(input), nil
}

func (s *memoryStore) CreateMint(ctx context.Context, input CreateMintInput) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrapError("create mint", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.insertNFTLocked(input.NFT) {
		return false, nil
	}
	s.insertTransactionLocked(input.Transaction)
	return true, nil
}

func (s *memoryStore) insertNFTLocked(input CreateNFTInput) bool {
	if _, exists := s.nfts[input.TokenID]; exists {
		return false
	}

	s.nextID++
	s.nfts[input.TokenID] = &schema.NFT{
		ID:              s.nextID,
		TokenID:         input.TokenID,
		Name:            input.Name,
		Description:     input.Description,
		ImageURL:        input.ImageURL,
		MetadataURI:     input.MetadataURI,
		MetadataHash:    input.MetadataHash,
		Attributes:      datatypes.JSON(slices.Clone(input.Attributes)),
		MinterAddress:   strings.ToLower(input.MinterAddress),
		OwnerAddress:    strings.ToLower(input.OwnerAddress),
		TransactionHash: strings.ToLower(input.TransactionHash),
		BlockNumber:     input.BlockNumber,
		MintedAt:        input.MintedAt.UTC(),
		CreatedAt:       s.now().UTC(),
	}
	return true
}

func (s *memoryStore) insertTransactionLocked(input CreateTransactionInput) bool {
	hash := strings.ToLower(input.TransactionHash)
	if _, exists := s.txns[hash]; exists {
		return false
	}

	var from *string
	if input.FromAddress != nil {
		f := strings.ToLower(*input.FromAddress)
		from = &f
	}

	s.nextID++
	s.txns[hash] = &schema.Transaction{
		ID:              s.nextID,
		TransactionHash: hash,
		Type:            input.Type,
		FromAddress:     from,
		ToAddress:       strings.ToLower(input.ToAddress),
		TokenID:         input.TokenID,
		BlockNumber:     input.BlockNumber,
		Timestamp:       input.Timestamp.UTC(),
		CreatedAt:       s.now().UTC(),
	}
	return true
}

func (s *memoryStore) CountNFTs(_ context.Context, filter NFTFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, nft := range s.nfts {
		if matchesNFT(nft, filter.Owner, filter.Minter, "") {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) UpsertUserAggregate(ctx context.Context, input UpsertUserAggregateInput) error {
	if err := ctx.Err(); err != nil {
		return wrapError("upsert user aggregate", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	address := strings.ToLower(input.Address)
	s.aggregates[address] = &schema.UserAggregate{
		Address:    address,
		NFTsOwned:  input.NFTsOwned,
		NFTsMinted: input.NFTsMinted,
		UpdatedAt:  input.UpdatedAt.UTC(),
	}
	return nil
}

func (s *memoryStore) LatestAppliedBlock(_ context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest uint64
	found := false
	for _, nft := range s.nfts {
		if !found || nft.BlockNumber > latest {
			latest = nft.BlockNumber
			found = true
		}
	}
	return latest, found, nil
}

func (s *memoryStore) GetUserAggregate(_ context.Context, address string) (*schema.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	aggregate, ok := s.aggregates[strings.ToLower(address)]
	if !ok {
		return nil, nil
	}
	cp := *aggregate
	return &cp, nil
}

func (s *memoryStore) GetTransaction(_ context.Context, txHash string) (*schema.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.txns[strings.ToLower(txHash)]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (s *memoryStore) ListNFTs(_ context.Context, filter NFTQueryFilter) ([]schema.NFT, uint64, error) {
	s.mu.RLock()
	var matched []schema.NFT
	for _, nft := range s.nfts {
		if matchesNFT(nft, filter.Owner, filter.Minter, filter.Search) {
			matched = append(matched, *nft)
		}
	}
	s.mu.RUnlock()

	sortBy := filter.SortBy
	if !sortBy.IsValid() {
		sortBy = NFTSortByMintedAt
	}
	desc := filter.SortOrder != SortOrderAsc

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch sortBy {
		case NFTSortByBlockNumber:
			cmp = compareUint(a.BlockNumber, b.BlockNumber)
		case NFTSortByMintedAt:
			cmp = a.MintedAt.Compare(b.MintedAt)
		case NFTSortByName:
			cmp = strings.Compare(a.Name, b.Name)
		}
		if desc {
			cmp = -cmp
		}
		if cmp == 0 {
			// token_id ascending breaks ties, and is the order itself when sorting by token_id
			if sortBy == NFTSortByTokenID && desc {
				return a.TokenID > b.TokenID
			}
			return a.TokenID < b.TokenID
		}
		return cmp < 0
	})

	return paginate(matched, filter.Offset, filter.Limit), uint64(len(matched)), nil
}

func (s *memoryStore) ListTransactions(_ context.Context, filter TransactionQueryFilter) ([]schema.Transaction, uint64, error) {
	s.mu.RLock()
	address := strings.ToLower(filter.Address)
	var matched []schema.Transaction
	for _, txn := range s.txns {
		if filter.Type != nil && txn.Type != *filter.Type {
			continue
		}
		if filter.TokenID != nil && txn.TokenID != *filter.TokenID {
			continue
		}
		if address != "" && txn.ToAddress != address && (txn.FromAddress == nil || *txn.FromAddress != address) {
			continue
		}
		matched = append(matched, *txn)
	}
	s.mu.RUnlock()

	desc := filter.SortOrder != SortOrderAsc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if desc {
				return a.Timestamp.After(b.Timestamp)
			}
			return a.Timestamp.Before(b.Timestamp)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})

	return paginate(matched, filter.Offset, filter.Limit), uint64(len(matched)), nil
}

func (s *memoryStore) GetStats(_ context.Context, since time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[string]struct{})
	minters := make(map[string]struct{})
	stats := &Stats{TotalNFTs: int64(len(s.nfts))}
	for _, nft := range s.nfts {
		owners[nft.OwnerAddress] = struct{}{}
		minters[nft.MinterAddress] = struct{}{}
		if !nft.MintedAt.Before(since) {
			stats.RecentMints++
		}
	}
	stats.DistinctOwners = int64(len(owners))
	stats.DistinctMinters = int64(len(minters))

	return stats, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return wrapError("ping", ctx.Err())
}

func matchesNFT(nft *schema.NFT, owner, minter, search string) bool {
	if owner != "" && nft.OwnerAddress != strings.ToLower(owner) {
		return false
	}
	if minter != "" && nft.MinterAddress != strings.ToLower(minter) {
		return false
	}
	if search != "" {
		needle := strings.ToLower(search)
		if !strings.Contains(strings.ToLower(nft.Name), needle) &&
			!strings.Contains(strings.ToLower(nft.Description), needle) {
			return false
		}
	}
	return true
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate[T any](items []T, offset uint64, limit int) []T {
	if offset >= uint64(len(items)) {
		return []T{}
	}
	end := min(offset+uint64(normalizeLimit(limit)), uint64(len(items)))
	return items[offset:end]
}
