package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

// Head is the last known chain head
type Head struct {
	Number    uint64
	FetchedAt time.Time
}

// BlockHeadProvider serves the chain head from a short-lived cache. The reported head never moves
// backwards, so a lagging RPC node cannot shrink a backfill range.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=BlockHeadProvider=MockBlockHeadProvider,BlockFetcher=MockBlockFetcher
type BlockHeadProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)
	// Observe records a block number seen on the live feed, advancing the cached head without an RPC call
	Observe(number uint64)
}

// BlockFetcher fetches the latest block from the chain
type BlockFetcher interface {
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the BlockHeadProvider
type Config struct {
	// TTL is how long a fetched head is served without asking the chain again
	TTL time.Duration
	// StaleWindow is how long a cached head may be served when fetching fails
	StaleWindow time.Duration
}

type blockHeadProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu   sync.RWMutex
	head *Head
	// fetchMu lets a single caller refresh the head while the others wait for its result
	fetchMu sync.Mutex
}

// NewBlockHeadProvider creates a new BlockHeadProvider with caching
func NewBlockHeadProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockHeadProvider {
	return &blockHeadProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

func (p *blockHeadProvider) cached() *Head {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.head == nil {
		return nil
	}
	h := *p.head
	return &h
}

func (p *blockHeadProvider) fresh(h *Head, now time.Time) bool {
	return h != nil && now.Sub(h.FetchedAt) < p.config.TTL
}

// GetLatestBlock returns the cached head while it is fresh, otherwise fetches it
func (p *blockHeadProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	if h := p.cached(); p.fresh(h, p.clock.Now()) {
		return h.Number, nil
	}

	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	// Another caller may have refreshed it while we waited
	now := p.clock.Now()
	cached := p.cached()
	if p.fresh(cached, now) {
		return cached.Number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.FetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Serving stale block head",
				zap.Error(err),
				zap.Uint64("block_number", cached.Number),
				zap.Duration("age", now.Sub(cached.FetchedAt)))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	return p.store(number, now), nil
}

// Observe advances the cached head when the live feed reports a newer block
func (p *blockHeadProvider) Observe(number uint64) {
	p.store(number, p.clock.Now())
}

// store keeps the highest head seen and returns it
func (p *blockHeadProvider) store(number uint64, at time.Time) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.head != nil && p.head.Number > number {
		// Keep the higher number but extend its freshness
		p.head.FetchedAt = at
		return p.head.Number
	}
	p.head = &Head{Number: number, FetchedAt: at}
	return number
}
