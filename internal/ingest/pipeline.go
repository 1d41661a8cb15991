package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
	"github.com/feral-file/ff-mint-indexer/internal/metadata"
	"github.com/feral-file/ff-mint-indexer/internal/store"
	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

// Result is the outcome of applying one mint event
type Result int

const (
	// ResultFailed means a persistence step failed; the event must be retried
	ResultFailed Result = iota
	// ResultApplied means this call created the records
	ResultApplied
	// ResultAlreadyApplied means the token was already projected; nothing was created
	ResultAlreadyApplied
)

func (r Result) String() string {
	switch r {
	case ResultApplied:
		return "applied"
	case ResultAlreadyApplied:
		return "already_applied"
	default:
		return "failed"
	}
}

// Config holds the configuration for the ingestion pipeline
type Config struct {
	Chain           domain.Chain
	ContractAddress string
	// StoreTimeout bounds every store call
	StoreTimeout time.Duration
}

// Pipeline applies canonical mint events to the projection store
//
//go:generate mockgen -source=pipeline.go -destination=../mocks/pipeline.go -package=mocks -mock_names=Pipeline=MockPipeline
type Pipeline interface {
	// Apply projects the event exactly once. Errors are *domain.StoreError and come with ResultFailed.
	Apply(ctx context.Context, event domain.MintEvent) (Result, error)
}

type pipeline struct {
	store     store.Store
	fetcher   metadata.Fetcher
	publisher messaging.Publisher
	clock     adapter.Clock
	config    Config
}

// NewPipeline creates the ingestion pipeline. A nil publisher disables notifications.
func NewPipeline(st store.Store, fetcher metadata.Fetcher, publisher messaging.Publisher, clock adapter.Clock, cfg Config) Pipeline {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &pipeline{
		store:     st,
		fetcher:   fetcher,
		publisher: publisher,
		clock:     clock,
		config:    cfg,
	}
}

// Apply runs idempotency check, metadata fetch, persistence and aggregate recompute, in that order
func (p *pipeline) Apply(ctx context.Context, event domain.MintEvent) (Result, error) {
	fields := []zap.Field{
		zap.Uint64("token_id", event.TokenID),
		zap.String("tx_hash", event.TransactionHash),
		zap.Uint64("block_number", event.BlockNumber),
	}

	// 1. Idempotency
	existing, err := p.findNFT(ctx, event.TokenID)
	if err != nil {
		return ResultFailed, err
	}
	if existing != nil {
		logger.DebugCtx(ctx, "Mint already applied", fields...)
		// A previous attempt may have committed the records but failed the recompute.
		// Aggregates that are already current are left untouched.
		if err := p.reconcileAggregates(ctx, existing.MinterAddress, existing.OwnerAddress); err != nil {
			return ResultFailed, err
		}
		return ResultAlreadyApplied, nil
	}

	// 2. Best effort metadata
	doc := p.resolveMetadata(ctx, event)

	// 3. Persist NFT and MINT transaction as one unit
	input, err := buildMintInput(event, doc)
	if err != nil {
		return ResultFailed, domain.NewRejectedStoreError("encode attributes", err)
	}
	created, err := p.createMint(ctx, input)
	if err != nil {
		return ResultFailed, err
	}

	// 4. Recompute from the authoritative records
	if err := p.recomputeAggregates(ctx, event.MinterAddress); err != nil {
		return ResultFailed, err
	}

	if !created {
		logger.DebugCtx(ctx, "Mint applied by a concurrent writer", fields...)
		return ResultAlreadyApplied, nil
	}

	logger.InfoCtx(ctx, "Mint applied", append(fields,
		zap.String("minter", event.MinterAddress),
		zap.String("name", input.NFT.Name))...)

	p.notify(ctx, event, input.NFT)
	return ResultApplied, nil
}

// resolveMetadata never fails: unfetchable URIs and fetch errors yield the fallback document
func (p *pipeline) resolveMetadata(ctx context.Context, event domain.MintEvent) *domain.MetadataDocument {
	fallback := domain.FallbackMetadata(event.TokenID)
	if !metadata.IsFetchable(event.MetadataURI) {
		if event.MetadataURI != "" {
			logger.WarnCtx(ctx, "Metadata URI is not fetchable, using fallback",
				zap.Uint64("token_id", event.TokenID),
				zap.String("uri", event.MetadataURI))
		}
		return fallback
	}

	doc, err := p.fetcher.Fetch(ctx, event.MetadataURI)
	if err != nil || doc == nil {
		logger.WarnCtx(ctx, "Metadata fetch failed, using fallback",
			zap.Error(err),
			zap.Uint64("token_id", event.TokenID),
			zap.String("uri", event.MetadataURI))
		return fallback
	}

	// Missing fields fall back one by one
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = fallback.Name
	}
	return doc
}

func buildMintInput(event domain.MintEvent, doc *domain.MetadataDocument) (store.CreateMintInput, error) {
	var attributes []byte
	if len(doc.Attributes) > 0 {
		var err error
		attributes, err = json.Marshal(doc.Attributes)
		if err != nil {
			return store.CreateMintInput{}, fmt.Errorf("failed to marshal attributes: %w", err)
		}
	}

	mintedAt := event.Time()
	return store.CreateMintInput{
		NFT: store.CreateNFTInput{
			TokenID:         event.TokenID,
			Name:            doc.Name,
			Description:     doc.Description,
			ImageURL:        doc.Image,
			MetadataURI:     event.MetadataURI,
			MetadataHash:    doc.Hash,
			Attributes:      attributes,
			MinterAddress:   event.MinterAddress,
			OwnerAddress:    event.MinterAddress,
			TransactionHash: event.TransactionHash,
			BlockNumber:     event.BlockNumber,
			MintedAt:        mintedAt,
		},
		Transaction: store.CreateTransactionInput{
			TransactionHash: event.TransactionHash,
			Type:            domain.TransactionTypeMint,
			ToAddress:       event.MinterAddress,
			TokenID:         event.TokenID,
			BlockNumber:     event.BlockNumber,
			Timestamp:       mintedAt,
		},
	}, nil
}

// recomputeAggregates overwrites the counters of each distinct address from NFT counts
func (p *pipeline) recomputeAggregates(ctx context.Context, addresses ...string) error {
	return p.eachAddress(addresses, func(address string) error {
		return p.recomputeAggregate(ctx, address, false)
	})
}

// reconcileAggregates writes only the aggregates whose stored counters differ from the NFT counts
func (p *pipeline) reconcileAggregates(ctx context.Context, addresses ...string) error {
	return p.eachAddress(addresses, func(address string) error {
		return p.recomputeAggregate(ctx, address, true)
	})
}

func (p *pipeline) eachAddress(addresses []string, fn func(address string) error) error {
	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		address = strings.ToLower(address)
		if address == "" {
			continue
		}
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}

		if err := fn(address); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) recomputeAggregate(ctx context.Context, address string, onlyIfChanged bool) error {
	storeCtx, cancel := context.WithTimeout(ctx, p.config.StoreTimeout)
	defer cancel()

	owned, err := p.store.CountNFTs(storeCtx, store.NFTFilter{Owner: address})
	if err != nil {
		return err
	}
	minted, err := p.store.CountNFTs(storeCtx, store.NFTFilter{Minter: address})
	if err != nil {
		return err
	}

	if onlyIfChanged {
		current, err := p.store.GetUserAggregate(storeCtx, address)
		if err != nil {
			return err
		}
		if current != nil && current.NFTsOwned == owned && current.NFTsMinted == minted {
			return nil
		}
	}

	return p.store.UpsertUserAggregate(storeCtx, store.UpsertUserAggregateInput{
		Address:    address,
		NFTsOwned:  owned,
		NFTsMinted: minted,
		UpdatedAt:  p.clock.Now(),
	})
}

func (p *pipeline) findNFT(ctx context.Context, tokenID uint64) (*schema.NFT, error) {
	storeCtx, cancel := context.WithTimeout(ctx, p.config.StoreTimeout)
	defer cancel()
	return p.store.FindNFT(storeCtx, tokenID)
}

func (p *pipeline) createMint(ctx context.Context, input store.CreateMintInput) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, p.config.StoreTimeout)
	defer cancel()
	return p.store.CreateMint(storeCtx, input)
}

// notify publishes the applied mint. Failures are logged only: the projection is already consistent.
func (p *pipeline) notify(ctx context.Context, event domain.MintEvent, nft store.CreateNFTInput) {
	notification := &domain.MintNotification{
		Chain:           p.config.Chain,
		ContractAddress: p.config.ContractAddress,
		TokenID:         event.TokenID,
		MinterAddress:   event.MinterAddress,
		Name:            nft.Name,
		ImageURL:        nft.ImageURL,
		TransactionHash: event.TransactionHash,
		BlockNumber:     event.BlockNumber,
		Timestamp:       event.Time(),
	}
	if err := p.publisher.PublishMint(ctx, notification); err != nil {
		logger.WarnCtx(ctx, "Failed to publish mint notification",
			zap.Error(err),
			zap.Uint64("token_id", event.TokenID))
	}
}
