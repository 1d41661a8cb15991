package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/ingest"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
	"github.com/feral-file/ff-mint-indexer/internal/normalizer"
)

const (
	DEFAULT_LOOKBACK_BLOCKS = 10000
	DEFAULT_PAGE_SIZE       = 2000
)

// BackfillConfig holds the configuration for the backfill coordinator
type BackfillConfig struct {
	// LookbackBlocks bounds the startup window: [max(0, head-LookbackBlocks), head]
	LookbackBlocks uint64
	// PageSize is the block span of one historical range query
	PageSize uint64
}

// Backfiller replays historical mint events through the dispatcher, one at a time, in ascending
// (block, logIndex) order
type Backfiller struct {
	source     messaging.MintSource
	dispatcher *ingest.Dispatcher
	config     BackfillConfig
	dropped    *atomic.Uint64
	cursor     scanCursor
}

// NewBackfiller creates a backfill coordinator. dropped counts events rejected by the normalizer.
func NewBackfiller(source messaging.MintSource, dispatcher *ingest.Dispatcher, cfg BackfillConfig, dropped *atomic.Uint64) *Backfiller {
	if cfg.LookbackBlocks == 0 {
		cfg.LookbackBlocks = DEFAULT_LOOKBACK_BLOCKS
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DEFAULT_PAGE_SIZE
	}
	if dropped == nil {
		dropped = new(atomic.Uint64)
	}
	return &Backfiller{
		source:     source,
		dispatcher: dispatcher,
		config:     cfg,
		dropped:    dropped,
	}
}

// Range returns the inclusive block range a backfill covers for the given head. A nil fromBlock
// selects the lookback window; a fromBlock past the head yields the empty range (head+1, head).
func (b *Backfiller) Range(head uint64, fromBlock *uint64) (uint64, uint64) {
	if fromBlock != nil {
		if *fromBlock > head {
			return head + 1, head
		}
		return *fromBlock, head
	}
	if head < b.config.LookbackBlocks {
		return 0, head
	}
	return head - b.config.LookbackBlocks, head
}

// Backfill applies every mint in the range and returns the number of newly applied events.
// It stops at the first event whose retries are exhausted; everything before it is applied.
func (b *Backfiller) Backfill(ctx context.Context, fromBlock *uint64) (int, error) {
	head, err := b.source.GetCurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current block: %w", err)
	}

	start, end := b.Range(head, fromBlock)
	b.cursor.begin(start)
	if start > end {
		return 0, nil
	}

	logger.InfoCtx(ctx, "Backfilling mint events",
		zap.Uint64("from_block", start),
		zap.Uint64("to_block", end),
		zap.Uint64("page_size", b.config.PageSize))

	applied := 0
	for from := start; ; {
		to := from + b.config.PageSize - 1
		if to > end || to < from {
			to = end
		}

		n, err := b.backfillPage(ctx, from, to)
		applied += n
		if err != nil {
			return applied, err
		}
		b.cursor.advance(from, to)

		if to == end {
			break
		}
		from = to + 1
	}

	logger.InfoCtx(ctx, "Backfill completed",
		zap.Uint64("from_block", start),
		zap.Uint64("to_block", end),
		zap.Int("applied", applied))

	return applied, nil
}

// Cursor returns the first block no completed backfill has covered yet, or nil before the first
// backfill. Pages complete in order, so every block below it has been scanned.
func (b *Backfiller) Cursor() *uint64 {
	return b.cursor.from()
}

func (b *Backfiller) backfillPage(ctx context.Context, from, to uint64) (int, error) {
	raws, err := b.source.QueryMintEvents(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to query mint events %d-%d: %w", from, to, err)
	}

	sort.SliceStable(raws, func(i, j int) bool {
		if raws[i].BlockNumber() != raws[j].BlockNumber() {
			return raws[i].BlockNumber() < raws[j].BlockNumber()
		}
		return raws[i].LogIndex() < raws[j].LogIndex()
	})

	applied := 0
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		event, err := normalizer.Normalize(raw)
		if err != nil {
			b.dropped.Add(1)
			logger.WarnCtx(ctx, "Dropping malformed mint event",
				zap.Error(err),
				zap.String("kind", raw.Kind.String()),
				zap.Uint64("block_number", raw.BlockNumber()))
			continue
		}

		outcome := b.dispatcher.ApplyContext(ctx, event)
		switch outcome.Result {
		case ingest.ResultApplied:
			applied++
		case ingest.ResultAlreadyApplied:
		default:
			err := outcome.Err
			if err == nil {
				err = errors.New("apply failed")
			}
			return applied, fmt.Errorf("backfill stopped at block %d token %d: %w", event.BlockNumber, event.TokenID, err)
		}
	}

	return applied, nil
}
